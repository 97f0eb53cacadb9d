package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"campusbus/identity/internal/config"
)

type TokenPurger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

type SnapshotUploader interface {
	Enabled() bool
	Upload(ctx context.Context) (string, error)
}

// ExpiryPruner drops rows whose ttl has passed. Only the postgres store
// needs it; redis and memory expire keys themselves.
type ExpiryPruner interface {
	Prune(ctx context.Context) (int64, error)
}

type Scheduler struct {
	cron    *cron.Cron
	cfg     config.JobsConfig
	tokens  TokenPurger
	backups SnapshotUploader
	pruner  ExpiryPruner
	log     zerolog.Logger
}

func NewScheduler(cfg config.JobsConfig, tokens TokenPurger, backups SnapshotUploader, pruner ExpiryPruner, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:    c,
		cfg:     cfg,
		tokens:  tokens,
		backups: backups,
		pruner:  pruner,
		log:     log,
	}
}

func (s *Scheduler) Start() error {
	if s.cfg.PurgeTokensSpec != "" {
		if _, err := s.cron.AddFunc(s.cfg.PurgeTokensSpec, s.PurgeTokens); err != nil {
			return err
		}
	}
	if s.cfg.BackupSpec != "" && s.backups != nil && s.backups.Enabled() {
		if _, err := s.cron.AddFunc(s.cfg.BackupSpec, s.Backup); err != nil {
			return err
		}
	}

	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) PurgeTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.tokens != nil {
		removed, err := s.tokens.PurgeExpired(ctx)
		if err != nil {
			s.log.Error().Err(err).Msg("purge reset tokens failed")
		} else if removed > 0 {
			s.log.Info().Int("removed", removed).Msg("reset tokens purged")
		}
	}

	if s.pruner != nil {
		rows, err := s.pruner.Prune(ctx)
		if err != nil {
			s.log.Error().Err(err).Msg("prune expired keys failed")
		} else if rows > 0 {
			s.log.Info().Int64("rows", rows).Msg("expired keys pruned")
		}
	}
}

func (s *Scheduler) Backup() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if _, err := s.backups.Upload(ctx); err != nil {
		s.log.Error().Err(err).Msg("scheduled snapshot failed")
	}
}
