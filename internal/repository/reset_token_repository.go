package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"campusbus/identity/internal/kv"
	"campusbus/identity/internal/models"
)

const ResetTokensKey = "resetTokens"

var ErrResetTokenNotFound = errors.New("reset token not found")

type ResetTokenRepository struct {
	store kv.Store
	mu    sync.Mutex
}

func NewResetTokenRepository(store kv.Store) *ResetTokenRepository {
	return &ResetTokenRepository{store: store}
}

func (r *ResetTokenRepository) load(ctx context.Context) (map[string]models.ResetToken, error) {
	tokens := make(map[string]models.ResetToken)

	raw, err := r.store.Get(ctx, ResetTokensKey)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return tokens, nil
		}
		return nil, fmt.Errorf("load reset tokens: %w", err)
	}
	if err := json.Unmarshal(raw, &tokens); err != nil {
		return nil, fmt.Errorf("decode reset tokens: %w", err)
	}
	return tokens, nil
}

func (r *ResetTokenRepository) save(ctx context.Context, tokens map[string]models.ResetToken) error {
	if len(tokens) == 0 {
		return r.store.Delete(ctx, ResetTokensKey)
	}
	raw, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("encode reset tokens: %w", err)
	}
	return r.store.Set(ctx, ResetTokensKey, raw, 0)
}

func (r *ResetTokenRepository) Create(ctx context.Context, token models.ResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tokens, err := r.load(ctx)
	if err != nil {
		return err
	}
	tokens[token.TokenHash] = token
	return r.save(ctx, tokens)
}

func (r *ResetTokenRepository) Get(ctx context.Context, tokenHash string) (models.ResetToken, error) {
	tokens, err := r.load(ctx)
	if err != nil {
		return models.ResetToken{}, err
	}
	token, ok := tokens[tokenHash]
	if !ok {
		return models.ResetToken{}, ErrResetTokenNotFound
	}
	return token, nil
}

func (r *ResetTokenRepository) MarkConsumed(ctx context.Context, tokenHash string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tokens, err := r.load(ctx)
	if err != nil {
		return err
	}
	token, ok := tokens[tokenHash]
	if !ok {
		return ErrResetTokenNotFound
	}
	token.Consumed = true
	token.ConsumedAt = &at
	tokens[tokenHash] = token
	return r.save(ctx, tokens)
}

// Purge drops tokens past expiry at now. Consumed tokens are kept until they
// expire so a reused link still reports that it was already used.
func (r *ResetTokenRepository) Purge(ctx context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tokens, err := r.load(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for hash, token := range tokens {
		if token.Expired(now) {
			delete(tokens, hash)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, r.save(ctx, tokens)
}

// CountActive reports tokens that could still authorize a reset at now.
func (r *ResetTokenRepository) CountActive(ctx context.Context, now time.Time) (int, error) {
	tokens, err := r.load(ctx)
	if err != nil {
		return 0, err
	}
	active := 0
	for _, token := range tokens {
		if !token.Consumed && !token.Expired(now) {
			active++
		}
	}
	return active, nil
}
