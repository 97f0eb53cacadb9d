package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campusbus",
		Subsystem: "identity",
		Name:      "login_attempts_total",
		Help:      "Authentication attempts by matched role and outcome.",
	}, []string{"role", "outcome"})

	PasswordResets = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campusbus",
		Subsystem: "identity",
		Name:      "password_resets_total",
		Help:      "Password reset redemptions by outcome.",
	}, []string{"outcome"})

	ResetTokensIssued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "campusbus",
		Subsystem: "identity",
		Name:      "reset_tokens_issued_total",
		Help:      "Password reset tokens issued.",
	})

	RegisteredAccounts = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "campusbus",
		Subsystem: "identity",
		Name:      "registered_accounts",
		Help:      "Distinct accounts held per persisted collection.",
	}, []string{"role"})
)
