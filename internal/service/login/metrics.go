package login

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginsStartedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "login_starts_total",
			Help: "Total login starts, by outcome of the user lookup",
		},
		[]string{"outcome"},
	)

	validationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "login_mfa_validations_total",
			Help: "Total MFA code validations, by outcome",
		},
		[]string{"outcome"},
	)

	compensationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "login_challenge_invalidations_total",
			Help: "Challenges invalidated by the compensating cleanup",
		},
	)
)
