// File: internal/infra/metrics/metrics.go
package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	tokensIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_tokens_issued_total",
			Help: "Login tokens issued, by result (ok/failed).",
		},
		[]string{"result"},
	)

	tokensRedeemedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_tokens_redeemed_total",
			Help: "Redemption attempts by result (ok/expired/already_used/not_found/error).",
		},
		[]string{"result"},
	)

	tokensByState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "auth_tokens",
			Help: "Stored login tokens by lifecycle state (valid/used/expired).",
		},
		[]string{"state"},
	)

	referralsRecordedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "referrals_recorded_total",
			Help: "Referral recording outcomes (recorded/duplicate/parked/dropped/ignored/existing_user/error).",
		},
		[]string{"outcome"},
	)

	accountsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "accounts_created_total",
			Help: "Accounts created on first redemption.",
		},
	)

	cacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_requests_total",
			Help: "Cache lookups by cache name and result (hit/miss/error).",
		},
		[]string{"cache", "result"},
	)

	telegramCommandsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_commands_received_total",
			Help: "Counts incoming messages and commands from users.",
		},
		[]string{"command"},
	)

	telegramRateLimitTriggeredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "telegram_rate_limit_triggered_total",
			Help: "Total number of times users have been rate-limited.",
		},
	)
)

func init() { MustRegister() }

// MustRegister registers collectors with the default registry (idempotent).
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(
			tokensIssuedTotal, tokensRedeemedTotal, tokensByState,
			referralsRecordedTotal, accountsCreatedTotal, cacheRequestsTotal,
			telegramCommandsReceivedTotal, telegramRateLimitTriggeredTotal,
		)
	})
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// -------- Auth helpers --------

func IncTokenIssued(result string) {
	tokensIssuedTotal.WithLabelValues(norm(result)).Inc()
}

func IncTokenRedeemed(result string) {
	tokensRedeemedTotal.WithLabelValues(norm(result)).Inc()
}

func SetTokensByState(valid, used, expired int) {
	tokensByState.WithLabelValues("valid").Set(float64(valid))
	tokensByState.WithLabelValues("used").Set(float64(used))
	tokensByState.WithLabelValues("expired").Set(float64(expired))
}

func IncAccountCreated() { accountsCreatedTotal.Inc() }

// -------- Referral helpers --------

func IncReferral(outcome string) {
	referralsRecordedTotal.WithLabelValues(norm(outcome)).Inc()
}

// -------- Cache helpers --------

func IncCacheRequest(cache, result string) {
	cacheRequestsTotal.WithLabelValues(norm(cache), norm(result)).Inc()
}

// -------- Telegram helpers --------

func IncTelegramCommand(command string) {
	telegramCommandsReceivedTotal.WithLabelValues(norm(command)).Inc()
}

func IncRateLimitTriggered() {
	telegramRateLimitTriggeredTotal.Inc()
}
