package internaldefs

import (
	novelAuth "github.com/MrEthical07/novelAuth"
)

// CounterDef binds a counter metric id to its exported name.
type CounterDef struct {
	ID   novelAuth.MetricID
	Name string
	Help string
}

// HistogramDef binds a histogram metric id to its exported name.
type HistogramDef struct {
	ID   novelAuth.MetricID
	Name string
	Help string
}

// CounterDefs lists every counter in export order.
var CounterDefs = []CounterDef{
	{ID: novelAuth.MetricLoginSuccess, Name: "novelauth_login_success_total", Help: "Successful logins."},
	{ID: novelAuth.MetricLoginFailure, Name: "novelauth_login_failure_total", Help: "Logins rejected for bad credentials."},
	{ID: novelAuth.MetricLoginLocked, Name: "novelauth_login_locked_total", Help: "Logins refused inside a lockout window."},
	{ID: novelAuth.MetricLoginRateLimited, Name: "novelauth_login_rate_limited_total", Help: "Logins refused by the per-IP throttle."},
	{ID: novelAuth.MetricChallengeFailure, Name: "novelauth_challenge_failure_total", Help: "Failed human verifications."},
	{ID: novelAuth.MetricLockoutTriggered, Name: "novelauth_lockout_triggered_total", Help: "Lockout windows opened."},
	{ID: novelAuth.MetricForcedRotation, Name: "novelauth_forced_rotation_total", Help: "Logins demoted for an expired password."},
	{ID: novelAuth.MetricCSRFRejected, Name: "novelauth_csrf_rejected_total", Help: "Requests rejected for a bad CSRF token."},
	{ID: novelAuth.MetricSessionCreated, Name: "novelauth_session_created_total", Help: "Sessions created or regenerated."},
	{ID: novelAuth.MetricSessionExpired, Name: "novelauth_session_expired_total", Help: "Sessions expired by inactivity or lifetime."},
	{ID: novelAuth.MetricLogout, Name: "novelauth_logout_total", Help: "Sessions terminated by logout."},
	{ID: novelAuth.MetricPasswordChangeSuccess, Name: "novelauth_password_change_success_total", Help: "Successful password changes."},
	{ID: novelAuth.MetricPasswordChangeInvalidCurrent, Name: "novelauth_password_change_invalid_current_total", Help: "Password changes with a wrong current password."},
	{ID: novelAuth.MetricPasswordChangePolicyReject, Name: "novelauth_password_change_policy_reject_total", Help: "Password changes rejected by the strength policy."},
	{ID: novelAuth.MetricPasswordChangeReuseReject, Name: "novelauth_password_change_reuse_reject_total", Help: "Password changes rejected for reuse."},
	{ID: novelAuth.MetricPremiumChanged, Name: "novelauth_premium_changed_total", Help: "Premium flag updates."},
	{ID: novelAuth.MetricUnauthorizedAccess, Name: "novelauth_unauthorized_access_total", Help: "Admin operations refused for role."},
}

// HistogramDefs lists every histogram in export order.
var HistogramDefs = []HistogramDef{
	{ID: novelAuth.MetricCredentialAttemptLatency, Name: "novelauth_credential_attempt_latency_seconds", Help: "Credential attempt latency, hash verification included."},
}

// HistogramBounds are the upper bounds of the eight latency buckets, in seconds.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds spelled for metric names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight-bucket array, zero-filling
// a short or missing histogram.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
