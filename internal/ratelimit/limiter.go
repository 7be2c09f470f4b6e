package ratelimit

import (
	"time"
)

// LimitConfig caps a scope at Max requests per sliding Window.
type LimitConfig struct {
	Max    int64
	Window time.Duration
}

// Policy maps scopes to the limits enforced on them. A scope without limits is unrestricted.
type Policy struct {
	Limits map[Scope][]LimitConfig
}

// IngestPolicy limits event ingestion to maxRequests per window for each client.
// Flushes get their own admin budget of a tenth of that rate, with a floor of one.
// A non-positive maxRequests disables limiting.
func IngestPolicy(maxRequests int64, window time.Duration) *Policy {
	policy := &Policy{Limits: make(map[Scope][]LimitConfig)}

	if maxRequests <= 0 || window <= 0 {
		return policy
	}

	policy.Limits[ScopeIngest] = []LimitConfig{{Max: maxRequests, Window: window}}
	policy.Limits[ScopeAdmin] = []LimitConfig{{Max: max(maxRequests/10, 1), Window: window}}

	return policy
}

// Enabled reports whether the policy limits anything.
func (p *Policy) Enabled() bool {
	return p != nil && len(p.Limits) > 0
}
