/**
 * @description
 * Per-caller throttling for the unauthenticated endpoints. Each caller IP
 * gets an independent fixed one-minute window per scope, counted in Redis so
 * the limit holds across replicas. The allow/deny decision is made inside a
 * Lua script so the count, the verdict and the window remainder come back in
 * one round trip.
 */
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Throttling scopes. Each scope keeps its own window per caller.
const (
	LimitScopeAvailability = "availability"
	LimitScopeRegister     = "register"
)

const limitWindow = time.Minute

// probeWindowScript counts the hit, opens the window on first use, and
// verdicts against the limit. Returns {allowed, remaining, pttl_ms}.
var probeWindowScript = redis.NewScript(`
local hits = redis.call("INCR", KEYS[1])
if hits == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[2])
end
local limit = tonumber(ARGV[1])
if hits > limit then
  return {0, 0, ttl}
end
return {1, limit - hits, ttl}
`)

// LimitDecision is the verdict for one request. RetryAfter is only
// meaningful when the request was denied.
type LimitDecision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds the window remainder up for the Retry-After
// header. Never below one second, so a denied caller always backs off.
func (d LimitDecision) RetryAfterSeconds() int {
	secs := int((d.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

// ProbeLimiter throttles availability probes and registration attempts by
// caller IP. A nil limiter, or one built over a nil client, allows
// everything.
type ProbeLimiter struct {
	client redis.UniversalClient
	prefix string
}

func NewProbeLimiter(client redis.UniversalClient, prefix string) *ProbeLimiter {
	p := strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if p == "" {
		p = "ishuriai:rate_limit"
	}
	return &ProbeLimiter{client: client, prefix: p}
}

// Allow records one hit for callerIP within scope and verdicts it against
// perMinute. Disabled configurations (nil limiter or client, non-positive
// limit, blank scope or caller) always allow.
func (l *ProbeLimiter) Allow(ctx context.Context, scope, callerIP string, perMinute int) (LimitDecision, error) {
	allowed := LimitDecision{Allowed: true}
	if l == nil || l.client == nil || perMinute <= 0 {
		return allowed, nil
	}
	scope = strings.TrimSpace(scope)
	callerIP = strings.TrimSpace(callerIP)
	if scope == "" || callerIP == "" {
		return allowed, nil
	}

	key := fmt.Sprintf("%s:%s:%s", l.prefix, scope, callerIP)
	raw, err := probeWindowScript.Run(ctx, l.client, []string{key}, perMinute, limitWindow.Milliseconds()).Result()
	if err != nil {
		return allowed, err
	}

	reply, ok := raw.([]interface{})
	if !ok || len(reply) != 3 {
		return allowed, fmt.Errorf("throttle script returned %T, want 3-element reply", raw)
	}
	verdict, okV := reply[0].(int64)
	remaining, okR := reply[1].(int64)
	ttlMs, okT := reply[2].(int64)
	if !okV || !okR || !okT {
		return allowed, fmt.Errorf("throttle script reply has non-integer fields: %v", reply)
	}
	if ttlMs < 0 {
		ttlMs = limitWindow.Milliseconds()
	}

	return LimitDecision{
		Allowed:    verdict == 1,
		Remaining:  int(remaining),
		RetryAfter: time.Duration(ttlMs) * time.Millisecond,
	}, nil
}
