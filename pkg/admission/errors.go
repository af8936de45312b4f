package admission

import (
	"fmt"

	"phrasecraft-hq/forge/pkg/plans"
)

// QuotaExceededError is returned when the durable ledger has no slots
// left for the user this cycle.
type QuotaExceededError struct {
	Limit int
	Plan  plans.Plan
}

func (e *QuotaExceededError) Error() string {
	if e.Plan == plans.PlanFree {
		return fmt.Sprintf("You have used all %d rewrites on the free plan this cycle. Upgrade to Pro for a higher limit.", e.Limit)
	}
	return fmt.Sprintf("You have used all %d rewrites this cycle. Your quota returns at the start of the next cycle.", e.Limit)
}

// GlobalCapExceededError is returned when the system-wide daily ceiling
// is hit, or when the counter store is unreachable during the cap check.
// The message is deliberately generic; the two causes are
// indistinguishable to the caller.
type GlobalCapExceededError struct{}

func (e *GlobalCapExceededError) Error() string {
	return "The service is under high demand right now. Please try again later."
}

// RateLimitedError is returned when the per-user burst guard trips, or
// when the counter store is unreachable during the rate check.
type RateLimitedError struct {
	// Limit is the per-minute threshold that was exceeded.
	Limit int
}

func (e *RateLimitedError) Error() string {
	return "Too many requests. Please wait a minute and try again."
}
