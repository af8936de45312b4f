// Package plans resolves a user's subscription plan into the entitlements
// the pipeline needs: quota limit, variation count, and history retention.
//
// Billing and subscription state live in an external component; this
// package is the seam. Production wires a resolver backed by that
// component, tests and single-tenant deployments use the static resolver.
package plans

import (
	"context"
	"fmt"
	"sync"
)

// Plan identifies a subscription tier.
type Plan string

const (
	// PlanFree is the default tier for users without a subscription.
	PlanFree Plan = "free"

	// PlanPro is the paid tier.
	PlanPro Plan = "pro"
)

// Entitlements are the plan-derived parameters consumed by admission and
// execution.
type Entitlements struct {
	// Plan is the resolved tier.
	Plan Plan

	// QuotaLimit is the number of rewrites allowed per cycle.
	QuotaLimit int

	// VariationCount is how many result variations a generation produces.
	VariationCount int

	// RetentionDays is how long persisted rewrites are kept.
	RetentionDays int
}

// Resolver resolves the plan entitlements for a user. Implementations may
// consult the external billing component; the admission controller calls
// this once per request before the quota check.
type Resolver interface {
	Resolve(ctx context.Context, userID string) (Entitlements, error)
}

// Defaults returns the built-in entitlements per tier.
func Defaults() map[Plan]Entitlements {
	return map[Plan]Entitlements{
		PlanFree: {Plan: PlanFree, QuotaLimit: 5, VariationCount: 2, RetentionDays: 7},
		PlanPro:  {Plan: PlanPro, QuotaLimit: 30, VariationCount: 3, RetentionDays: 365},
	}
}

// StaticResolver resolves every user to a fixed per-plan table, with an
// optional per-user plan assignment map. It stands in for the external
// billing component. Assignments and the default plan can be swapped at
// runtime on config reload; the entitlement table is fixed.
type StaticResolver struct {
	table map[Plan]Entitlements

	mu          sync.RWMutex
	assignments map[string]Plan
	defaultPlan Plan
}

// NewStaticResolver creates a resolver over the given entitlement table.
// Users absent from assignments resolve to defaultPlan.
func NewStaticResolver(table map[Plan]Entitlements, assignments map[string]Plan, defaultPlan Plan) (*StaticResolver, error) {
	if len(table) == 0 {
		table = Defaults()
	}
	if defaultPlan == "" {
		defaultPlan = PlanFree
	}
	if _, ok := table[defaultPlan]; !ok {
		return nil, fmt.Errorf("default plan %q not in entitlement table", defaultPlan)
	}
	for user, plan := range assignments {
		if _, ok := table[plan]; !ok {
			return nil, fmt.Errorf("user %q assigned unknown plan %q", user, plan)
		}
	}

	return &StaticResolver{
		table:       table,
		assignments: assignments,
		defaultPlan: defaultPlan,
	}, nil
}

// SetAssignments replaces the assignment map and default plan. Rejected
// wholesale if any entry names an unknown plan, so a bad reload leaves
// the previous assignments in place.
func (r *StaticResolver) SetAssignments(assignments map[string]Plan, defaultPlan Plan) error {
	if defaultPlan == "" {
		defaultPlan = PlanFree
	}
	if _, ok := r.table[defaultPlan]; !ok {
		return fmt.Errorf("default plan %q not in entitlement table", defaultPlan)
	}
	for user, plan := range assignments {
		if _, ok := r.table[plan]; !ok {
			return fmt.Errorf("user %q assigned unknown plan %q", user, plan)
		}
	}

	r.mu.Lock()
	r.assignments = assignments
	r.defaultPlan = defaultPlan
	r.mu.Unlock()
	return nil
}

// Resolve returns the entitlements for userID.
func (r *StaticResolver) Resolve(ctx context.Context, userID string) (Entitlements, error) {
	r.mu.RLock()
	plan := r.defaultPlan
	if assigned, ok := r.assignments[userID]; ok {
		plan = assigned
	}
	r.mu.RUnlock()
	return r.table[plan], nil
}
