// Package access decides whether a session may reach a destination. The
// resolver is pure: given a session view and a path it returns a decision,
// touching no storage and no clock.
package access

import (
	"strings"

	"github.com/akumol/guardian/internal/models"
)

// Outcome classifies a resolution.
type Outcome string

const (
	// OutcomeAllow lets the navigation proceed.
	OutcomeAllow Outcome = "allow"
	// OutcomeRedirect sends the client to Target instead.
	OutcomeRedirect Outcome = "redirect"
	// OutcomePending means the session is still resolving; render nothing
	// and wait for the next view.
	OutcomePending Outcome = "pending"
)

// Decision is the resolver's verdict for one navigation.
type Decision struct {
	Outcome Outcome `json:"outcome"`
	Target  string  `json:"target,omitempty"`
}

// Requirement describes what a destination demands of a session.
type Requirement struct {
	// Public destinations resolve for anyone, including mid-load.
	Public bool
	// AdminOnly destinations require the admin role.
	AdminOnly bool
	// MinPlan, when set, is the lowest plan tier admitted.
	MinPlan models.Plan
}

// Resolver maps destinations to requirements and applies them in a fixed
// precedence order.
type Resolver struct {
	routes map[string]Requirement
}

// NewResolver builds a resolver with the application's destination table.
func NewResolver() *Resolver {
	return &Resolver{
		routes: map[string]Requirement{
			"/":               {},
			"/profile":        {},
			"/login":          {Public: true},
			"/register":       {Public: true},
			"/reset-password": {Public: true},
			"/verify-email":   {Public: true},
			"/counselor":      {MinPlan: models.PlanPremium},
			"/agents":         {MinPlan: models.PlanPlus},
			"/agents/shadow":  {MinPlan: models.PlanUltimate},
			"/admin":          {AdminOnly: true},
		},
	}
}

// Resolve applies the precedence order: pending while loading, public
// destinations always pass, anonymous sessions go to the login page,
// role then plan gates send shortfalls home.
func (r *Resolver) Resolve(view models.SessionView, path string) Decision {
	req := r.requirementFor(path)

	if view.Loading {
		return Decision{Outcome: OutcomePending}
	}
	if req.Public {
		return Decision{Outcome: OutcomeAllow}
	}
	if view.Profile == nil {
		return Decision{Outcome: OutcomeRedirect, Target: "/login"}
	}

	isAdmin := view.Profile.Role == models.RoleAdmin
	if req.AdminOnly && !isAdmin {
		return Decision{Outcome: OutcomeRedirect, Target: "/"}
	}
	// Admins pass plan gates; everyone else needs the tier.
	if req.MinPlan != "" && !isAdmin && !view.Profile.Plan.AtLeast(req.MinPlan) {
		return Decision{Outcome: OutcomeRedirect, Target: "/"}
	}
	return Decision{Outcome: OutcomeAllow}
}

// requirementFor finds the requirement for a path. Exact matches win,
// then the longest registered segment prefix. Unregistered paths are
// treated as plain authenticated destinations.
func (r *Resolver) requirementFor(path string) Requirement {
	path = normalizePath(path)
	if req, ok := r.routes[path]; ok {
		return req
	}

	best := ""
	var found Requirement
	for route, req := range r.routes {
		if route == "/" {
			continue
		}
		if strings.HasPrefix(path, route+"/") && len(route) > len(best) {
			best = route
			found = req
		}
	}
	if best != "" {
		return found
	}
	return Requirement{}
}

func normalizePath(path string) string {
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}
