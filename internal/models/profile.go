package models

import "time"

// Plan is a subscription tier. Tiers are strictly ordered: every tier
// includes the capabilities of the tiers below it.
type Plan string

const (
	PlanBasic    Plan = "basic"
	PlanPremium  Plan = "premium"
	PlanPlus     Plan = "plus"
	PlanUltimate Plan = "ultimate"
)

// planRank maps each tier to its position in the ladder.
var planRank = map[Plan]int{
	PlanBasic:    0,
	PlanPremium:  1,
	PlanPlus:     2,
	PlanUltimate: 3,
}

// Valid reports whether p is a known tier.
func (p Plan) Valid() bool {
	_, ok := planRank[p]
	return ok
}

// Normalize maps unknown or empty plan values to basic. This is the only
// place a raw stored plan becomes a valid one.
func (p Plan) Normalize() Plan {
	if _, ok := planRank[p]; ok {
		return p
	}
	return PlanBasic
}

// AtLeast reports whether p sits at or above min in the tier ladder.
// Both sides are normalized first.
func (p Plan) AtLeast(min Plan) bool {
	return planRank[p.Normalize()] >= planRank[min.Normalize()]
}

// Role constants for profile authorization.
const (
	RoleUser        = "user"
	RoleFamilyAdmin = "family_admin"
	RoleAdmin       = "admin"
)

// ValidRoles is the set of allowed role values.
var ValidRoles = map[string]bool{
	RoleUser:        true,
	RoleFamilyAdmin: true,
	RoleAdmin:       true,
}

// NormalizeRole maps unknown or empty role values to user.
func NormalizeRole(role string) string {
	if ValidRoles[role] {
		return role
	}
	return RoleUser
}

// BalanceHistory holds point-in-time balances at fixed lookback horizons.
type BalanceHistory struct {
	Yesterday float64 `json:"yesterday"`
	LastWeek  float64 `json:"last_week"`
	LastMonth float64 `json:"last_month"`
	SixMonths float64 `json:"six_months"`
	LastYear  float64 `json:"last_year"`
}

// FinancialSnapshot is the per-user financial state the guardian tracks.
type FinancialSnapshot struct {
	HoursSaved    float64        `json:"hours_saved"`
	SavingsRatio  float64        `json:"savings_ratio"`
	TotalInvested float64        `json:"total_invested"`
	Balance       float64        `json:"balance"`
	History       BalanceHistory `json:"history"`
}

// Preferences holds per-user behavioral settings.
type Preferences struct {
	DopamineMode    bool `json:"dopamine_mode"`
	WeatherAutoSave bool `json:"weather_auto_save"`
}

// Subscription source constants.
const (
	SubscriptionSourceManual    = "manual"
	SubscriptionSourceStatement = "statement"
)

// TrackedSubscription is a recurring charge the user is watching.
type TrackedSubscription struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	MonthlyAmount float64   `json:"monthly_amount"`
	FirstSeen     time.Time `json:"first_seen"`
	LastSeen      time.Time `json:"last_seen"`
	Source        string    `json:"source"`
}

// Profile is the user document the session stream observes. UID matches the
// identity record's ID. DisplayName, PhotoURL and Email are mirrored from
// the identity on every profile write that touches them.
type Profile struct {
	UID           string                `json:"uid"`
	Email         string                `json:"email"`
	DisplayName   string                `json:"display_name"`
	PhotoURL      string                `json:"photo_url,omitempty"`
	Plan          Plan                  `json:"plan"`
	Role          string                `json:"role"`
	Bio           string                `json:"bio,omitempty"`
	Financial     FinancialSnapshot     `json:"financial"`
	Preferences   Preferences           `json:"preferences"`
	Subscriptions []TrackedSubscription `json:"subscriptions,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	ModifiedAt    time.Time             `json:"modified_at"`
}

// Normalized returns a copy with plan and role coerced to valid values.
// Storage returns raw documents; everything downstream consumes this.
func (p Profile) Normalized() *Profile {
	p.Plan = p.Plan.Normalize()
	p.Role = NormalizeRole(p.Role)
	return &p
}

// NewProfile builds the document created in the second step of
// registration, after the identity record exists.
func NewProfile(identity *Identity) *Profile {
	now := time.Now()
	return &Profile{
		UID:         identity.ID,
		Email:       identity.Email,
		DisplayName: identity.DisplayName,
		PhotoURL:    identity.PhotoURL,
		Plan:        PlanBasic,
		Role:        RoleUser,
		CreatedAt:   now,
		ModifiedAt:  now,
	}
}
