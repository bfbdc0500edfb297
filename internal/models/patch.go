package models

import "time"

// ProfilePatch is a field-level partial update. Nil fields are untouched.
// There is deliberately no whole-document write path: concurrent patches to
// different fields cannot clobber each other.
type ProfilePatch struct {
	Email         *string                `json:"email,omitempty"`
	DisplayName   *string                `json:"display_name,omitempty"`
	PhotoURL      *string                `json:"photo_url,omitempty"`
	Plan          *Plan                  `json:"plan,omitempty"`
	Role          *string                `json:"role,omitempty"`
	Bio           *string                `json:"bio,omitempty"`
	Financial     *FinancialSnapshot     `json:"financial,omitempty"`
	Preferences   *Preferences           `json:"preferences,omitempty"`
	Subscriptions *[]TrackedSubscription `json:"subscriptions,omitempty"`
}

// IsEmpty reports whether the patch carries no fields.
func (p *ProfilePatch) IsEmpty() bool {
	return p.Email == nil && p.DisplayName == nil && p.PhotoURL == nil &&
		p.Plan == nil && p.Role == nil && p.Bio == nil &&
		p.Financial == nil && p.Preferences == nil && p.Subscriptions == nil
}

// TouchesIdentity reports whether the patch carries fields mirrored onto the
// identity record (display name and photo).
func (p *ProfilePatch) TouchesIdentity() bool {
	return p.DisplayName != nil || p.PhotoURL != nil
}

// Apply merges the patch into a profile and bumps ModifiedAt.
func (p *ProfilePatch) Apply(profile *Profile) {
	if p.Email != nil {
		profile.Email = *p.Email
	}
	if p.DisplayName != nil {
		profile.DisplayName = *p.DisplayName
	}
	if p.PhotoURL != nil {
		profile.PhotoURL = *p.PhotoURL
	}
	if p.Plan != nil {
		profile.Plan = p.Plan.Normalize()
	}
	if p.Role != nil {
		profile.Role = NormalizeRole(*p.Role)
	}
	if p.Bio != nil {
		profile.Bio = *p.Bio
	}
	if p.Financial != nil {
		profile.Financial = *p.Financial
	}
	if p.Preferences != nil {
		profile.Preferences = *p.Preferences
	}
	if p.Subscriptions != nil {
		profile.Subscriptions = *p.Subscriptions
	}
	profile.ModifiedAt = time.Now()
}

// Fields returns the patch as a field map keyed by storage field names,
// including the modified_at bump. Used for merge-style updates.
func (p *ProfilePatch) Fields() map[string]any {
	fields := map[string]any{"modified_at": time.Now()}
	if p.Email != nil {
		fields["email"] = *p.Email
	}
	if p.DisplayName != nil {
		fields["display_name"] = *p.DisplayName
	}
	if p.PhotoURL != nil {
		fields["photo_url"] = *p.PhotoURL
	}
	if p.Plan != nil {
		fields["plan"] = p.Plan.Normalize()
	}
	if p.Role != nil {
		fields["role"] = NormalizeRole(*p.Role)
	}
	if p.Bio != nil {
		fields["bio"] = *p.Bio
	}
	if p.Financial != nil {
		fields["financial"] = *p.Financial
	}
	if p.Preferences != nil {
		fields["preferences"] = *p.Preferences
	}
	if p.Subscriptions != nil {
		fields["subscriptions"] = *p.Subscriptions
	}
	return fields
}
