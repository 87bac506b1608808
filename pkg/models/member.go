package models

import (
	"encoding/json"
	"time"
)

// InternalMember is a ChefLife team member record. HR workflows own every
// field except the external link fields (external_id, external_source,
// external_data, last_synced_at), which are written only by the reconcile
// save path.
type InternalMember struct {
	ID             string          `json:"id" db:"id"`
	OrganizationID string          `json:"organization_id" db:"organization_id"`
	FirstName      string          `json:"first_name" db:"first_name"`
	LastName       string          `json:"last_name" db:"last_name"`
	PunchID        *string         `json:"punch_id,omitempty" db:"punch_id"`
	Email          *string         `json:"email,omitempty" db:"email"`
	Phone          *string         `json:"phone,omitempty" db:"phone"`
	IsActive       bool            `json:"is_active" db:"is_active"`
	ExternalID     *string         `json:"external_id,omitempty" db:"external_id"`
	ExternalSource *string         `json:"external_source,omitempty" db:"external_source"`
	ExternalData   json.RawMessage `json:"external_data,omitempty" db:"external_data"`
	LastSyncedAt   *time.Time      `json:"last_synced_at,omitempty" db:"last_synced_at"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// FullName returns the member's display name as "first last".
func (m *InternalMember) FullName() string {
	return m.FirstName + " " + m.LastName
}

// ExternalLink is the set of fields the save path writes onto a member once a
// match is fully verified. ExternalData is an opaque snapshot of the provider
// record kept for audit.
type ExternalLink struct {
	ExternalID     string          `json:"external_id"`
	ExternalSource string          `json:"external_source"`
	ExternalData   json.RawMessage `json:"external_data"`
}
