package models

// ExternalUser is a read-only snapshot of one user record from the workforce
// provider, taken at the start of a reconciliation run.
type ExternalUser struct {
	ID          int     `json:"id"`
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	Email       *string `json:"email,omitempty"`
	MobilePhone *string `json:"mobile_phone,omitempty"`
	Type        string  `json:"type"`
}

// FullName returns the external user's display name as "first last".
func (u *ExternalUser) FullName() string {
	return u.FirstName + " " + u.LastName
}

// WageType is the provider's wage classification.
type WageType string

const (
	WageTypeHourly WageType = "hourly"
	WageTypeSalary WageType = "salary"
)

// WageRecord is one wage entry for an external user. Amounts are always in
// cents. A nil RoleID means the wage applies to all of the user's roles. Wage
// data is verification evidence only and is never written back.
type WageRecord struct {
	WageCents     int      `json:"wage_cents"`
	WageType      WageType `json:"wage_type"`
	RoleID        *int     `json:"role_id,omitempty"`
	EffectiveDate string   `json:"effective_date"`
}

// WageSnapshot holds the wages currently in effect plus any scheduled future
// wages for one external user.
type WageSnapshot struct {
	CurrentWages  []WageRecord `json:"current_wages"`
	UpcomingWages []WageRecord `json:"upcoming_wages"`
}

// ProviderRole is a role definition from the provider, used only to render
// role names next to wage records.
type ProviderRole struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
