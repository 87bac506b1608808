package models

// MatchType classifies how a candidate pairing was produced.
type MatchType string

const (
	MatchTypeLinked    MatchType = "linked"    // previously confirmed link found again
	MatchTypeExact     MatchType = "exact"     // exact name or email match
	MatchTypeSuggested MatchType = "suggested" // fuzzy name match above threshold
	MatchTypeManual    MatchType = "manual"    // operator assigned by hand
	MatchTypeUnmatched MatchType = "unmatched" // no counterpart found
)

// VerificationStep identifies one step of the confirmation protocol.
type VerificationStep string

const (
	VerificationStepIdentity VerificationStep = "identity"
	VerificationStepRoles    VerificationStep = "roles"
	VerificationStepWages    VerificationStep = "wages"
)

// Verification tracks the operator's three-step attestation for a candidate.
// Steps are toggled explicitly by the operator, never inferred from data.
type Verification struct {
	Identity bool `json:"identity"`
	Roles    bool `json:"roles"`
	Wages    bool `json:"wages"`
}

// StepCount returns how many steps have been confirmed (0-3).
func (v Verification) StepCount() int {
	count := 0
	if v.Identity {
		count++
	}
	if v.Roles {
		count++
	}
	if v.Wages {
		count++
	}
	return count
}

// IsComplete reports whether all three steps have been confirmed.
func (v Verification) IsComplete() bool {
	return v.Identity && v.Roles && v.Wages
}

// AllVerified is the preset for candidates whose link was confirmed in a
// prior run.
func AllVerified() Verification {
	return Verification{Identity: true, Roles: true, Wages: true}
}

// MatchCandidate pairs one internal member with at most one external user for
// the duration of a reconciliation run. Candidates live in memory only; the
// save path converts fully verified ones into permanent member links.
type MatchCandidate struct {
	Member              InternalMember `json:"member"`
	MatchedExternalUser *ExternalUser  `json:"matched_external_user"`
	MatchType           MatchType      `json:"match_type"`
	Confidence          int            `json:"confidence"`
	Verified            Verification   `json:"verified"`
}

// MatchPreview is the result of one matching pass: one candidate per internal
// member, in input order, plus the external users nothing claimed.
type MatchPreview struct {
	Candidates             []MatchCandidate `json:"candidates"`
	UnmatchedExternalUsers []ExternalUser   `json:"unmatched_external_users"`
}

// SaveFailure reports one candidate the save pass could not persist.
type SaveFailure struct {
	CandidateIndex int    `json:"candidate_index"`
	Error          string `json:"error"`
}

// SaveResult reports the outcome of a save pass. Candidates is the updated
// snapshot: persisted entries are promoted to MatchTypeLinked so a repeated
// save is a no-op for them.
type SaveResult struct {
	SavedCount int              `json:"saved_count"`
	Failures   []SaveFailure    `json:"failures"`
	Candidates []MatchCandidate `json:"candidates"`
}
