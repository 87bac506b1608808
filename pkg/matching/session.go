package matching

import (
	"errors"

	"github.com/ChefStevePopp/cheflife-sync/pkg/models"
)

var (
	// ErrCandidateIndex is returned when a candidate index is out of range
	ErrCandidateIndex = errors.New("candidate index out of range")
	// ErrNotUnmatched is returned when manually assigning a candidate that already has a match
	ErrNotUnmatched = errors.New("candidate is not unmatched")
	// ErrAlreadyUnmatched is returned when unlinking a candidate that has no match
	ErrAlreadyUnmatched = errors.New("candidate is already unmatched")
	// ErrNotInPool is returned when manually assigning an external user that is not available
	ErrNotInPool = errors.New("external user is not in the unmatched pool")
	// ErrUnknownStep is returned for a verification step outside identity/roles/wages
	ErrUnknownStep = errors.New("unknown verification step")
)

// Snapshot is the in-memory state of one reconciliation session: the
// candidates produced by a preview plus the pool of unclaimed external users.
// Every operation returns an updated copy and leaves the receiver untouched,
// so the caller owns the current state and threads it through.
type Snapshot struct {
	Candidates []models.MatchCandidate `json:"candidates"`
	Pool       []models.ExternalUser   `json:"pool"`
}

// NewSnapshot builds a session snapshot from a preview result.
func NewSnapshot(preview *models.MatchPreview) Snapshot {
	return Snapshot{
		Candidates: preview.Candidates,
		Pool:       preview.UnmatchedExternalUsers,
	}
}

// clone deep-copies the slices so mutations never alias the input snapshot.
func (s Snapshot) clone() Snapshot {
	out := Snapshot{
		Candidates: make([]models.MatchCandidate, len(s.Candidates)),
		Pool:       make([]models.ExternalUser, len(s.Pool)),
	}
	copy(out.Candidates, s.Candidates)
	copy(out.Pool, s.Pool)
	return out
}

// ToggleVerification flips exactly one verification step on one candidate.
// Toggling twice restores the original state. Verification is attestation:
// steps only change by operator action, never from fetched data.
func (s Snapshot) ToggleVerification(candidateIndex int, step models.VerificationStep) (Snapshot, error) {
	if candidateIndex < 0 || candidateIndex >= len(s.Candidates) {
		return s, ErrCandidateIndex
	}

	out := s.clone()
	v := &out.Candidates[candidateIndex].Verified
	switch step {
	case models.VerificationStepIdentity:
		v.Identity = !v.Identity
	case models.VerificationStepRoles:
		v.Roles = !v.Roles
	case models.VerificationStepWages:
		v.Wages = !v.Wages
	default:
		return s, ErrUnknownStep
	}

	return out, nil
}

// ManualAssign pairs an unmatched candidate with an external user from the
// pool. Identity is presumed confirmed by the act of selection; roles and
// wages still require explicit verification.
func (s Snapshot) ManualAssign(candidateIndex int, externalUserID int) (Snapshot, error) {
	if candidateIndex < 0 || candidateIndex >= len(s.Candidates) {
		return s, ErrCandidateIndex
	}
	if s.Candidates[candidateIndex].MatchType != models.MatchTypeUnmatched {
		return s, ErrNotUnmatched
	}

	poolIdx := -1
	for i, u := range s.Pool {
		if u.ID == externalUserID {
			poolIdx = i
			break
		}
	}
	if poolIdx < 0 {
		return s, ErrNotInPool
	}

	out := s.clone()
	user := out.Pool[poolIdx]
	out.Pool = append(out.Pool[:poolIdx:poolIdx], out.Pool[poolIdx+1:]...)

	c := &out.Candidates[candidateIndex]
	c.MatchedExternalUser = &user
	c.MatchType = models.MatchTypeManual
	c.Confidence = 100
	c.Verified = models.Verification{Identity: true}

	return out, nil
}

// Unlink rejects a candidate's pairing, returning its external user to the
// pool and resetting the candidate to unmatched. Permitted on any proposed or
// previously confirmed match; for manual assignments it is the exact inverse
// of ManualAssign.
func (s Snapshot) Unlink(candidateIndex int) (Snapshot, error) {
	if candidateIndex < 0 || candidateIndex >= len(s.Candidates) {
		return s, ErrCandidateIndex
	}
	if s.Candidates[candidateIndex].MatchType == models.MatchTypeUnmatched {
		return s, ErrAlreadyUnmatched
	}

	out := s.clone()
	c := &out.Candidates[candidateIndex]
	if c.MatchedExternalUser != nil {
		out.Pool = append(out.Pool, *c.MatchedExternalUser)
	}
	c.MatchedExternalUser = nil
	c.MatchType = models.MatchTypeUnmatched
	c.Confidence = 0
	c.Verified = models.Verification{}

	return out, nil
}

// IsFullyVerified reports whether all three steps of a candidate have been
// attested.
func IsFullyVerified(c *models.MatchCandidate) bool {
	return c.Verified.IsComplete()
}

// VerifiedStepCount returns how many steps of a candidate have been attested.
func VerifiedStepCount(c *models.MatchCandidate) int {
	return c.Verified.StepCount()
}
