package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChefStevePopp/cheflife-sync/pkg/models"
)

func testSnapshot() Snapshot {
	return NewSnapshot(&models.MatchPreview{
		Candidates: []models.MatchCandidate{
			{
				Member:     member("m-1", "Bob", "Zed"),
				MatchType:  models.MatchTypeUnmatched,
				Confidence: 0,
			},
			{
				Member:              member("m-2", "Alex", "Smith"),
				MatchedExternalUser: &models.ExternalUser{ID: 5, FirstName: "Alex", LastName: "Smith"},
				MatchType:           models.MatchTypeExact,
				Confidence:          95,
			},
		},
		UnmatchedExternalUsers: []models.ExternalUser{
			{ID: 8, FirstName: "Ximena", LastName: "Quill"},
			{ID: 9, FirstName: "Dana", LastName: "Reyes"},
		},
	})
}

func TestToggleVerification(t *testing.T) {
	s := testSnapshot()

	out, err := s.ToggleVerification(1, models.VerificationStepIdentity)
	require.NoError(t, err)
	assert.True(t, out.Candidates[1].Verified.Identity)
	assert.False(t, out.Candidates[1].Verified.Roles)
	assert.False(t, out.Candidates[1].Verified.Wages)

	// the input snapshot is untouched
	assert.False(t, s.Candidates[1].Verified.Identity)

	// toggling twice restores the original state
	back, err := out.ToggleVerification(1, models.VerificationStepIdentity)
	require.NoError(t, err)
	assert.Equal(t, s.Candidates[1].Verified, back.Candidates[1].Verified)
}

func TestToggleVerificationContractErrors(t *testing.T) {
	s := testSnapshot()

	_, err := s.ToggleVerification(-1, models.VerificationStepIdentity)
	assert.ErrorIs(t, err, ErrCandidateIndex)

	_, err = s.ToggleVerification(99, models.VerificationStepIdentity)
	assert.ErrorIs(t, err, ErrCandidateIndex)

	_, err = s.ToggleVerification(0, models.VerificationStep("salary"))
	assert.ErrorIs(t, err, ErrUnknownStep)
}

func TestManualAssign(t *testing.T) {
	s := testSnapshot()

	out, err := s.ManualAssign(0, 9)
	require.NoError(t, err)

	c := out.Candidates[0]
	require.NotNil(t, c.MatchedExternalUser)
	assert.Equal(t, 9, c.MatchedExternalUser.ID)
	assert.Equal(t, models.MatchTypeManual, c.MatchType)
	assert.Equal(t, 100, c.Confidence)
	// identity is presumed confirmed by the act of selection
	assert.Equal(t, models.Verification{Identity: true}, c.Verified)

	// user 9 left the pool
	require.Len(t, out.Pool, 1)
	assert.Equal(t, 8, out.Pool[0].ID)

	// the input snapshot is untouched
	assert.Len(t, s.Pool, 2)
	assert.Nil(t, s.Candidates[0].MatchedExternalUser)
}

func TestManualAssignContractErrors(t *testing.T) {
	s := testSnapshot()

	// candidate 1 already has a match
	_, err := s.ManualAssign(1, 9)
	assert.ErrorIs(t, err, ErrNotUnmatched)

	// user 5 is claimed, not in the pool
	_, err = s.ManualAssign(0, 5)
	assert.ErrorIs(t, err, ErrNotInPool)

	_, err = s.ManualAssign(42, 9)
	assert.ErrorIs(t, err, ErrCandidateIndex)
}

func TestUnlink(t *testing.T) {
	s := testSnapshot()

	out, err := s.Unlink(1)
	require.NoError(t, err)

	c := out.Candidates[1]
	assert.Nil(t, c.MatchedExternalUser)
	assert.Equal(t, models.MatchTypeUnmatched, c.MatchType)
	assert.Equal(t, 0, c.Confidence)
	assert.Equal(t, models.Verification{}, c.Verified)

	// user 5 returned to the pool
	ids := poolIDs(out.Pool)
	assert.ElementsMatch(t, []int{5, 8, 9}, ids)
}

func TestUnlinkContractErrors(t *testing.T) {
	s := testSnapshot()

	_, err := s.Unlink(0)
	assert.ErrorIs(t, err, ErrAlreadyUnmatched)

	_, err = s.Unlink(7)
	assert.ErrorIs(t, err, ErrCandidateIndex)
}

func TestUnlinkIsInverseOfManualAssign(t *testing.T) {
	s := testSnapshot()

	assigned, err := s.ManualAssign(0, 9)
	require.NoError(t, err)

	restored, err := assigned.Unlink(0)
	require.NoError(t, err)

	assert.Equal(t, s.Candidates[0], restored.Candidates[0])
	assert.ElementsMatch(t, poolIDs(s.Pool), poolIDs(restored.Pool))
}

func TestIsFullyVerified(t *testing.T) {
	c := &models.MatchCandidate{}
	assert.False(t, IsFullyVerified(c))
	assert.Equal(t, 0, VerifiedStepCount(c))

	c.Verified = models.Verification{Identity: true, Roles: true}
	assert.False(t, IsFullyVerified(c))
	assert.Equal(t, 2, VerifiedStepCount(c))

	c.Verified = models.AllVerified()
	assert.True(t, IsFullyVerified(c))
	assert.Equal(t, 3, VerifiedStepCount(c))
}

func poolIDs(pool []models.ExternalUser) []int {
	ids := make([]int, 0, len(pool))
	for _, u := range pool {
		ids = append(ids, u.ID)
	}
	return ids
}
