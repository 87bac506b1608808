package matching

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChefStevePopp/cheflife-sync/pkg/models"
)

func newTestEngine() *Engine {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return NewEngine(logger, DefaultEngineConfig())
}

func member(id, first, last string) models.InternalMember {
	return models.InternalMember{
		ID:             id,
		OrganizationID: "org-1",
		FirstName:      first,
		LastName:       last,
		IsActive:       true,
	}
}

func strPtr(s string) *string {
	return &s
}

func TestBuildMatchesExactName(t *testing.T) {
	engine := newTestEngine()

	m := member("m-1", "Marcus", "Chen")
	m.Email = strPtr("marcus.chen@x.com")
	users := []models.ExternalUser{
		{ID: 7, FirstName: "Marcus", LastName: "Chen"},
	}

	preview := engine.BuildMatches(context.Background(), []models.InternalMember{m}, users)

	require.Len(t, preview.Candidates, 1)
	c := preview.Candidates[0]
	require.NotNil(t, c.MatchedExternalUser)
	assert.Equal(t, models.MatchTypeExact, c.MatchType)
	assert.Equal(t, 95, c.Confidence)
	assert.Equal(t, 7, c.MatchedExternalUser.ID)
	assert.Equal(t, models.Verification{}, c.Verified)
	assert.Empty(t, preview.UnmatchedExternalUsers)
}

func TestBuildMatchesExactEmail(t *testing.T) {
	engine := newTestEngine()

	m := member("m-1", "Margaret", "Chen")
	m.Email = strPtr("Maggie.Chen@x.com")
	users := []models.ExternalUser{
		{ID: 7, FirstName: "Maggie", LastName: "Cheng", Email: strPtr("maggie.chen@x.com")},
	}

	preview := engine.BuildMatches(context.Background(), []models.InternalMember{m}, users)

	require.Len(t, preview.Candidates, 1)
	c := preview.Candidates[0]
	assert.Equal(t, models.MatchTypeExact, c.MatchType)
	assert.Equal(t, 90, c.Confidence)
}

func TestBuildMatchesFuzzyContainment(t *testing.T) {
	engine := newTestEngine()

	m := member("m-1", "Steve", "Popp")
	users := []models.ExternalUser{
		{ID: 3, FirstName: "Chef Steve", LastName: "Popp"},
	}

	preview := engine.BuildMatches(context.Background(), []models.InternalMember{m}, users)

	require.Len(t, preview.Candidates, 1)
	c := preview.Candidates[0]
	require.NotNil(t, c.MatchedExternalUser)
	// first name containment scores 75, last name exact scores 100:
	// 0.4*75 + 0.6*100 = 90
	assert.Equal(t, models.MatchTypeSuggested, c.MatchType)
	assert.Equal(t, 90, c.Confidence)
}

func TestBuildMatchesPreviouslyLinked(t *testing.T) {
	engine := newTestEngine()

	m := member("m-1", "Dana", "Reyes")
	m.ExternalID = strPtr("42")
	users := []models.ExternalUser{
		{ID: 41, FirstName: "Dana", LastName: "Reyes"},
		{ID: 42, FirstName: "D", LastName: "R"},
	}

	preview := engine.BuildMatches(context.Background(), []models.InternalMember{m}, users)

	require.Len(t, preview.Candidates, 1)
	c := preview.Candidates[0]
	require.NotNil(t, c.MatchedExternalUser)
	// the stored link wins over the better name match
	assert.Equal(t, models.MatchTypeLinked, c.MatchType)
	assert.Equal(t, 100, c.Confidence)
	assert.Equal(t, 42, c.MatchedExternalUser.ID)
	assert.Equal(t, models.AllVerified(), c.Verified)

	require.Len(t, preview.UnmatchedExternalUsers, 1)
	assert.Equal(t, 41, preview.UnmatchedExternalUsers[0].ID)
}

func TestBuildMatchesUnmatched(t *testing.T) {
	engine := newTestEngine()

	m := member("m-1", "Bob", "Zed")
	users := []models.ExternalUser{
		{ID: 9, FirstName: "Ximena", LastName: "Quill"},
	}

	preview := engine.BuildMatches(context.Background(), []models.InternalMember{m}, users)

	require.Len(t, preview.Candidates, 1)
	c := preview.Candidates[0]
	assert.Equal(t, models.MatchTypeUnmatched, c.MatchType)
	assert.Nil(t, c.MatchedExternalUser)
	assert.Equal(t, 0, c.Confidence)

	// the pool entry stays available
	require.Len(t, preview.UnmatchedExternalUsers, 1)
	assert.Equal(t, 9, preview.UnmatchedExternalUsers[0].ID)
}

func TestBuildMatchesDuplicateNamesClaimInInputOrder(t *testing.T) {
	engine := newTestEngine()

	members := []models.InternalMember{
		member("m-1", "Alex", "Smith"),
		member("m-2", "Alex", "Smith"),
	}
	users := []models.ExternalUser{
		{ID: 5, FirstName: "Alex", LastName: "Smith"},
	}

	preview := engine.BuildMatches(context.Background(), members, users)

	require.Len(t, preview.Candidates, 2)
	first, second := preview.Candidates[0], preview.Candidates[1]

	assert.Equal(t, models.MatchTypeExact, first.MatchType)
	require.NotNil(t, first.MatchedExternalUser)
	assert.Equal(t, 5, first.MatchedExternalUser.ID)

	// the pool is exhausted, so the second Alex Smith has nothing to claim
	assert.Equal(t, models.MatchTypeUnmatched, second.MatchType)
	assert.Nil(t, second.MatchedExternalUser)
}

func TestBuildMatchesNeverClaimsAUserTwice(t *testing.T) {
	engine := newTestEngine()

	members := []models.InternalMember{
		member("m-1", "Alex", "Smith"),
		member("m-2", "Alexa", "Smith"),
		member("m-3", "Alex", "Smyth"),
		member("m-4", "Marcus", "Chen"),
	}
	users := []models.ExternalUser{
		{ID: 1, FirstName: "Alex", LastName: "Smith"},
		{ID: 2, FirstName: "Marcus", LastName: "Chen"},
	}

	preview := engine.BuildMatches(context.Background(), members, users)

	seen := map[int]int{}
	for _, c := range preview.Candidates {
		if c.MatchedExternalUser != nil {
			seen[c.MatchedExternalUser.ID]++
		}
	}
	for id, count := range seen {
		assert.Equal(t, 1, count, "external user %d claimed more than once", id)
	}

	// claimed + unclaimed must account for every input user
	assert.Equal(t, len(users), len(seen)+len(preview.UnmatchedExternalUsers))
}

func TestBuildMatchesIsDeterministic(t *testing.T) {
	engine := newTestEngine()

	members := []models.InternalMember{
		member("m-1", "Alex", "Smith"),
		member("m-2", "Steve", "Popp"),
		member("m-3", "Bob", "Zed"),
	}
	users := []models.ExternalUser{
		{ID: 1, FirstName: "Chef Steve", LastName: "Popp"},
		{ID: 2, FirstName: "Alex", LastName: "Smith"},
		{ID: 3, FirstName: "Ximena", LastName: "Quill"},
	}

	first := engine.BuildMatches(context.Background(), members, users)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, engine.BuildMatches(context.Background(), members, users))
	}
}

func TestBuildMatchesFuzzyTieResolvesToPoolOrder(t *testing.T) {
	engine := newTestEngine()

	m := member("m-1", "Steve", "Popp")
	users := []models.ExternalUser{
		{ID: 1, FirstName: "Chef Steve", LastName: "Popp"},
		{ID: 2, FirstName: "Steve B", LastName: "Popp"},
	}

	preview := engine.BuildMatches(context.Background(), []models.InternalMember{m}, users)

	c := preview.Candidates[0]
	require.NotNil(t, c.MatchedExternalUser)
	// both candidates score 0.4*75 + 0.6*100; the first maximum wins
	assert.Equal(t, 1, c.MatchedExternalUser.ID)
}
