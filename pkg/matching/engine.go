// Package matching implements the employee record matching engine: it pairs
// internal team members with external workforce-provider users, assigning each
// pairing a confidence-scored match type.
package matching

import (
	"context"
	"math"
	"strconv"

	"github.com/Gobusters/ectologger"

	"github.com/ChefStevePopp/cheflife-sync/pkg/models"
	"github.com/ChefStevePopp/cheflife-sync/pkg/normalizers"
	"github.com/ChefStevePopp/cheflife-sync/pkg/tracing"
)

// EngineConfig contains configuration for the match engine
type EngineConfig struct {
	FirstNameWeight  float64 // Weight of first-name similarity in the fuzzy score (default: 0.4)
	LastNameWeight   float64 // Weight of last-name similarity in the fuzzy score (default: 0.6)
	SuggestThreshold float64 // Minimum combined score to suggest a fuzzy match (default: 60)
}

// DefaultEngineConfig returns default engine configuration
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		FirstNameWeight:  0.4,
		LastNameWeight:   0.6,
		SuggestThreshold: 60,
	}
}

// Engine builds match candidates for a reconciliation run. The pass is pure:
// given the same ordered inputs it always produces the same output, and it
// consumes external users from a pool so no user is claimed twice.
type Engine struct {
	logger ectologger.Logger
	scorer *Scorer
	config EngineConfig
}

// NewEngine creates a new match engine
func NewEngine(logger ectologger.Logger, config EngineConfig) *Engine {
	return &Engine{
		logger: logger,
		scorer: NewScorer(),
		config: config,
	}
}

// BuildMatches produces one MatchCandidate per member, in member order, plus
// the external users nothing claimed. Members are matched against the pool
// with strict rule priority; earlier members get first claim on ambiguous
// matches, so callers must order members deterministically.
func (e *Engine) BuildMatches(ctx context.Context, members []models.InternalMember, externalUsers []models.ExternalUser) *models.MatchPreview {
	ctx, span := tracing.StartSpan(ctx, "matching.Engine.BuildMatches")
	defer span.End()

	pool := NewCandidatePool(externalUsers)
	candidates := make([]models.MatchCandidate, 0, len(members))

	for i := range members {
		candidates = append(candidates, e.matchMember(&members[i], pool))
	}

	e.logger.WithContext(ctx).WithFields(map[string]any{
		"member_count":       len(members),
		"external_count":     len(externalUsers),
		"unclaimed_external": pool.Len(),
	}).Debug("Built match candidates")

	return &models.MatchPreview{
		Candidates:             candidates,
		UnmatchedExternalUsers: pool.Remaining(),
	}
}

// matchMember applies the match rules in strict priority order, consuming the
// matched user from the pool. First rule that succeeds wins.
func (e *Engine) matchMember(member *models.InternalMember, pool *CandidatePool) models.MatchCandidate {
	// Rule 1: previously confirmed link. Trusted without re-verification.
	if member.ExternalID != nil && *member.ExternalID != "" {
		i := pool.Find(func(u models.ExternalUser) bool {
			return strconv.Itoa(u.ID) == *member.ExternalID
		})
		if i >= 0 {
			user := pool.Take(i)
			return models.MatchCandidate{
				Member:              *member,
				MatchedExternalUser: &user,
				MatchType:           models.MatchTypeLinked,
				Confidence:          100,
				Verified:            models.AllVerified(),
			}
		}
	}

	// Rule 2: exact normalized full-name match.
	memberName := normalizers.Normalize(member.FullName())
	if memberName != "" {
		i := pool.Find(func(u models.ExternalUser) bool {
			return normalizers.Normalize(u.FullName()) == memberName
		})
		if i >= 0 {
			user := pool.Take(i)
			return models.MatchCandidate{
				Member:              *member,
				MatchedExternalUser: &user,
				MatchType:           models.MatchTypeExact,
				Confidence:          95,
			}
		}
	}

	// Rule 3: exact normalized email match.
	if member.Email != nil && *member.Email != "" {
		memberEmail := normalizers.NormalizeEmail(*member.Email)
		i := pool.Find(func(u models.ExternalUser) bool {
			return u.Email != nil && normalizers.NormalizeEmail(*u.Email) == memberEmail
		})
		if i >= 0 {
			user := pool.Take(i)
			return models.MatchCandidate{
				Member:              *member,
				MatchedExternalUser: &user,
				MatchType:           models.MatchTypeExact,
				Confidence:          90,
			}
		}
	}

	// Rule 4: fuzzy name match over the whole remaining pool. Ties resolve to
	// the first maximum in pool order.
	if bestIdx, bestScore := e.bestFuzzy(member, pool); bestIdx >= 0 && bestScore >= e.config.SuggestThreshold {
		user := pool.Take(bestIdx)
		return models.MatchCandidate{
			Member:              *member,
			MatchedExternalUser: &user,
			MatchType:           models.MatchTypeSuggested,
			Confidence:          int(math.Round(bestScore)),
		}
	}

	// Rule 5: no counterpart.
	return models.MatchCandidate{
		Member:     *member,
		MatchType:  models.MatchTypeUnmatched,
		Confidence: 0,
	}
}

// bestFuzzy scans the remaining pool for the highest combined name score.
func (e *Engine) bestFuzzy(member *models.InternalMember, pool *CandidatePool) (int, float64) {
	bestIdx := -1
	bestScore := 0.0

	for i := 0; i < pool.Len(); i++ {
		u := pool.At(i)
		first := e.scorer.Similarity(member.FirstName, u.FirstName)
		last := e.scorer.Similarity(member.LastName, u.LastName)
		combined := e.scorer.CombinedName(first, last, e.config.FirstNameWeight, e.config.LastNameWeight)
		if combined > bestScore {
			bestScore = combined
			bestIdx = i
		}
	}

	return bestIdx, bestScore
}
