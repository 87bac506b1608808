// Package reconcile orchestrates match previews and link persistence.
package reconcile

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/ChefStevePopp/cheflife-sync/pkg/matching"
	"github.com/ChefStevePopp/cheflife-sync/pkg/metrics"
	"github.com/ChefStevePopp/cheflife-sync/pkg/models"
	"github.com/ChefStevePopp/cheflife-sync/pkg/redis"
	"github.com/ChefStevePopp/cheflife-sync/pkg/tracing"
)

// DefaultSaveLockTTL bounds how long a save batch may hold the per-org lock
const DefaultSaveLockTTL = 30 * time.Second

// MemberStore reads and links team members. Implemented by member.Repository.
type MemberStore interface {
	List(ctx context.Context, organizationID string, activeOnly bool) ([]models.InternalMember, error)
	SaveLink(ctx context.Context, member *models.InternalMember, link models.ExternalLink) error
}

// ProviderAPI reads records from the workforce provider. Implemented by provider.Client.
type ProviderAPI interface {
	Name() string
	ListActiveUsers(ctx context.Context) ([]models.ExternalUser, error)
	ListRoles(ctx context.Context) ([]models.ProviderRole, error)
}

// WageSource returns wage snapshots. Implemented by wages.Fetcher.
type WageSource interface {
	Fetch(ctx context.Context, userID int) (*models.WageSnapshot, error)
	Prefetch(ctx context.Context, userIDs []int)
}

// LinkEmitter publishes link audit events. Implemented by events.Emitter.
type LinkEmitter interface {
	EmitMemberLinkedBatch(ctx context.Context, candidates []*models.MatchCandidate) error
}

// Service runs reconciliation previews and persists confirmed links
type Service struct {
	members  MemberStore
	provider ProviderAPI
	engine   *matching.Engine
	wages    WageSource
	emitter  LinkEmitter
	locker   *redis.Locker
	logger   ectologger.Logger
	lockTTL  time.Duration
}

// NewService creates a new reconciliation service. locker and emitter may be
// nil; locking and event emission are skipped when absent.
func NewService(
	members MemberStore,
	provider ProviderAPI,
	engine *matching.Engine,
	wageSource WageSource,
	emitter LinkEmitter,
	locker *redis.Locker,
	logger ectologger.Logger,
) *Service {
	return &Service{
		members:  members,
		provider: provider,
		engine:   engine,
		wages:    wageSource,
		emitter:  emitter,
		locker:   locker,
		logger:   logger,
		lockTTL:  DefaultSaveLockTTL,
	}
}

// PreviewMatch fetches both record sets and builds a fresh match preview.
// Either fetch failing aborts the preview; no partial candidate list is returned.
func (s *Service) PreviewMatch(ctx context.Context, organizationID string) (*models.MatchPreview, error) {
	ctx, span := tracing.StartSpan(ctx, "reconcile.Service.PreviewMatch")
	defer span.End()

	start := time.Now()

	var (
		wg         sync.WaitGroup
		members    []models.InternalMember
		externals  []models.ExternalUser
		membersErr error
		usersErr   error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		members, membersErr = s.members.List(ctx, organizationID, true)
	}()
	go func() {
		defer wg.Done()
		externals, usersErr = s.provider.ListActiveUsers(ctx)
	}()
	wg.Wait()

	if membersErr != nil {
		return nil, membersErr
	}
	if usersErr != nil {
		return nil, usersErr
	}

	// Duplicate names among members are claimed in input order, so the input
	// order must be stable across runs.
	sort.Slice(members, func(i, j int) bool {
		return members[i].ID < members[j].ID
	})

	preview := s.engine.BuildMatches(ctx, members, externals)

	metrics.PreviewsTotal.WithLabelValues(organizationID).Inc()
	metrics.PreviewDuration.WithLabelValues(organizationID).Observe(time.Since(start).Seconds())
	for i := range preview.Candidates {
		metrics.MatchCandidatesTotal.WithLabelValues(organizationID, string(preview.Candidates[i].MatchType)).Inc()
	}

	// Warm the wage cache for the proposed pairings; wage evidence is the
	// operator's next request after a preview.
	matchedIDs := make([]int, 0, len(preview.Candidates))
	for i := range preview.Candidates {
		if u := preview.Candidates[i].MatchedExternalUser; u != nil {
			matchedIDs = append(matchedIDs, u.ID)
		}
	}
	if len(matchedIDs) > 0 {
		go s.wages.Prefetch(context.WithoutCancel(ctx), matchedIDs)
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"organization_id":  organizationID,
		"member_count":     len(members),
		"external_count":   len(externals),
		"unmatched_extern": len(preview.UnmatchedExternalUsers),
	}).Info("Built match preview")

	return preview, nil
}

// SaveMatches persists links for every fully verified, not-yet-linked candidate.
// The first write failure aborts the batch; candidates not yet attempted are
// reported as aborted. Successfully saved candidates are promoted to linked in
// the returned snapshot, so resubmitting it is a no-op for them.
func (s *Service) SaveMatches(ctx context.Context, organizationID string, candidates []models.MatchCandidate) (*models.SaveResult, error) {
	ctx, span := tracing.StartSpan(ctx, "reconcile.Service.SaveMatches")
	defer span.End()

	if s.locker != nil {
		lock, err := s.locker.Acquire(ctx, "reconcile:save:"+organizationID, s.lockTTL)
		if err != nil {
			if err == redis.ErrLockNotAcquired {
				return nil, httperror.NewHTTPError(http.StatusConflict, "a save is already in progress for this organization")
			}
			return nil, err
		}
		defer func() {
			if err := lock.Release(ctx); err != nil {
				s.logger.WithContext(ctx).WithError(err).Warn("Failed to release save lock")
			}
		}()
	}

	result := &models.SaveResult{
		Failures:   make([]models.SaveFailure, 0),
		Candidates: candidates,
	}

	var saved []*models.MatchCandidate
	aborted := false

	for i := range candidates {
		c := &candidates[i]
		if !s.eligible(c) {
			continue
		}

		if aborted {
			result.Failures = append(result.Failures, models.SaveFailure{
				CandidateIndex: i,
				Error:          "aborted: an earlier save in the batch failed",
			})
			metrics.LinksSavedTotal.WithLabelValues(organizationID, "aborted").Inc()
			continue
		}

		link, err := buildLink(c.MatchedExternalUser, s.provider.Name())
		if err == nil {
			err = s.members.SaveLink(ctx, &c.Member, link)
		}
		if err != nil {
			result.Failures = append(result.Failures, models.SaveFailure{
				CandidateIndex: i,
				Error:          err.Error(),
			})
			metrics.LinksSavedTotal.WithLabelValues(organizationID, "failed").Inc()
			s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"organization_id": organizationID,
				"member_id":       c.Member.ID,
			}).Error("Failed to persist member link, aborting batch")
			aborted = true
			continue
		}

		c.MatchType = models.MatchTypeLinked
		c.Confidence = 100
		result.SavedCount++
		saved = append(saved, c)
		metrics.LinksSavedTotal.WithLabelValues(organizationID, "saved").Inc()
	}

	// Events are an audit trail; a publish failure never rolls back saved links.
	if s.emitter != nil && len(saved) > 0 {
		if err := s.emitter.EmitMemberLinkedBatch(ctx, saved); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to emit link events for saved batch")
		}
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"organization_id": organizationID,
		"saved_count":     result.SavedCount,
		"failure_count":   len(result.Failures),
	}).Info("Save batch completed")

	return result, nil
}

// GetWages returns the wage snapshot for one provider user
func (s *Service) GetWages(ctx context.Context, externalUserID int) (*models.WageSnapshot, error) {
	ctx, span := tracing.StartSpan(ctx, "reconcile.Service.GetWages")
	defer span.End()

	return s.wages.Fetch(ctx, externalUserID)
}

// ListRoles returns the provider's role catalog
func (s *Service) ListRoles(ctx context.Context) ([]models.ProviderRole, error) {
	ctx, span := tracing.StartSpan(ctx, "reconcile.Service.ListRoles")
	defer span.End()

	return s.provider.ListRoles(ctx)
}

// eligible reports whether a candidate should be persisted: fully verified by
// the operator and not already linked.
func (s *Service) eligible(c *models.MatchCandidate) bool {
	if c.MatchType == models.MatchTypeLinked || c.MatchType == models.MatchTypeUnmatched {
		return false
	}
	if c.MatchedExternalUser == nil {
		return false
	}
	return matching.IsFullyVerified(c)
}

func buildLink(user *models.ExternalUser, source string) (models.ExternalLink, error) {
	data, err := json.Marshal(user)
	if err != nil {
		return models.ExternalLink{}, err
	}
	return models.ExternalLink{
		ExternalID:     strconv.Itoa(user.ID),
		ExternalSource: source,
		ExternalData:   data,
	}, nil
}
