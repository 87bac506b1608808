// Package events handles event emission for member link lifecycle changes
package events

import (
	"context"
	"strconv"

	"github.com/Gobusters/ectologger"

	"github.com/ChefStevePopp/cheflife-sync/pkg/kafka"
	"github.com/ChefStevePopp/cheflife-sync/pkg/models"
	"github.com/ChefStevePopp/cheflife-sync/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Publisher publishes link events. Implemented by kafka.Producer.
type Publisher interface {
	PublishLinkEvents(ctx context.Context, events []*kafka.LinkEvent) error
}

// Emitter handles event emission for reconciliation outcomes
type Emitter struct {
	producer Publisher
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer Publisher, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitMemberLinkedBatch emits member.linked events for a batch of persisted links
func (e *Emitter) EmitMemberLinkedBatch(ctx context.Context, candidates []*models.MatchCandidate) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitMemberLinkedBatch")
	defer span.End()

	events := make([]*kafka.LinkEvent, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.MatchedExternalUser == nil {
			continue
		}
		events = append(events, &kafka.LinkEvent{
			EventType:      "member.linked",
			OrganizationID: candidate.Member.OrganizationID,
			MemberID:       candidate.Member.ID,
			ExternalID:     strconv.Itoa(candidate.MatchedExternalUser.ID),
			ExternalSource: deref(candidate.Member.ExternalSource),
			MatchType:      string(candidate.MatchType),
			Confidence:     candidate.Confidence,
			Data:           candidate.Member.ExternalData,
		})
	}

	if err := e.producer.PublishLinkEvents(ctx, events); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit member.linked batch")
		return err
	}

	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
