// Package member handles team member persistence
package member

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/ChefStevePopp/cheflife-sync/pkg/database"
	"github.com/ChefStevePopp/cheflife-sync/pkg/models"
	"github.com/ChefStevePopp/cheflife-sync/pkg/tracing"
)

const tableName = "team_members"

var columns = []string{
	"id", "organization_id", "first_name", "last_name", "punch_id", "email", "phone",
	"is_active", "external_id", "external_source", "external_data", "last_synced_at",
	"created_at", "updated_at",
}

// Repository handles team member persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new team member repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// List returns an organization's team members ordered by id
func (r *Repository) List(ctx context.Context, organizationID string, activeOnly bool) ([]models.InternalMember, error) {
	ctx, span := tracing.StartSpan(ctx, "member.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	where := []string{
		sb.Equal("organization_id", organizationID),
	}
	if activeOnly {
		where = append(where, sb.Equal("is_active", true))
	}
	sb.Where(where...)
	sb.OrderBy("id")

	query, args := sb.Build()
	var members []models.InternalMember
	if err := r.db.SelectContext(ctx, &members, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"organization_id": organizationID}).Error("Failed to list team members")
		return nil, httperror.NewHTTPError(http.StatusBadGateway, "failed to list team members")
	}
	return members, nil
}

// SaveLink writes a confirmed external link onto a member record. The update
// is conditional on last_synced_at still holding the value the member was read
// with; a concurrent save makes the update match zero rows.
func (r *Repository) SaveLink(ctx context.Context, member *models.InternalMember, link models.ExternalLink) error {
	ctx, span := tracing.StartSpan(ctx, "member.Repository.SaveLink")
	defer span.End()

	now := time.Now().UTC()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(tableName)
	ub.Set(
		ub.Assign("external_id", link.ExternalID),
		ub.Assign("external_source", link.ExternalSource),
		ub.Assign("external_data", []byte(link.ExternalData)),
		ub.Assign("last_synced_at", now),
		ub.Assign("updated_at", now),
	)
	ub.Where(
		ub.Equal("id", member.ID),
		ub.Equal("organization_id", member.OrganizationID),
		fmt.Sprintf("last_synced_at IS NOT DISTINCT FROM %s", ub.Var(member.LastSyncedAt)),
	)

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"organization_id": member.OrganizationID, "member_id": member.ID}).Error("Failed to save member link")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to save member link")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to save member link")
	}
	if affected == 0 {
		return httperror.NewHTTPErrorf(http.StatusConflict, "member %s was modified by a concurrent save", member.ID)
	}

	member.ExternalID = &link.ExternalID
	member.ExternalSource = &link.ExternalSource
	member.ExternalData = link.ExternalData
	member.LastSyncedAt = &now
	member.UpdatedAt = now

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"organization_id": member.OrganizationID,
		"member_id":       member.ID,
		"external_id":     link.ExternalID,
		"external_source": link.ExternalSource,
	}).Debug("Saved member link")

	return nil
}
