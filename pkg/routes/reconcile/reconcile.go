package reconcile

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/ChefStevePopp/cheflife-sync/pkg/context"
	"github.com/ChefStevePopp/cheflife-sync/pkg/matching"
	"github.com/ChefStevePopp/cheflife-sync/pkg/models"
	"github.com/ChefStevePopp/cheflife-sync/pkg/reconcile"
	"github.com/ChefStevePopp/cheflife-sync/pkg/utils"
)

// Register registers reconciliation routes
func Register(g *echo.Group) {
	g.POST("/preview", PreviewMatches)
	g.POST("/verify", ToggleVerification)
	g.POST("/assign", ManualAssign)
	g.POST("/unlink", Unlink)
	g.POST("/save", SaveMatches)
	g.GET("/wages/:external_user_id", GetWages)
	g.GET("/roles", ListRoles)
}

// SaveRequest is the request body for persisting a verified snapshot
type SaveRequest struct {
	Candidates []models.MatchCandidate `json:"candidates" validate:"required"`
}

// VerifyRequest flips one verification step on one candidate of a snapshot
type VerifyRequest struct {
	Snapshot       matching.Snapshot       `json:"snapshot"`
	CandidateIndex int                     `json:"candidate_index"`
	Step           models.VerificationStep `json:"step" validate:"required"`
}

// AssignRequest pairs an unmatched candidate with a pooled external user
type AssignRequest struct {
	Snapshot       matching.Snapshot `json:"snapshot"`
	CandidateIndex int               `json:"candidate_index"`
	ExternalUserID int               `json:"external_user_id" validate:"required"`
}

// UnlinkRequest rejects a candidate's pairing
type UnlinkRequest struct {
	Snapshot       matching.Snapshot `json:"snapshot"`
	CandidateIndex int               `json:"candidate_index"`
}

// PreviewMatches builds a fresh match preview for the caller's organization
func PreviewMatches(c echo.Context) error {
	ctx := c.Request().Context()
	organizationID := context.GetOrganizationID(ctx)
	if organizationID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "X-Organization-ID header is required")
	}

	ctx, svc, err := ectoinject.GetContext[*reconcile.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	preview, err := svc.PreviewMatch(ctx, organizationID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, preview)
}

// ToggleVerification applies one verification toggle and returns the updated
// snapshot. The server holds no session state; the caller threads the snapshot
// through each call.
func ToggleVerification(c echo.Context) error {
	req, err := utils.BindRequest[VerifyRequest](c)
	if err != nil {
		return err
	}

	out, err := req.Snapshot.ToggleVerification(req.CandidateIndex, req.Step)
	if err != nil {
		return httperror.WrapError(http.StatusConflict, err)
	}

	return c.JSON(http.StatusOK, out)
}

// ManualAssign pairs an unmatched candidate with an external user from the pool
func ManualAssign(c echo.Context) error {
	req, err := utils.BindRequest[AssignRequest](c)
	if err != nil {
		return err
	}

	out, err := req.Snapshot.ManualAssign(req.CandidateIndex, req.ExternalUserID)
	if err != nil {
		return httperror.WrapError(http.StatusConflict, err)
	}

	return c.JSON(http.StatusOK, out)
}

// Unlink resets a candidate to unmatched and returns its user to the pool
func Unlink(c echo.Context) error {
	req, err := utils.BindRequest[UnlinkRequest](c)
	if err != nil {
		return err
	}

	out, err := req.Snapshot.Unlink(req.CandidateIndex)
	if err != nil {
		return httperror.WrapError(http.StatusConflict, err)
	}

	return c.JSON(http.StatusOK, out)
}

// SaveMatches persists links for the fully verified candidates in the snapshot
func SaveMatches(c echo.Context) error {
	ctx := c.Request().Context()
	organizationID := context.GetOrganizationID(ctx)
	if organizationID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "X-Organization-ID header is required")
	}

	req, err := utils.BindRequest[SaveRequest](c)
	if err != nil {
		return err
	}

	ctx, svc, err := ectoinject.GetContext[*reconcile.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	result, err := svc.SaveMatches(ctx, organizationID, req.Candidates)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// GetWages returns wage evidence for one provider user
func GetWages(c echo.Context) error {
	ctx := c.Request().Context()

	externalUserID, err := strconv.Atoi(c.Param("external_user_id"))
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "external_user_id must be an integer")
	}

	ctx, svc, err := ectoinject.GetContext[*reconcile.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	snapshot, err := svc.GetWages(ctx, externalUserID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, snapshot)
}

// ListRoles returns the provider's role catalog for display
func ListRoles(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, svc, err := ectoinject.GetContext[*reconcile.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	roles, err := svc.ListRoles(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, roles)
}
