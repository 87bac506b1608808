package reconcile

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChefStevePopp/cheflife-sync/pkg/matching"
	"github.com/ChefStevePopp/cheflife-sync/pkg/models"
)

func postJSON(t *testing.T, handler echo.HandlerFunc, body string) (*httptest.ResponseRecorder, error) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return rec, handler(e.NewContext(req, rec))
}

func sessionBody(t *testing.T, snapshot matching.Snapshot, extra map[string]any) string {
	t.Helper()

	payload := map[string]any{"snapshot": snapshot}
	for k, v := range extra {
		payload[k] = v
	}
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return string(data)
}

func sessionSnapshot() matching.Snapshot {
	return matching.Snapshot{
		Candidates: []models.MatchCandidate{
			{
				Member:    models.InternalMember{ID: "m-1", FirstName: "Bob", LastName: "Zed"},
				MatchType: models.MatchTypeUnmatched,
			},
		},
		Pool: []models.ExternalUser{
			{ID: 8, FirstName: "Bobby", LastName: "Zedd"},
		},
	}
}

func TestToggleVerificationEndpoint(t *testing.T) {
	snapshot := sessionSnapshot()
	snapshot.Candidates[0].MatchType = models.MatchTypeExact
	snapshot.Candidates[0].MatchedExternalUser = &snapshot.Pool[0]

	rec, err := postJSON(t, ToggleVerification, sessionBody(t, snapshot, map[string]any{
		"candidate_index": 0,
		"step":            "identity",
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var out matching.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out.Candidates[0].Verified.Identity)
}

func TestToggleVerificationRejectsUnknownStep(t *testing.T) {
	_, err := postJSON(t, ToggleVerification, sessionBody(t, sessionSnapshot(), map[string]any{
		"candidate_index": 0,
		"step":            "vibes",
	}))
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, httperror.GetStatusCode(err))
}

func TestManualAssignEndpoint(t *testing.T) {
	rec, err := postJSON(t, ManualAssign, sessionBody(t, sessionSnapshot(), map[string]any{
		"candidate_index":  0,
		"external_user_id": 8,
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var out matching.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, models.MatchTypeManual, out.Candidates[0].MatchType)
	assert.Empty(t, out.Pool)
}

func TestManualAssignConflicts(t *testing.T) {
	_, err := postJSON(t, ManualAssign, sessionBody(t, sessionSnapshot(), map[string]any{
		"candidate_index":  0,
		"external_user_id": 999,
	}))
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, httperror.GetStatusCode(err))
}

func TestUnlinkEndpoint(t *testing.T) {
	snapshot := sessionSnapshot()
	user := snapshot.Pool[0]
	snapshot.Pool = nil
	snapshot.Candidates[0].MatchType = models.MatchTypeManual
	snapshot.Candidates[0].MatchedExternalUser = &user

	rec, err := postJSON(t, Unlink, sessionBody(t, snapshot, map[string]any{
		"candidate_index": 0,
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var out matching.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, models.MatchTypeUnmatched, out.Candidates[0].MatchType)
	require.Len(t, out.Pool, 1)
	assert.Equal(t, 8, out.Pool[0].ID)
}

func TestUnlinkAlreadyUnmatchedConflicts(t *testing.T) {
	_, err := postJSON(t, Unlink, sessionBody(t, sessionSnapshot(), map[string]any{
		"candidate_index": 0,
	}))
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, httperror.GetStatusCode(err))
}
