package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChefStevePopp/cheflife-sync/pkg/httpclient"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	client := NewClient(httpclient.NewClient(httpclient.DefaultConfig(), logger), Config{
		Name:      "7shifts",
		BaseURL:   server.URL,
		APIKey:    "test-key",
		CompanyID: "1234",
	}, logger)

	return client
}

func TestListActiveUsers(t *testing.T) {
	var gotPath, gotAuth, gotStatus string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotStatus = r.URL.Query().Get("status")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"id":42,"first_name":"Alex","last_name":"Smith","type":"employee"}]}`))
	})

	users, err := client.ListActiveUsers(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/v2/company/1234/users", gotPath)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "active", gotStatus)
	require.Len(t, users, 1)
	assert.Equal(t, 42, users[0].ID)
	assert.Equal(t, "Alex Smith", users[0].FullName())
}

func TestListWages(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/company/1234/users/42/wages", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"current_wages":[{"wage_cents":2350,"wage_type":"hourly"}],"upcoming_wages":[]}}`))
	})

	snapshot, err := client.ListWages(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, snapshot.CurrentWages, 1)
	assert.Equal(t, 2350, snapshot.CurrentWages[0].WageCents)
	assert.Empty(t, snapshot.UpcomingWages)
}

func TestListRoles(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/company/1234/roles", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"id":7,"name":"Line Cook"}]}`))
	})

	roles, err := client.ListRoles(context.Background())
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, "Line Cook", roles[0].Name)
}

func TestErrorStatusMapsToBadGateway(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	users, err := client.ListActiveUsers(context.Background())
	assert.Nil(t, users)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, httperror.GetStatusCode(err))
	assert.Contains(t, err.Error(), "provider returned status 500")
}

func TestUnknownFieldsAreRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"id":42,"first_name":"Alex","last_name":"Smith","shoe_size":11}]}`))
	})

	users, err := client.ListActiveUsers(context.Background())
	assert.Nil(t, users)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, httperror.GetStatusCode(err))
	assert.Contains(t, err.Error(), "invalid response")
}

func TestInvalidBodyMapsToBadGateway(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})

	users, err := client.ListActiveUsers(context.Background())
	assert.Nil(t, users)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, httperror.GetStatusCode(err))
}
