package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harveywai/thermopanel/pkg/api"
	"github.com/harveywai/thermopanel/pkg/auth"
	"github.com/harveywai/thermopanel/pkg/database"
	"github.com/harveywai/thermopanel/pkg/security"
)

type recorded struct {
	method, path, query, contentType string
	body                             map[string]interface{}
}

// fakeBackend answers every request with the canned body for its path.
func fakeBackend(t *testing.T, status int, responses map[string]string) (*httptest.Server, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{
			method:      r.Method,
			path:        r.URL.Path,
			query:       r.URL.RawQuery,
			contentType: r.Header.Get("Content-Type"),
		}
		data, _ := io.ReadAll(r.Body)
		if len(data) > 0 {
			assert.NoError(t, json.Unmarshal(data, &rec.body))
		}
		calls = append(calls, rec)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, responses[r.URL.Path])
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestClient_RequestShapes(t *testing.T) {
	srv, calls := fakeBackend(t, http.StatusOK, map[string]string{
		"/login":                 `{"success":true,"role":"admin"}`,
		"/update_security":       `{"success":true,"security_enabled":{"acl":false,"login_validation":false,"dos_protection":false}}`,
		"/list_thermostats":      `{"success":true,"thermostats":[{"id":"1","temperature":20}]}`,
		"/add_thermostat":        `{"success":true,"thermostat":{"id":"2","temperature":21}}`,
		"/remove_thermostat":     `{"success":true,"removed":{"id":"2","temperature":21}}`,
		"/set_temperature":       `{"success":true,"message":"Thermostat 1 set to 18°C."}`,
		"/simulate_dos":          `{"success":false,"message":"blocked","response_time":0.123}`,
		"/simulate_unauthorized": `{"success":false,"message":"nope"}`,
	})
	c, err := New(srv.URL + "/")
	require.NoError(t, err)
	ctx := context.Background()

	login, err := c.Login(ctx, "", "")
	require.NoError(t, err)
	assert.True(t, login.Success)
	assert.Equal(t, "admin", login.Role)

	sec, err := c.UpdateSecurity(ctx, security.Settings{})
	require.NoError(t, err)
	assert.Equal(t, security.Settings{}, sec.Settings)

	list, err := c.ListThermostats(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Thermostat{{ID: "1", Temperature: 20}}, list.Thermostats)

	added, err := c.AddThermostat(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2", added.Thermostat.ID)

	removed, err := c.RemoveThermostat(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "2", removed.Removed.ID)

	set, err := c.SetTemperature(ctx, "1", "18")
	require.NoError(t, err)
	assert.Equal(t, "Thermostat 1 set to 18°C.", set.Message)

	dos, err := c.SimulateDoS(ctx, "high & low")
	require.NoError(t, err)
	assert.InDelta(t, 0.123, dos.ResponseTime, 1e-9)

	unauth, err := c.SimulateUnauthorized(ctx)
	require.NoError(t, err)
	assert.Equal(t, "nope", unauth.Message)

	require.NoError(t, c.Logout(ctx))

	got := *calls
	require.Len(t, got, 9)

	assert.Equal(t, recorded{method: "POST", path: "/login", contentType: "application/json",
		body: map[string]interface{}{"username": "", "password": ""}}, got[0])
	assert.Equal(t, map[string]interface{}{"acl": false, "login_validation": false, "dos_protection": false}, got[1].body)
	assert.Equal(t, "GET", got[2].method)
	assert.Equal(t, recorded{method: "POST", path: "/add_thermostat"}, got[3])
	assert.Equal(t, map[string]interface{}{"thermostat_id": "2"}, got[4].body)
	assert.Equal(t, map[string]interface{}{"thermostat_id": "1", "temperature": "18"}, got[5].body)
	assert.Equal(t, "intensity=high+%26+low", got[6].query)
	assert.Equal(t, "/simulate_unauthorized", got[7].path)
	assert.Equal(t, recorded{method: "POST", path: "/logout"}, got[8])
}

func TestClient_FailureEnvelopeOnErrorStatus(t *testing.T) {
	srv, _ := fakeBackend(t, http.StatusForbidden, map[string]string{
		"/add_thermostat": `{"success":false,"message":"Unauthorized: Only admin can add thermostats."}`,
	})
	c, err := New(srv.URL)
	require.NoError(t, err)

	res, err := c.AddThermostat(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Success)

	var apiErr *APIError
	require.True(t, errors.As(res.Err("add_thermostat"), &apiErr))
	assert.Equal(t, "Unauthorized: Only admin can add thermostats.", apiErr.Message)
	assert.Equal(t, "add_thermostat: Unauthorized: Only admin can add thermostats.", apiErr.Error())
}

func TestClient_TransportErrors(t *testing.T) {
	srv, _ := fakeBackend(t, http.StatusBadGateway, map[string]string{"/list_thermostats": "<html>"})
	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.ListThermostats(context.Background())
	assert.ErrorContains(t, err, "status 502")

	// logout ignores the body entirely
	assert.NoError(t, c.Logout(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.ListThermostats(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New("localhost:5000")
	assert.Error(t, err)

	_, err = New("ftp://example.com")
	assert.Error(t, err)
}

func TestWithTimeout_LeavesSharedClientAlone(t *testing.T) {
	shared := &http.Client{Timeout: time.Minute}

	c, err := New("http://127.0.0.1:5000", WithHTTPClient(shared), WithTimeout(time.Second))
	require.NoError(t, err)

	assert.Equal(t, time.Minute, shared.Timeout)
	assert.Equal(t, time.Second, c.http.Timeout)
	assert.NotSame(t, shared, c.http)

	// the other order ends the same way
	c, err = New("http://127.0.0.1:5000", WithTimeout(time.Second), WithHTTPClient(shared))
	require.NoError(t, err)
	assert.Same(t, shared, c.http)
	assert.Equal(t, time.Minute, shared.Timeout)
}

func TestClient_SessionAgainstBackend(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db, err := database.Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.SeedUsers(db, []database.SeedUser{
		{Username: "user1", Password: "password123", Role: "admin"},
	}, zerolog.Nop()))

	srv := api.New(db, security.NewStore(security.Defaults()), auth.NewSigner("test", time.Hour), nil, nil,
		api.Options{AllowedIPs: []string{"127.0.0.1", "::1"}, RateLimit: 1000, RateBurst: 1000}, zerolog.Nop())
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	c, err := New(ts.URL, WithTimeout(5*time.Second))
	require.NoError(t, err)
	ctx := context.Background()

	added, err := c.AddThermostat(ctx)
	require.NoError(t, err)
	assert.False(t, added.Success)

	login, err := c.Login(ctx, "user1", "password123")
	require.NoError(t, err)
	require.True(t, login.Success)

	added, err = c.AddThermostat(ctx)
	require.NoError(t, err)
	require.True(t, added.Success)

	set, err := c.SetTemperature(ctx, added.Thermostat.ID, "24")
	require.NoError(t, err)
	assert.True(t, set.Success)

	list, err := c.ListThermostats(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Thermostat{{ID: added.Thermostat.ID, Temperature: 24}}, list.Thermostats)

	require.NoError(t, c.Logout(ctx))
	added, err = c.AddThermostat(ctx)
	require.NoError(t, err)
	assert.False(t, added.Success)
}
