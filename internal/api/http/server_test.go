package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"ridepool-backend/internal/config"
	"ridepool-backend/internal/domain"
	"ridepool-backend/internal/events"
	"ridepool-backend/internal/lock"
	"ridepool-backend/internal/repository/memory"
	"ridepool-backend/internal/security"
	"ridepool-backend/internal/service"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 11, 1, 9, 0, 0, 0, time.UTC)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestServer(t *testing.T, trustHeader bool) (*Server, *events.Hub, security.TokenManager) {
	t.Helper()
	store := memory.NewStore()
	hub := events.NewHub(8)
	locker := lock.NewLocal()

	mat := service.NewMaterializer(store.RideRepository, locker, hub, time.UTC, 7)
	ledger := service.NewSeatLedger(store.RideRequestRepository)
	services := &Services{
		Contract: service.NewContractService(store.ContractRepository, store.RideRepository, ledger, locker,
			memory.AllowAll(), mat, hub, func() time.Time { return testNow }, time.UTC),
		Ride:           service.NewRideService(store.RideRepository, store.RideRequestRepository, store.ContractRepository, hub),
		Request:        service.NewRideRequestService(store.RideRepository, store.RideRequestRepository, ledger, locker, hub),
		Recommendation: service.NewRecommendationService(store.RideRequestRepository, store.RideRepository, 3, 3, 5),
		Ledger:         ledger,
	}

	cfg := &config.Config{}
	cfg.Auth.TrustUserHeader = trustHeader
	cfg.Scheduler.Timezone = "UTC"
	cfg.Server.RequestTimeoutSeconds = 5

	tokens := security.NewTokenManager(testSecret, "ridepool", time.Hour)
	return NewServer(services, tokens, hub, cfg), hub, tokens
}

func do(t *testing.T, h http.Handler, method, path string, userID int32, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID > 0 {
		req.Header.Set("X-User-ID", strconv.Itoa(int(userID)))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func contractBody() map[string]any {
	return map[string]any{
		"name":        "Morning commute",
		"members":     []int32{2, 3},
		"start_date":  "2026-11-02",
		"end_date":    "2026-11-15",
		"total_seats": 5,
		"route": map[string]any{
			"start_location": map[string]string{"address": "12 Elm St"},
			"end_location":   map[string]string{"address": "Downtown Office"},
		},
		"weekly_schedule":       []map[string]string{{"day": "Monday", "time": "08:00"}},
		"auto_post_extra_seats": true,
	}
}

func rideBody() map[string]any {
	return map[string]any{
		"start_location": map[string]string{"address": "Station"},
		"end_location":   map[string]string{"address": "Harbour"},
		"date_time":      testNow.Add(48 * time.Hour).Format(time.RFC3339),
		"base_price":     7.5,
		"seats":          1,
	}
}

func TestServer_Health(t *testing.T) {
	srv, _, _ := newTestServer(t, true)
	rec := do(t, srv, "GET", "/healthz", 0, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_Contracts(t *testing.T) {
	srv, _, _ := newTestServer(t, true)

	t.Run("Unauthenticated", func(t *testing.T) {
		rec := do(t, srv, "POST", "/api/v1/contracts", 0, contractBody())
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	rec := do(t, srv, "POST", "/api/v1/contracts", 1, contractBody())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	c := decode[domain.Contract](t, rec)
	assert.Equal(t, []int32{2, 3, 1}, c.Members)
	path := "/api/v1/contracts/" + strconv.Itoa(int(c.ID))

	t.Run("GetAsMember", func(t *testing.T) {
		rec := do(t, srv, "GET", path, 2, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("GetAsStranger", func(t *testing.T) {
		rec := do(t, srv, "GET", path, 9, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("BadID", func(t *testing.T) {
		rec := do(t, srv, "GET", "/api/v1/contracts/abc", 2, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("DuplicateName", func(t *testing.T) {
		rec := do(t, srv, "POST", "/api/v1/contracts", 1, contractBody())
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("Validation", func(t *testing.T) {
		body := contractBody()
		body["name"] = "x"
		body["total_seats"] = 1
		rec := do(t, srv, "POST", "/api/v1/contracts", 1, body)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decode[errorResponse](t, rec)
		assert.Contains(t, resp.Errors, "Contract name must be at least 3 characters long")
		assert.Contains(t, resp.Errors, "Total seats must be between 2 and 20")
	})

	t.Run("Join", func(t *testing.T) {
		rec := do(t, srv, "POST", path+"/join", 4, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[domain.Contract](t, rec).Members, 4)

		rec = do(t, srv, "POST", path+"/join", 4, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("PatchStatus", func(t *testing.T) {
		rec := do(t, srv, "PATCH", path, 2, map[string]any{"status": "CANCELLED"})
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = do(t, srv, "PATCH", path, 1, map[string]any{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = do(t, srv, "PATCH", path, 1, map[string]any{"status": "COMPLETED"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, domain.ContractStatusCompleted, decode[domain.Contract](t, rec).Status)
	})

	t.Run("ListMine", func(t *testing.T) {
		rec := do(t, srv, "GET", "/api/v1/contracts", 3, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]domain.Contract](t, rec), 1)

		rec = do(t, srv, "GET", "/api/v1/contracts", 8, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "[]\n", rec.Body.String())
	})
}

func TestServer_RideRequestFlow(t *testing.T) {
	srv, _, _ := newTestServer(t, true)

	rec := do(t, srv, "POST", "/api/v1/rides", 1, rideBody())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ride := decode[domain.Ride](t, rec)
	ridePath := "/api/v1/rides/" + strconv.Itoa(int(ride.ID))

	// Browsing is public.
	rec = do(t, srv, "GET", "/api/v1/rides?destination=harb&date=2026-11-03", 0, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Ride](t, rec), 1)

	rec = do(t, srv, "POST", ridePath+"/requests", 2, map[string]any{"bid_price": 5})
	require.Equal(t, http.StatusCreated, rec.Code)
	first := decode[domain.RideRequest](t, rec)

	rec = do(t, srv, "POST", ridePath+"/requests", 2, map[string]any{"bid_price": 6})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, srv, "POST", ridePath+"/requests", 3, map[string]any{"bid_price": 6})
	require.Equal(t, http.StatusCreated, rec.Code)
	second := decode[domain.RideRequest](t, rec)

	rec = do(t, srv, "GET", ridePath+"/requests", 2, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = do(t, srv, "GET", ridePath+"/requests", 1, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.RideRequest](t, rec), 2)

	confirm := map[string]any{"status": "CONFIRMED"}
	firstPath := "/api/v1/requests/" + strconv.Itoa(int(first.ID))
	rec = do(t, srv, "PATCH", firstPath, 2, confirm)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, srv, "PATCH", firstPath, 1, confirm)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.RideRequestStatusConfirmed, decode[domain.RideRequest](t, rec).Status)

	rec = do(t, srv, "PATCH", "/api/v1/requests/"+strconv.Itoa(int(second.ID)), 1, confirm)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "capacity exceeded")

	rec = do(t, srv, "GET", ridePath, 0, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(0), decode[rideView](t, rec).AvailableSeats)

	rec = do(t, srv, "GET", "/api/v1/rides/history", 2, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[domain.RideHistory](t, rec)
	require.Len(t, history.JoinedRides, 1)
	assert.Equal(t, ride.ID, history.JoinedRides[0].ID)

	rec = do(t, srv, "GET", "/api/v1/requests/mine", 3, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.RideRequestWithRide](t, rec), 1)

	rec = do(t, srv, "GET", "/api/v1/rides/recommended", 2, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, "PATCH", ridePath, 1, map[string]any{"status": "COMPLETED"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, "GET", "/api/v1/stats", 0, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[domain.Stats](t, rec)
	assert.Equal(t, []domain.StatusCount{{Status: "COMPLETED", Count: 1}}, stats.Rides)
	assert.Equal(t, []domain.StatusCount{{Status: "CONFIRMED", Count: 1}, {Status: "PENDING", Count: 1}}, stats.Requests)
}

func TestServer_BearerAuth(t *testing.T) {
	srv, _, tokens := newTestServer(t, false)

	token, err := tokens.GenerateAccessToken(5, "", nil)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/v1/rides/history", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// The user header is ignored unless explicitly trusted.
	rec = do(t, srv, "GET", "/api/v1/rides/history", 5, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest("GET", "/api/v1/rides/history", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_EventStream(t *testing.T) {
	srv, hub, _ := newTestServer(t, true)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/events", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(rideBody()))
	req, err := http.NewRequest("POST", ts.URL+"/api/v1/rides", &buf)
	require.NoError(t, err)
	req.Header.Set("X-User-ID", "1")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var evt domain.Event
	require.NoError(t, conn.ReadJSON(&evt))
	assert.Equal(t, domain.EventRideCreated, evt.Type)
	assert.Equal(t, "OPEN", evt.State)
}
