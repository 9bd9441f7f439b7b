package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psufleet/coldswap/pkg/redundancy"
)

// nullBus fails every access; the API tests never reach the hardware.
type nullBus struct{}

func (nullBus) ReadByte(addr uint8, cmd uint8) (uint8, error) {
	return 0, fmt.Errorf("no bus")
}
func (nullBus) WriteByte(addr uint8, cmd uint8, value uint8) error {
	return fmt.Errorf("no bus")
}
func (nullBus) Ping(addr uint8) error { return fmt.Errorf("no bus") }
func (nullBus) Close() error          { return nil }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	engine := redundancy.New(redundancy.Config{
		Bus:       nullBus{},
		Supported: true,
		Policy:    redundancy.DefaultPolicy(),
		Logger:    zerolog.Nop(),
	})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go engine.Run(ctx)
	return NewServer(engine, "localhost:0")
}

func TestGetRedundancy(t *testing.T) {
	server := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/redundancy", nil)
	w := httptest.NewRecorder()

	server.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got redundancyWire
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, redundancy.StatusCompleted, got.Status)
	assert.False(t, got.Enabled)
	assert.Equal(t, int64(7*24*3600), got.PeriodOfRotationSeconds)
	assert.Equal(t, []int{1, 2, 3, 4}, got.RankOrder)
}

func TestGetRedundancyRendersRankOrderAsArray(t *testing.T) {
	server := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/redundancy", nil)
	w := httptest.NewRecorder()

	server.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	// the raw body must carry a JSON array, not a base64 string
	assert.Contains(t, w.Body.String(), `"rankOrder":[1,2,3,4]`)
}

func TestPutRedundancyRankOrderRoundTrip(t *testing.T) {
	server := newTestServer(t)
	req := httptest.NewRequest(http.MethodPut, "/redundancy", strings.NewReader(`{"rankOrder": [2, 3, 4, 1]}`))
	w := httptest.NewRecorder()

	server.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"rankOrder":[2,3,4,1]`)

	req = httptest.NewRequest(http.MethodPut, "/redundancy", strings.NewReader(`{"rankOrder": [1, 300]}`))
	w = httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPutRedundancyUpdatesPolicy(t *testing.T) {
	server := newTestServer(t)
	body := `{"enabled": true, "rotationEnabled": false, "periodOfRotationSeconds": 172800}`
	req := httptest.NewRequest(http.MethodPut, "/redundancy", strings.NewReader(body))
	w := httptest.NewRecorder()

	server.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got redundancyWire
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.True(t, got.Enabled)
	assert.False(t, got.RotationEnabled)
	assert.Equal(t, int64(172800), got.PeriodOfRotationSeconds)
}

func TestPutRedundancyRejectsOutOfRangePeriod(t *testing.T) {
	server := newTestServer(t)
	body := `{"periodOfRotationSeconds": 60}`
	req := httptest.NewRequest(http.MethodPut, "/redundancy", strings.NewReader(body))
	w := httptest.NewRecorder()

	server.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)

	// prior value retained
	req = httptest.NewRequest(http.MethodGet, "/redundancy", nil)
	w = httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)
	var got redundancyWire
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, int64(7*24*3600), got.PeriodOfRotationSeconds)
}

func TestPutRedundancyRejectsBadAlgorithm(t *testing.T) {
	server := newTestServer(t)
	body := `{"algorithm": "CoinFlip"}`
	req := httptest.NewRequest(http.MethodPut, "/redundancy", strings.NewReader(body))
	w := httptest.NewRecorder()

	server.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostPSUEventValidation(t *testing.T) {
	server := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/events/psu", strings.NewReader(`{"name": "PSU1", "functional": false}`))
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusAccepted, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/events/psu", strings.NewReader(`{"name": "PSU1"}`))
	w = httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostOperationsAccepted(t *testing.T) {
	server := newTestServer(t)

	for _, path := range []string{"/redundancy/rotate", "/redundancy/reconfigure?force=true"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		w := httptest.NewRecorder()
		server.Router().ServeHTTP(w, req)
		assert.Equal(t, http.StatusAccepted, w.Code, path)
	}
}

func TestGetHealthDefaultsToOk(t *testing.T) {
	server := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/redundancy/health", nil)
	w := httptest.NewRecorder()

	server.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, string(redundancy.HealthOk), got["class"])
}
