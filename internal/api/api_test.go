package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/oluwafemi02/sportsfeed-core/internal/apierror"
	"github.com/oluwafemi02/sportsfeed-core/internal/cache"
	"github.com/oluwafemi02/sportsfeed-core/internal/circuitbreaker"
	"github.com/oluwafemi02/sportsfeed-core/internal/config"
	"github.com/oluwafemi02/sportsfeed-core/internal/metrics"
	"github.com/oluwafemi02/sportsfeed-core/internal/providers"
	"github.com/oluwafemi02/sportsfeed-core/internal/upstream"
)

func init() {
	metrics.Init()
}

const fixturesJSON = `{"response":[
  {"fixture":{"id":1001,"date":"2026-08-26T19:00:00Z","status":{"short":"NS"}},
   "league":{"name":"Premier League"},
   "teams":{"home":{"name":"Arsenal"},"away":{"name":"Chelsea"}},
   "goals":{"home":null,"away":null}}
]}`

const oddsJSON = `{"response":[
  {"fixture":{"id":1001},"update":"2026-08-26T10:00:00Z",
   "bookmakers":[{"name":"Bet365","bets":[{"name":"Match Winner","values":[
     {"value":"Home","odd":"2.10"},
     {"value":"Draw","odd":"3.40"},
     {"value":"Away","odd":"3.25"}
   ]}]}]}
]}`

const predictionsJSON = `{"response":[
  {"fixture":{"id":1001},
   "predictions":{"advice":"Home or draw","percent":{"home":"45%","draw":"30%","away":"25%"}},
   "generated_at":"2026-08-26T08:00:00Z"}
]}`

// newTestMux builds the full API mux over a single fake provider backend.
func newTestMux(t *testing.T, backend http.HandlerFunc) (*http.ServeMux, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	store, err := cache.NewMemory(64)
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}

	newAdapter := func(name string) *providers.Adapter {
		breaker := circuitbreaker.NewProviderBreaker(name, circuitbreaker.Config{
			FailureThreshold: 1,
			RecoveryTimeout:  time.Minute,
		}, slog.Default())
		client, err := upstream.NewClient(config.ProviderConfig{
			Name:              name,
			BaseURL:           srv.URL,
			TimeoutMs:         2000,
			RequestsPerSecond: 1000,
			Burst:             1000,
			Retry:             config.RetryConfig{MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
		}, breaker, slog.Default())
		if err != nil {
			t.Fatalf("NewClient: %v", err)
		}
		return providers.NewAdapter(client, store, time.Minute, name, slog.Default())
	}

	h := New(
		providers.NewFixturesAdapter(newAdapter("results")),
		providers.NewOddsAdapter(newAdapter("odds")),
		providers.NewPredictionsAdapter(newAdapter("predictions")),
		slog.Default(),
	)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux, srv
}

func routeByPath(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/fixtures":
		w.Write([]byte(fixturesJSON))
	case "/odds":
		w.Write([]byte(oddsJSON))
	case "/predictions":
		w.Write([]byte(predictionsJSON))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var resp apierror.ErrorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("unmarshal error body: %v", err)
	}
	return resp.ErrorCode
}

func TestListFixtures(t *testing.T) {
	mux, _ := newTestMux(t, routeByPath)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/fixtures?date=2026-08-26", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Fixtures []providers.Fixture `json:"fixtures"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Fixtures) != 1 || resp.Fixtures[0].HomeTeam != "Arsenal" {
		t.Fatalf("unexpected fixtures: %+v", resp.Fixtures)
	}
}

func TestListFixtures_BadDate(t *testing.T) {
	mux, _ := newTestMux(t, routeByPath)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/fixtures?date=tomorrow", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if code := errorCode(t, rec.Body.Bytes()); code != "FEED_INVALID_REQUEST" {
		t.Fatalf("error_code = %q", code)
	}
}

func TestGetFixture(t *testing.T) {
	mux, _ := newTestMux(t, routeByPath)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/fixtures/1001", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var fixture providers.Fixture
	if err := json.Unmarshal(rec.Body.Bytes(), &fixture); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if fixture.ID != 1001 {
		t.Fatalf("unexpected fixture: %+v", fixture)
	}
}

func TestGetFixture_InvalidID(t *testing.T) {
	mux, _ := newTestMux(t, routeByPath)

	for _, id := range []string{"abc", "-5", "0"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/fixtures/"+id, nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("id %q: status = %d, want 400", id, rec.Code)
		}
	}
}

func TestGetOdds(t *testing.T) {
	mux, _ := newTestMux(t, routeByPath)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/fixtures/1001/odds", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		FixtureID int64                 `json:"fixture_id"`
		Quotes    []providers.OddsQuote `json:"quotes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.FixtureID != 1001 || len(resp.Quotes) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestGetPrediction(t *testing.T) {
	mux, _ := newTestMux(t, routeByPath)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/fixtures/1001/prediction", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var pred providers.Prediction
	if err := json.Unmarshal(rec.Body.Bytes(), &pred); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if pred.FixtureID != 1001 || pred.HomeWinPct != 45 {
		t.Fatalf("unexpected prediction: %+v", pred)
	}
}

func TestErrorMapping_EmptyResponseIs404(t *testing.T) {
	mux, _ := newTestMux(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":[]}`))
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/fixtures/4242", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if code := errorCode(t, rec.Body.Bytes()); code != "FEED_NOT_FOUND" {
		t.Fatalf("error_code = %q", code)
	}
}

func TestErrorMapping_ProviderDownIs503(t *testing.T) {
	mux, _ := newTestMux(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/fixtures/1001", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if code := errorCode(t, rec.Body.Bytes()); code != "FEED_UPSTREAM_UNAVAILABLE" {
		t.Fatalf("error_code = %q", code)
	}
}

func TestErrorMapping_OpenCircuitIs503WithRetryAfter(t *testing.T) {
	mux, _ := newTestMux(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	// First request trips the breaker (threshold 1), second hits the open
	// circuit and must carry a Retry-After hint.
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/fixtures/1001", nil))

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/fixtures/1001", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header for open circuit")
	}
}

func TestErrorMapping_MalformedPayloadIs502(t *testing.T) {
	mux, _ := newTestMux(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response": [{]`))
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/fixtures/1001", nil))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	if code := errorCode(t, rec.Body.Bytes()); code != "FEED_BAD_UPSTREAM_PAYLOAD" {
		t.Fatalf("error_code = %q", code)
	}
}

func TestErrorMapping_Provider404IsNotFound(t *testing.T) {
	mux, _ := newTestMux(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/fixtures/1001", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
