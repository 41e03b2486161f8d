// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/traveal/internal/alert"
	"github.com/tomtom215/traveal/internal/auth"
	"github.com/tomtom215/traveal/internal/credential"
	"github.com/tomtom215/traveal/internal/models"
	"github.com/tomtom215/traveal/internal/notify"
	"github.com/tomtom215/traveal/internal/route"
	"github.com/tomtom215/traveal/internal/sos"
	"github.com/tomtom215/traveal/internal/store"
	ws "github.com/tomtom215/traveal/internal/websocket"
)

const (
	apiUser     = "api-user-1"
	apiFull     = "Sunrise2026"
	apiPartial  = "Moon42x"
	profileBody = `{
		"full_password": "Sunrise2026",
		"partial_password": "Moon42x",
		"emergency_contacts": [{"name": "Asha", "phone": "+919800000001", "priority": 1}]
	}`
	routeBody = `{
		"planned_route": [{"latitude": 10, "longitude": 76}, {"latitude": 10.01, "longitude": 76.01}],
		"deviation_threshold": 500
	}`
)

// envelope mirrors models.APIResponse with raw data for per-test decoding.
type envelope struct {
	Success bool             `json:"success"`
	Data    json.RawMessage  `json:"data"`
	Error   *models.APIError `json:"error"`
	Meta    models.Meta      `json:"meta"`
}

type testServer struct {
	handler http.Handler
	svc     *sos.Service
	hub     *ws.Hub
}

type testOptions struct {
	chi    *ChiMiddlewareConfig
	checks []HealthChecker
}

func newTestServer(t *testing.T, opts testOptions) *testServer {
	t.Helper()

	mem := store.NewMemory()
	hasher := credential.NewHasher(credential.Params{Time: 1, MemoryKiB: 1024, Threads: 1, KeyLength: 32, SaltLength: 16})
	dispatcher := notify.NewDispatcher(notify.Options{
		SMS:         notify.LogSender{},
		Email:       notify.LogSender{},
		Push:        notify.LogSender{},
		Authorities: notify.LogSender{},
	})
	svc := sos.New(sos.Deps{
		Profiles: mem,
		Monitor:  route.NewMonitor(mem, route.Config{}),
		Alerts:   alert.NewMachine(mem, hasher, alert.Config{}),
		Hasher:   hasher,
		Notifier: dispatcher,
	}, sos.Config{VerifyLatencyFloor: -1})

	hub := ws.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = hub.RunWithContext(ctx) }()

	t.Cleanup(func() {
		cancel()
		shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
		defer done()
		_ = svc.Shutdown(shutdownCtx)
	})

	chiCfg := opts.chi
	if chiCfg == nil {
		chiCfg = DefaultChiMiddlewareConfig()
		chiCfg.RateLimitDisabled = true
	}
	handler := NewHandler(svc, hub, []string{"*"}, WithHealthChecks(opts.checks...), WithVersion("test"))
	router := NewRouter(handler, auth.NewMiddleware(nil, auth.AuthModeNone), NewChiMiddleware(chiCfg))

	return &testServer{handler: router.SetupChi(), svc: svc, hub: hub}
}

func (s *testServer) do(t *testing.T, method, path, userID, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(auth.UserIDHeader, userID)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, path, err, rec.Body.String())
		}
	}
	return rec, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatalf("decode data: %v (%s)", err, env.Data)
	}
	return v
}

func (s *testServer) setupProfile(t *testing.T) {
	t.Helper()
	rec, env := s.do(t, http.MethodPost, "/api/v1/sos/profile", apiUser, profileBody)
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("create profile: %d %s", rec.Code, rec.Body.String())
	}
}

func (s *testServer) startMonitoring(t *testing.T) string {
	t.Helper()
	rec, env := s.do(t, http.MethodPost, "/api/v1/sos/monitoring/start", apiUser, routeBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start monitoring: %d %s", rec.Code, rec.Body.String())
	}
	return decodeData[models.Monitoring](t, env).ID
}

func (s *testServer) triggerAlert(t *testing.T) string {
	t.Helper()
	rec, env := s.do(t, http.MethodPost, "/api/v1/sos/alert/trigger", apiUser,
		`{"alert_type": "manual_trigger", "location": {"latitude": 9.93, "longitude": 76.26}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("trigger: %d %s", rec.Code, rec.Body.String())
	}
	return decodeData[models.AlertView](t, env).ID
}

func TestProfileEndpoints(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, testOptions{})
	s.setupProfile(t)

	rec, env := s.do(t, http.MethodGet, "/api/v1/sos/profile", apiUser, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get profile: %d", rec.Code)
	}
	if strings.Contains(string(env.Data), "password") || strings.Contains(string(env.Data), "$argon2id$") {
		t.Errorf("profile leaks password material: %s", env.Data)
	}
	view := decodeData[models.ProfileView](t, env)
	if view.UserID != apiUser || len(view.Contacts) != 1 || !view.Enabled {
		t.Errorf("unexpected profile: %+v", view)
	}
	if env.Meta.RequestID == "" || rec.Header().Get("X-Request-ID") != env.Meta.RequestID {
		t.Errorf("request id meta %q, header %q", env.Meta.RequestID, rec.Header().Get("X-Request-ID"))
	}

	rec, env = s.do(t, http.MethodPost, "/api/v1/sos/contacts", apiUser, `{"name": "Ravi", "email": "ravi@example.com"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add contact: %d %s", rec.Code, rec.Body.String())
	}
	contact := decodeData[models.EmergencyContact](t, env)
	if contact.ID == "" || contact.Priority != 1 || !contact.Active {
		t.Errorf("unexpected contact: %+v", contact)
	}

	rec, env = s.do(t, http.MethodPut, "/api/v1/sos/settings", apiUser, `{"voice_alert_language": "ml", "biometric_enabled": true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("settings: %d %s", rec.Code, rec.Body.String())
	}
	view = decodeData[models.ProfileView](t, env)
	if view.VoiceLanguage != "ml" || !view.BiometricEnabled || len(view.Contacts) != 2 {
		t.Errorf("unexpected profile after settings: %+v", view)
	}

	contactless := []struct {
		name string
		user string
		body string
	}{
		{"create without contacts", "api-user-2", `{"full_password": "Sunrise2026", "partial_password": "Moon42x"}`},
		{"create with empty contacts", "api-user-2", `{"full_password": "Sunrise2026", "partial_password": "Moon42x", "emergency_contacts": []}`},
		{"update to empty contacts", apiUser, `{"full_password": "unchanged", "emergency_contacts": []}`},
	}
	for _, tt := range contactless {
		rec, env := s.do(t, http.MethodPost, "/api/v1/sos/profile", tt.user, tt.body)
		if rec.Code != http.StatusBadRequest || env.Error == nil || env.Error.Code != models.ErrCodeValidation {
			t.Errorf("%s: status %d, error %+v, want 400 validation", tt.name, rec.Code, env.Error)
		}
	}
	_, env = s.do(t, http.MethodGet, "/api/v1/sos/profile", apiUser, "")
	if view = decodeData[models.ProfileView](t, env); len(view.Contacts) != 2 {
		t.Errorf("contacts after rejected update = %d, want 2", len(view.Contacts))
	}
}

func TestRouteDeviationFlow(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, testOptions{})
	s.setupProfile(t)
	monitoringID := s.startMonitoring(t)
	base := "/api/v1/sos/monitoring/" + monitoringID

	rec, env := s.do(t, http.MethodPost, base+"/location", apiUser, `{"latitude": 10.005, "longitude": 76.005}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("on-route update: %d %s", rec.Code, rec.Body.String())
	}
	onRoute := decodeData[sos.LocationResult](t, env)
	if onRoute.DeviationDetected || onRoute.Alert != nil {
		t.Errorf("on-route update raised: %+v", onRoute)
	}

	rec, env = s.do(t, http.MethodPost, base+"/location", apiUser, `{"latitude": 10.5, "longitude": 76.5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("off-route update: %d %s", rec.Code, rec.Body.String())
	}
	offRoute := decodeData[sos.LocationResult](t, env)
	if !offRoute.DeviationDetected || offRoute.Alert == nil {
		t.Fatalf("off-route update did not raise an alert: %+v", offRoute)
	}
	if offRoute.Alert.Type != models.AlertTypeRouteDeviation || offRoute.Alert.Status != models.AlertStatusTriggered {
		t.Errorf("unexpected alert: %+v", offRoute.Alert)
	}

	_, env = s.do(t, http.MethodPost, base+"/location", apiUser, `{"latitude": 10.6, "longitude": 76.6}`)
	if again := decodeData[sos.LocationResult](t, env); again.Alert != nil {
		t.Error("staying off route raised a second alert")
	}

	_, env = s.do(t, http.MethodGet, "/api/v1/sos/alerts/active", apiUser, "")
	if active := decodeData[[]models.AlertView](t, env); len(active) != 1 {
		t.Fatalf("active alerts = %d, want 1", len(active))
	}

	rec, env = s.do(t, http.MethodPost, "/api/v1/sos/alert/"+offRoute.Alert.ID+"/verify", apiUser, `{"password": "`+apiFull+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("verify: %d %s", rec.Code, rec.Body.String())
	}
	res := decodeData[models.VerificationResult](t, env)
	if !res.Verified || res.Status != models.AlertStatusResolved {
		t.Errorf("verify result = %+v", res)
	}

	_, env = s.do(t, http.MethodGet, "/api/v1/sos/alerts/active", apiUser, "")
	if string(env.Data) != "[]" {
		t.Errorf("active alerts after resolve = %s, want []", env.Data)
	}

	rec, env = s.do(t, http.MethodPost, base+"/end", apiUser, "")
	if rec.Code != http.StatusOK || !decodeData[endMonitoringResponse](t, env).Ended {
		t.Fatalf("end: %d %s", rec.Code, rec.Body.String())
	}
	_, env = s.do(t, http.MethodPost, base+"/end", apiUser, "")
	if decodeData[endMonitoringResponse](t, env).Ended {
		t.Error("second end reported ended=true")
	}
}

func TestVerify_DuressResponseMatchesFull(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, testOptions{})
	s.setupProfile(t)

	fullID := s.triggerAlert(t)
	duressID := s.triggerAlert(t)

	_, fullEnv := s.do(t, http.MethodPost, "/api/v1/sos/alert/"+fullID+"/verify", apiUser, `{"password": "`+apiFull+`"}`)
	_, duressEnv := s.do(t, http.MethodPost, "/api/v1/sos/alert/"+duressID+"/verify", apiUser, `{"password": "`+apiPartial+`"}`)

	normalize := func(data json.RawMessage, id string) string {
		return strings.ReplaceAll(string(data), id, "ALERT")
	}
	if normalize(fullEnv.Data, fullID) != normalize(duressEnv.Data, duressID) {
		t.Errorf("responses differ:\nfull:   %s\nduress: %s", fullEnv.Data, duressEnv.Data)
	}
	if !fullEnv.Success || !duressEnv.Success {
		t.Error("both verifications should succeed")
	}
}

func TestVerify_WrongPasswordAndEscalation(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, testOptions{})
	s.setupProfile(t)
	alertID := s.triggerAlert(t)
	path := "/api/v1/sos/alert/" + alertID + "/verify"

	for i := 0; i < 3; i++ {
		rec, env := s.do(t, http.MethodPost, path, apiUser, `{"password": "wrong-guess"}`)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status %d", i+1, rec.Code)
		}
		if env.Error == nil || env.Error.Code != models.ErrCodeAuthentication || env.Error.Message != "incorrect password" {
			t.Fatalf("attempt %d: error = %+v", i+1, env.Error)
		}
		if env.Error.RequestID == "" {
			t.Error("error body has no request_id")
		}
	}

	// Escalated: even the correct password gets the same answer.
	rec, env := s.do(t, http.MethodPost, path, apiUser, `{"password": "`+apiFull+`"}`)
	if rec.Code != http.StatusUnauthorized || env.Error.Message != "incorrect password" {
		t.Errorf("after escalation: %d %+v", rec.Code, env.Error)
	}
}

func TestErrorMapping(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, testOptions{})
	s.setupProfile(t)

	tests := []struct {
		name     string
		method   string
		path     string
		user     string
		body     string
		wantCode int
		wantErr  string
	}{
		{"no user", http.MethodGet, "/api/v1/sos/profile", "", "", http.StatusUnauthorized, models.ErrCodeUnauthorized},
		{"profile of unknown user", http.MethodGet, "/api/v1/sos/profile", "nobody", "", http.StatusNotFound, models.ErrCodeNotFound},
		{"single point route", http.MethodPost, "/api/v1/sos/monitoring/start", apiUser, `{"planned_route": [{"latitude": 1, "longitude": 1}]}`, http.StatusBadRequest, models.ErrCodeValidation},
		{"threshold out of range", http.MethodPost, "/api/v1/sos/monitoring/start", apiUser, `{"planned_route": [{"latitude": 1, "longitude": 1}, {"latitude": 2, "longitude": 2}], "deviation_threshold": 50}`, http.StatusBadRequest, models.ErrCodeValidation},
		{"client route deviation", http.MethodPost, "/api/v1/sos/alert/trigger", apiUser, `{"alert_type": "route_deviation", "location": {"latitude": 1, "longitude": 1}}`, http.StatusBadRequest, models.ErrCodeValidation},
		{"missing location", http.MethodPost, "/api/v1/sos/alert/trigger", apiUser, `{"alert_type": "panic"}`, http.StatusBadRequest, models.ErrCodeValidation},
		{"latitude out of range", http.MethodPost, "/api/v1/sos/alert/trigger", apiUser, `{"alert_type": "panic", "location": {"latitude": 95, "longitude": 1}}`, http.StatusBadRequest, models.ErrCodeValidation},
		{"unknown field", http.MethodPut, "/api/v1/sos/settings", apiUser, `{"is_admin": true}`, http.StatusBadRequest, models.ErrCodeValidation},
		{"malformed json", http.MethodPost, "/api/v1/sos/contacts", apiUser, `{"name":`, http.StatusBadRequest, models.ErrCodeValidation},
		{"empty body", http.MethodPost, "/api/v1/sos/alert/x/verify", apiUser, "", http.StatusBadRequest, models.ErrCodeValidation},
		{"unknown monitoring", http.MethodGet, "/api/v1/sos/monitoring/does-not-exist", apiUser, "", http.StatusNotFound, models.ErrCodeNotFound},
		{"unknown alert", http.MethodPost, "/api/v1/sos/alert/does-not-exist/cancel", apiUser, "", http.StatusNotFound, models.ErrCodeNotFound},
		{"unsupported voice language", http.MethodPost, "/api/v1/sos/test/voice", apiUser, `{"language": "fr"}`, http.StatusBadRequest, models.ErrCodeValidation},
		{"unknown route", http.MethodGet, "/api/v1/sos/nope", apiUser, "", http.StatusNotFound, models.ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec, env := s.do(t, tt.method, tt.path, tt.user, tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if env.Success || env.Error == nil || env.Error.Code != tt.wantErr {
				t.Errorf("error = %+v, want code %s", env.Error, tt.wantErr)
			}
		})
	}
}

func TestOwnershipIsNotFound(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, testOptions{})
	s.setupProfile(t)
	monitoringID := s.startMonitoring(t)

	rec, _ := s.do(t, http.MethodGet, "/api/v1/sos/monitoring/"+monitoringID, "someone-else", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("foreign monitoring status = %d, want 404", rec.Code)
	}
}

func TestCancelAlert(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, testOptions{})
	s.setupProfile(t)
	alertID := s.triggerAlert(t)

	rec, env := s.do(t, http.MethodPost, "/api/v1/sos/alert/"+alertID+"/cancel", apiUser, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel: %d %s", rec.Code, rec.Body.String())
	}
	if got := decodeData[models.AlertView](t, env); got.Status != models.AlertStatusCancelled {
		t.Errorf("status = %s", got.Status)
	}

	rec, _ = s.do(t, http.MethodPost, "/api/v1/sos/alert/"+alertID+"/verify", apiUser, `{"password": "`+apiFull+`"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("verify after cancel = %d, want 404", rec.Code)
	}
}

func TestVoiceScriptEndpoint(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, testOptions{})
	s.setupProfile(t)

	rec, env := s.do(t, http.MethodPost, "/api/v1/sos/test/voice", apiUser, `{"language": "en", "local_area": "Kochi"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("voice: %d %s", rec.Code, rec.Body.String())
	}
	script := decodeData[sos.VoiceScript](t, env)
	if !script.IsTest || !strings.Contains(script.Primary, "Kochi") {
		t.Errorf("script = %+v", script)
	}
}

func TestVerifyRateLimit(t *testing.T) {
	t.Parallel()
	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitRequests = 1000
	cfg.VerifyRateLimitRequests = 2
	s := newTestServer(t, testOptions{chi: cfg})
	s.setupProfile(t)
	alertID := s.triggerAlert(t)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec, _ := s.do(t, http.MethodPost, "/api/v1/sos/alert/"+alertID+"/verify", apiUser, `{"password": "nope"}`)
		codes = append(codes, rec.Code)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want third request limited", codes)
	}
}

type staticCheck struct {
	name string
	err  error
}

func (c staticCheck) Name() string                  { return c.name }
func (c staticCheck) Check(_ context.Context) error { return c.err }

func TestHealth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		checks     []HealthChecker
		wantCode   int
		wantStatus string
	}{
		{"healthy", []HealthChecker{staticCheck{name: "store"}}, http.StatusOK, "healthy"},
		{"degraded", []HealthChecker{staticCheck{name: "store"}, staticCheck{name: "notify", err: errors.New("breaker open")}}, http.StatusServiceUnavailable, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := newTestServer(t, testOptions{checks: tt.checks})
			rec, env := s.do(t, http.MethodGet, "/api/v1/health", "", "")
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			health := decodeData[models.HealthStatus](t, env)
			if health.Status != tt.wantStatus || health.Version != "test" {
				t.Errorf("health = %+v", health)
			}
			if len(health.Components) != len(tt.checks) {
				t.Errorf("components = %v", health.Components)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, testOptions{})
	s.setupProfile(t)

	rec, _ := s.do(t, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "traveal_api_requests_total") {
		t.Error("metrics output missing API request counter")
	}
}

func TestClassifyError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantAPI  string
		wantMsg  string
	}{
		{"validation", models.NewValidationError("alert_type", "unknown alert type"), http.StatusBadRequest, models.ErrCodeValidation, "alert_type: unknown alert type"},
		{"not found", models.NewNotFoundError("alert", "a1"), http.StatusNotFound, models.ErrCodeNotFound, "alert not found or inactive"},
		{"authentication", models.NewAuthenticationError("incorrect password"), http.StatusUnauthorized, models.ErrCodeAuthentication, "incorrect password"},
		{"dependency", models.NewDependencyFailure("sms", errors.New("gateway 500 secret-host")), http.StatusBadGateway, models.ErrCodeExternal, "an external service is unavailable"},
		{"internal", models.NewInternalError("get alert", errors.New("disk full")), http.StatusInternalServerError, models.ErrCodeInternal, "internal server error"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, models.ErrCodeInternal, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			code, apiErr := classifyError(tt.err)
			if code != tt.wantCode || apiErr.Code != tt.wantAPI || apiErr.Message != tt.wantMsg {
				t.Errorf("classifyError() = %d %+v", code, apiErr)
			}
		})
	}
}

func TestSanitizeLogValue(t *testing.T) {
	t.Parallel()
	if got := sanitizeLogValue("a\nb\x7f"); got != `a\x0ab\x7f` {
		t.Errorf("sanitizeLogValue() = %q", got)
	}
}
