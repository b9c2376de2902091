package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ovaphlow/pitchfork/service-charging-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-charging-go/internal/httpx"
	"github.com/ovaphlow/pitchfork/service-charging-go/internal/mocks"
	"github.com/ovaphlow/pitchfork/service-charging-go/internal/station"
	"github.com/ovaphlow/pitchfork/service-charging-go/internal/station/entity"
	"github.com/ovaphlow/pitchfork/service-charging-go/internal/token"
	"github.com/ovaphlow/pitchfork/service-charging-go/internal/user"
	"github.com/ovaphlow/pitchfork/service-charging-go/pkg/utilities"
)

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

type fixture struct {
	handler  http.Handler
	tokens   *token.Service
	stations *mocks.MockStationStore
	users    *mocks.MockUserStore
	logs     *observer.ObservedLogs
}

func newFixture(t *testing.T, db Pinger) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core).Sugar()
	resp := httpx.NewResponder(logger, false)

	tokens := token.NewService("router-secret", time.Hour)
	userStore := mocks.NewMockUserStore(ctrl)
	stationStore := mocks.NewMockStationStore(ctrl)

	h := RegisterRoutes(Deps{
		Logger:    logger,
		Responder: resp,
		DB:        db,
		Gateway:   auth.NewGateway(tokens),
		Users:     user.NewHandler(user.NewUserService(userStore, nil), tokens, resp, logger),
		Stations:  station.NewHandler(station.NewService(stationStore), resp, logger),
	})
	return &fixture{handler: h, tokens: tokens, stations: stationStore, users: userStore, logs: logs}
}

func (f *fixture) do(t *testing.T, method, path string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) bearer(t *testing.T, userID string) http.Header {
	t.Helper()
	tok, _, err := f.tokens.Issue(userID, userID+"@example.com")
	require.NoError(t, err)
	return http.Header{"Authorization": {"Bearer " + tok}}
}

func TestRoot(t *testing.T) {
	f := newFixture(t, fakePinger{})
	rec := f.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"EV Charging Station API"}`, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/nope", nil).Code)
}

func TestHealth(t *testing.T) {
	rec := newFixture(t, fakePinger{}).do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = newFixture(t, fakePinger{err: errors.New("down")}).do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStationRoutesRequireAuth(t *testing.T) {
	f := newFixture(t, fakePinger{})
	id := utilities.NewKSUID()

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/charging-stations"},
		{http.MethodPost, "/api/charging-stations"},
		{http.MethodGet, "/api/charging-stations/" + id},
		{http.MethodPut, "/api/charging-stations/" + id},
		{http.MethodDelete, "/api/charging-stations/" + id},
		{http.MethodGet, "/api/auth/me"},
	} {
		rec := f.do(t, tc.method, tc.path, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, tc.method+" "+tc.path)
	}

	rec := f.do(t, http.MethodGet, "/api/charging-stations", http.Header{"Authorization": {"Bearer forged"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestStationRoutes_EmptyAndUndefinedID(t *testing.T) {
	f := newFixture(t, fakePinger{})
	hdr := f.bearer(t, "u1")

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		for _, path := range []string{"/api/charging-stations/", "/api/charging-stations/undefined"} {
			rec := f.do(t, method, path, hdr)
			assert.Equal(t, http.StatusBadRequest, rec.Code, method+" "+path)
			assert.Contains(t, rec.Body.String(), "Invalid station ID")
		}
	}
}

func TestStationRoutes_GetWithToken(t *testing.T) {
	f := newFixture(t, fakePinger{})
	st := &entity.Station{ID: utilities.NewKSUID(), Name: "Downtown", CreatedBy: "u1", Location: entity.Location{Type: "Point"}}
	f.stations.EXPECT().Get(gomock.Any(), st.ID).Return(st, nil)

	rec := f.do(t, http.MethodGet, "/api/charging-stations/"+st.ID, f.bearer(t, "u2"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"createdBy":"u1"`)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestMiddlewareHeadersAndLogging(t *testing.T) {
	f := newFixture(t, fakePinger{})
	rec := f.do(t, http.MethodGet, "/api/health", nil)

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	reqID := rec.Header().Get("X-Request-ID")
	assert.NotEmpty(t, reqID)

	entries := f.logs.FilterMessage("http request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, reqID, fields["request_id"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
	assert.Equal(t, zap.InfoLevel, entries[0].Level)

	f.do(t, http.MethodGet, "/api/charging-stations", nil)
	last := f.logs.FilterMessage("http request").All()
	assert.Equal(t, zap.WarnLevel, last[len(last)-1].Level)
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, fakePinger{})
	rec := f.do(t, http.MethodOptions, "/api/charging-stations", http.Header{
		"Origin":                         {"http://localhost:5173"},
		"Access-Control-Request-Method":  {"PUT"},
		"Access-Control-Request-Headers": {"authorization,content-type"},
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.True(t, strings.Contains(rec.Header().Get("Access-Control-Allow-Methods"), "PUT"))
}

func TestCORS_RestrictedOrigins(t *testing.T) {
	h := CORSMiddleware([]string{"https://app.example.com"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://app.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoveryMiddleware(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	logger := zap.New(core).Sugar()
	h := RecoveryMiddleware(logger, httpx.NewResponder(logger, false))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() { h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil)) })
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message":"Something went wrong!"}`, rec.Body.String())
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}
