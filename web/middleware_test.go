package web_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skekre98/observers/config"
	"github.com/skekre98/observers/core"
	"github.com/skekre98/observers/events"
	"github.com/skekre98/observers/logging"
	"github.com/skekre98/observers/observer"
	"github.com/skekre98/observers/web"
)

type listener struct{}

func newEngine(t *testing.T, bus *events.Bus) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(web.RequestID(), web.RecoveryProblem(logging.Discard()), web.AccessLog(logging.Discard(), bus))
	r.GET("/ok/:id", func(c *gin.Context) { c.String(http.StatusOK, c.Param("id")) })
	r.GET("/missing", func(c *gin.Context) { web.Problem(c, http.StatusNotFound, "no such order") })
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })
	return r
}

func TestStatusClass(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{http.StatusOK, "2xx"},
		{http.StatusCreated, "2xx"},
		{http.StatusFound, "3xx"},
		{http.StatusNotFound, "4xx"},
		{http.StatusInternalServerError, "5xx"},
	}
	for _, tt := range tests {
		assert.Equal(t, observer.Named(tt.want), web.StatusClass(tt.status), "status %d", tt.status)
	}
}

func TestRequestID(t *testing.T) {
	r := newEngine(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok/1", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/ok/1", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
}

func TestRecoveryProblem(t *testing.T) {
	r := newEngine(t, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Internal Server Error", body["title"])
	assert.EqualValues(t, http.StatusInternalServerError, body["status"])
}

func TestAccessLog_FiresRequestCompleted(t *testing.T) {
	bus, err := events.New(events.WithLogger(logging.Discard()))
	require.NoError(t, err)

	var all, failures []web.RequestCompleted
	for _, o := range []struct {
		qualifiers []observer.Qualifier
		into       *[]web.RequestCompleted
	}{
		{nil, &all},
		{[]observer.Qualifier{observer.Named("4xx")}, &failures},
	} {
		om, err := observer.NewBuilder[web.RequestCompleted](reflect.TypeOf(listener{})).
			Qualifiers(o.qualifiers...).
			NotifyWith(func(evt web.RequestCompleted) { *o.into = append(*o.into, evt) }).
			Build()
		require.NoError(t, err)
		require.NoError(t, events.Register(bus, om))
	}

	r := newEngine(t, bus)
	for _, path := range []string{"/ok/7", "/missing"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("X-Request-ID", "req-"+path)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	require.Len(t, all, 2)
	assert.Equal(t, "/ok/:id", all[0].Path)
	assert.Equal(t, http.StatusOK, all[0].Status)
	assert.Equal(t, "req-/ok/7", all[0].RequestID)
	require.Len(t, failures, 1)
	assert.Equal(t, http.StatusNotFound, failures[0].Status)
	assert.Equal(t, http.MethodGet, failures[0].Method)
}

func TestModule_ConfigureBuildsEngine(t *testing.T) {
	cfg, _, err := config.Load(config.Options{}, &config.MapSource{Values: map[string]any{
		"app":    map[string]any{"name": "orders", "version": "1.0.0"},
		"server": map[string]any{"addr": "127.0.0.1:0"},
	}})
	require.NoError(t, err)

	c := core.NewContainer()
	core.Put[*config.Root](c, cfg)
	core.Put[*slog.Logger](c, logging.Discard())

	mod := web.Module(web.WithRoutes(func(r web.Router) {
		r.GET("/hello", func(c *gin.Context) { c.String(http.StatusOK, "world") })
	}))
	assert.Equal(t, []string{events.Name}, mod.DependsOn())
	require.NoError(t, mod.Configure(c))

	w := httptest.NewRecorder()
	web.Engine(c).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/hello", nil))
	assert.Equal(t, "world", w.Body.String())
	assert.Equal(t, "127.0.0.1:0", core.Get[*http.Server](c).Addr)

	require.NoError(t, mod.Start(context.Background(), c))
	require.NoError(t, mod.Stop(context.Background(), c))
}
