package actuator_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skekre98/observers/actuator"
	"github.com/skekre98/observers/config"
	"github.com/skekre98/observers/core"
	"github.com/skekre98/observers/events"
	"github.com/skekre98/observers/logging"
	"github.com/skekre98/observers/observer"
	"github.com/skekre98/observers/web"
)

type paymentCaptured struct{ Amount int }

type billing struct{}

func (billing) AfterBeanDiscovery(abd *events.AfterBeanDiscovery) error {
	events.AddObserverMethod[paymentCaptured](abd).
		AddQualifier(observer.Named("card")).
		TransactionPhase(observer.AfterSuccess).
		NotifyWith(func(paymentCaptured) {})
	return nil
}

func setup(t *testing.T) *gin.Engine {
	t.Helper()
	engine, _, _ := setupWith(t, nil)
	return engine
}

func setupWith(t *testing.T, extra map[string]any) (*gin.Engine, *config.MapSource, *config.Manager) {
	t.Helper()
	overlay := &config.MapSource{Values: map[string]any{
		"app": map[string]any{"name": "orders", "version": "1.2.3"},
	}}
	for k, v := range extra {
		overlay.Values[k] = v
	}
	cfg, mgr, err := config.Load(config.Options{}, overlay)
	require.NoError(t, err)

	c := core.NewContainer()
	core.Put[*config.Root](c, cfg)
	core.Put[*config.Manager](c, mgr)
	core.Put[*slog.Logger](c, logging.Discard())
	core.Put[prometheus.Registerer](c, prometheus.NewRegistry())

	for _, m := range []core.Module{events.Module(billing{}), web.Module(), actuator.Module()} {
		require.NoError(t, m.Configure(c))
	}
	return web.Engine(c), overlay, mgr
}

func get(t *testing.T, r http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestActuator_Health(t *testing.T) {
	w := get(t, setup(t), "/actuator/health")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status string `json:"status"`
		Checks []struct {
			Name      string `json:"name"`
			Observers int    `json:"observers"`
		} `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "UP", body.Status)
	require.Len(t, body.Checks, 1)
	assert.Equal(t, events.Name, body.Checks[0].Name)
	assert.Equal(t, 1, body.Checks[0].Observers)
}

func TestActuator_Info(t *testing.T) {
	w := get(t, setup(t), "/actuator/info")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "orders", body["app"]["name"])
	assert.Equal(t, "1.2.3", body["app"]["version"])
	assert.NotEmpty(t, body["runtime"]["go"])
}

func TestActuator_Observers(t *testing.T) {
	w := get(t, setup(t), "/actuator/observers")
	require.Equal(t, http.StatusOK, w.Code)

	var got []events.Description
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "github.com/skekre98/observers/actuator_test.billing", got[0].BeanClass)
	assert.Equal(t, "github.com/skekre98/observers/actuator_test.paymentCaptured", got[0].ObservedType)
	assert.Equal(t, []observer.Qualifier{observer.Named("card")}, got[0].Qualifiers)
	assert.Equal(t, observer.AfterSuccess, got[0].TransactionPhase)
	assert.Equal(t, observer.DefaultPriority, got[0].Priority)
}

func TestActuator_Metrics(t *testing.T) {
	w := get(t, setup(t), "/actuator/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "observers_registered 1")
}

func TestActuator_MetricsAtConfiguredPath(t *testing.T) {
	r, _, _ := setupWith(t, map[string]any{
		"observability": map[string]any{"metrics": map[string]any{"path": "/internal/metrics"}},
	})

	w := get(t, r, "/internal/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "observers_registered 1")
	assert.Equal(t, http.StatusNotFound, get(t, r, "/actuator/metrics").Code)
}

func TestActuator_InfoFollowsReload(t *testing.T) {
	r, overlay, mgr := setupWith(t, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			get(t, r, "/actuator/info")
		}
	}()
	overlay.Values = map[string]any{"app": map[string]any{"name": "orders", "version": "2.0.0"}}
	require.NoError(t, mgr.Reload(context.Background()))
	<-done

	var body struct {
		App struct {
			Version string `json:"version"`
		} `json:"app"`
	}
	require.NoError(t, json.Unmarshal(get(t, r, "/actuator/info").Body.Bytes(), &body))
	assert.Equal(t, "2.0.0", body.App.Version)
}
