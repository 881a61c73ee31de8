package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skekre98/observers/config"
	"github.com/skekre98/observers/core"
	"github.com/skekre98/observers/events"
	"github.com/skekre98/observers/logging"
	"github.com/skekre98/observers/web"
)

type fixture struct {
	engine *gin.Engine
	store  *orderStore
	report *salesReport
	sent   chan OrderPlaced
}

func newFixture(t *testing.T, withReport bool) *fixture {
	t.Helper()
	cfg, _, err := config.Load(config.Options{}, &config.MapSource{Values: map[string]any{
		"app": map[string]any{"name": "orders", "version": "test"},
	}})
	require.NoError(t, err)

	f := &fixture{store: newOrderStore(), report: newSalesReport(), sent: make(chan OrderPlaced, 4)}
	ext := &ordersExtension{
		logger: logging.Discard(),
		store:  f.store,
		stock:  newInventory(map[string]int{"book": 5, "desk": 2}),
		report: f.report,
		notify: func(o OrderPlaced) { f.sent <- o },
	}

	c := core.NewContainer()
	core.Put[*config.Root](c, cfg)
	core.Put[*slog.Logger](c, logging.Discard())
	core.Put[prometheus.Registerer](c, prometheus.NewRegistry())
	if withReport {
		core.Put[*salesReport](c, f.report)
	}

	mods := []core.Module{
		events.Module(ext),
		web.Module(web.WithRoutes(routes(func() *events.Bus { return events.FromContainer(c) }, f.store, logging.Discard()))),
	}
	for _, m := range mods {
		require.NoError(t, m.Configure(c))
	}
	f.engine = web.Engine(c)
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	f.engine.ServeHTTP(w, req)
	return w
}

func TestOrders_PlaceCommitsAndConfirms(t *testing.T) {
	f := newFixture(t, true)

	w := f.do(http.MethodPost, "/orders", `{"item":"book","quantity":2,"region":"eu"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.Confirmed)
	assert.Equal(t, 2, f.report.total("eu"))

	select {
	case o := <-f.sent:
		assert.Equal(t, created.ID, o.ID)
	case <-time.After(time.Second):
		t.Fatal("confirmation was not sent")
	}

	w = f.do(http.MethodGet, "/orders/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var fetched Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	assert.Equal(t, created.ID, fetched.ID)
}

func TestOrders_OutOfStockRollsBack(t *testing.T) {
	f := newFixture(t, true)

	w := f.do(http.MethodPost, "/orders", `{"item":"desk","quantity":3}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "out of stock")

	f.store.mu.RLock()
	assert.Empty(t, f.store.orders, "rolled back orders are removed")
	f.store.mu.RUnlock()
	assert.Empty(t, f.sent)
}

func TestOrders_ReportRequiresInstance(t *testing.T) {
	f := newFixture(t, false)

	w := f.do(http.MethodPost, "/orders", `{"item":"book","quantity":1}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Zero(t, f.report.total("global"))
}

func TestOrders_InvalidRequest(t *testing.T) {
	f := newFixture(t, true)

	for _, body := range []string{`{}`, `{"item":"book","quantity":0}`, `{"item":"book","quantity":1,"region":"e-u"}`, `not json`} {
		w := f.do(http.MethodPost, "/orders", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/orders/nope", "").Code)
}
