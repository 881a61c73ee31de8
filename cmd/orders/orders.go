package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/skekre98/observers/events"
	"github.com/skekre98/observers/observer"
	"github.com/skekre98/observers/web"
)

// OrderPlaced is fired inside the order transaction, qualified with the
// order's region.
type OrderPlaced struct {
	ID       string    `json:"id"`
	Item     string    `json:"item"`
	Quantity int       `json:"quantity"`
	Region   string    `json:"region"`
	PlacedAt time.Time `json:"placedAt"`
}

type Order struct {
	OrderPlaced
	Confirmed bool `json:"confirmed"`
}

var errOutOfStock = errors.New("out of stock")

type inventory struct {
	mu    sync.Mutex
	items map[string]int
}

func newInventory(items map[string]int) *inventory {
	return &inventory{items: items}
}

func (i *inventory) reserve(item string, qty int) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.items[item] < qty {
		return fmt.Errorf("%w: %s", errOutOfStock, item)
	}
	i.items[item] -= qty
	return nil
}

type orderStore struct {
	mu     sync.RWMutex
	orders map[string]*Order
}

func newOrderStore() *orderStore {
	return &orderStore{orders: make(map[string]*Order)}
}

func (s *orderStore) put(o *Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
}

func (s *orderStore) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.orders, id)
}

func (s *orderStore) confirm(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[id]; ok {
		o.Confirmed = true
	}
}

func (s *orderStore) get(id string) (Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return Order{}, false
	}
	return *o, true
}

// salesReport tallies placed quantities per region. Its observer only runs
// while a *salesReport is registered in the container.
type salesReport struct {
	mu       sync.Mutex
	byRegion map[string]int
}

func newSalesReport() *salesReport {
	return &salesReport{byRegion: make(map[string]int)}
}

func (r *salesReport) add(o OrderPlaced) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byRegion[o.Region] += o.Quantity
}

func (r *salesReport) total(region string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byRegion[region]
}

// ordersExtension contributes the order observers.
type ordersExtension struct {
	logger *slog.Logger
	store  *orderStore
	stock  *inventory
	report *salesReport
	// notify is called by the asynchronous confirmation mailer.
	notify func(OrderPlaced)
}

func (e *ordersExtension) AfterBeanDiscovery(abd *events.AfterBeanDiscovery) error {
	events.AddObserverMethod[OrderPlaced](abd).
		Priority(100).
		NotifyWithMetadata(func(o OrderPlaced, meta observer.EventMetadata) {
			e.logger.Info("order audited", "order", o.ID, "event", meta.ID, "qualifiers", meta.Qualifiers.Key())
		})

	events.AddObserverMethod[OrderPlaced](abd).
		TransactionPhase(observer.BeforeCompletion).
		NotifyWith(func(o OrderPlaced) {
			if err := e.stock.reserve(o.Item, o.Quantity); err != nil {
				panic(err)
			}
		})

	events.AddObserverMethod[OrderPlaced](abd).
		TransactionPhase(observer.AfterSuccess).
		NotifyWith(func(o OrderPlaced) { e.store.confirm(o.ID) })

	events.AddObserverMethod[OrderPlaced](abd).
		TransactionPhase(observer.AfterFailure).
		NotifyWith(func(o OrderPlaced) { e.store.remove(o.ID) })

	events.AddObserverMethod[OrderPlaced](abd).
		Async(true).
		NotifyWith(func(o OrderPlaced) {
			if e.notify != nil {
				e.notify(o)
			}
		})

	events.AddObserverMethod[OrderPlaced](abd).
		BeanClass(reflect.TypeFor[salesReport]()).
		Reception(observer.ReceptionIfExists).
		NotifyWith(e.report.add)

	events.AddObserverMethod[web.RequestCompleted](abd).
		AddQualifier(web.StatusClass(http.StatusInternalServerError)).
		NotifyWith(func(r web.RequestCompleted) {
			e.logger.Warn("request failed", "path", r.Path, "status", r.Status, "req_id", r.RequestID)
		})
	return nil
}

type orderRequest struct {
	Item     string `json:"item" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,min=1"`
	Region   string `json:"region" binding:"omitempty,alpha"`
}

// routes registers the order endpoints. bus is resolved lazily because the
// events module configures it before the web module calls routes.
func routes(bus func() *events.Bus, store *orderStore, l *slog.Logger) func(r web.Router) {
	return func(r web.Router) {
		b := bus()
		h := &orderHandler{bus: b, placed: events.NewEvent[OrderPlaced](b, "orders.placed"), store: store, logger: l}
		r.POST("/orders", h.create)
		r.GET("/orders/:id", h.get)
	}
}

type orderHandler struct {
	bus    *events.Bus
	placed events.Event[OrderPlaced]
	store  *orderStore
	logger *slog.Logger
}

func (h *orderHandler) create(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.Problem(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.Region == "" {
		req.Region = "global"
	}

	evt := OrderPlaced{
		ID:       uuid.NewString(),
		Item:     req.Item,
		Quantity: req.Quantity,
		Region:   req.Region,
		PlacedAt: time.Now().UTC(),
	}
	h.store.put(&Order{OrderPlaced: evt})

	tx, ctx := h.bus.Begin(c.Request.Context())
	placed := h.placed.Select(observer.Named(evt.Region))
	if err := placed.Fire(ctx, evt); err != nil {
		_ = tx.Rollback()
		h.logger.Error("order observers failed", "order", evt.ID, "error", err)
		web.Problem(c, http.StatusInternalServerError, "order could not be placed")
		return
	}
	if err := tx.Commit(); err != nil {
		if errors.Is(err, events.ErrRolledBack) {
			web.Problem(c, http.StatusConflict, err.Error())
			return
		}
		h.logger.Warn("order committed with observer failures", "order", evt.ID, "error", err)
	}

	// Confirmation mail is best effort and outlives the request.
	placed.FireAsync(context.WithoutCancel(ctx), evt)

	o, _ := h.store.get(evt.ID)
	c.JSON(http.StatusCreated, o)
}

func (h *orderHandler) get(c *gin.Context) {
	o, ok := h.store.get(c.Param("id"))
	if !ok {
		web.Problem(c, http.StatusNotFound, "order not found")
		return
	}
	c.JSON(http.StatusOK, o)
}
