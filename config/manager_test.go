package config_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skekre98/observers/config"
	"github.com/skekre98/observers/observer"
)

// mockSource is a test implementation of config.ConfigSource
type mockSource struct {
	name    string
	mu      sync.RWMutex
	data    map[string]any
	errVal  error
	changes chan struct{}
}

func (m *mockSource) Name() string { return m.name }

func (m *mockSource) Load(ctx context.Context) (map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.errVal != nil {
		return nil, m.errVal
	}
	src := &config.MapSource{Values: m.data}
	return src.Load(ctx)
}

func (m *mockSource) set(data map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
}

func (m *mockSource) Watch(ctx context.Context, ch chan<- config.Event) error {
	if m.changes == nil {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.changes:
			ch <- config.Event{}
		}
	}
}

type appConfig struct {
	Name  string                   `config:"name" validate:"required"`
	Port  int                      `config:"port" validate:"required,min=1,max=65535"`
	Phase observer.TransactionPhase `config:"phase"`
	Tags  []string                 `config:"tags"`
	Wait  time.Duration            `config:"wait"`
}

func TestNewManager_BindsLayeredSources(t *testing.T) {
	base := &mockSource{name: "base", data: map[string]any{
		"name": "orders",
		"port": 8080,
		"tags": "a,b",
		"wait": "3s",
	}}
	override := &mockSource{name: "override", data: map[string]any{
		"port":  "9090",
		"phase": "after_success",
	}}

	var cfg appConfig
	_, err := config.NewManager(&cfg, config.Options{}, base, override)
	require.NoError(t, err)

	assert.Equal(t, appConfig{
		Name:  "orders",
		Port:  9090,
		Phase: observer.AfterSuccess,
		Tags:  []string{"a", "b"},
		Wait:  3 * time.Second,
	}, cfg)
}

func TestNewManager_Errors(t *testing.T) {
	loadErr := errors.New("load error")

	tests := []struct {
		name    string
		source  *mockSource
		target  any
		wantErr error
		stage   string
	}{
		{
			name:    "load failure",
			source:  &mockSource{name: "broken", errVal: loadErr},
			target:  &appConfig{},
			wantErr: loadErr,
		},
		{
			name:   "validation failure",
			source: &mockSource{name: "test", data: map[string]any{"name": "x", "port": 70000}},
			target: &appConfig{},
			stage:  "validate",
		},
		{
			name:   "decode failure",
			source: &mockSource{name: "test", data: map[string]any{"name": "x", "port": 1, "phase": "tomorrow"}},
			target: &appConfig{},
			stage:  "decode",
		},
		{
			name:   "target not a struct pointer",
			source: &mockSource{name: "test"},
			target: appConfig{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.NewManager(tt.target, config.Options{}, tt.source)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.stage != "" {
				var bindErr *config.BindError
				require.ErrorAs(t, err, &bindErr)
				assert.Equal(t, tt.stage, bindErr.Stage)
			}
		})
	}
}

func TestManager_ReloadKeepsConfigOnFailure(t *testing.T) {
	src := &mockSource{name: "test", data: map[string]any{"name": "orders", "port": 8080}}

	var cfg appConfig
	mgr, err := config.NewManager(&cfg, config.Options{}, src)
	require.NoError(t, err)

	src.set(map[string]any{"name": "", "port": 8081})
	require.Error(t, mgr.Reload(context.Background()))

	assert.Equal(t, "orders", cfg.Name)
	assert.Equal(t, 8080, cfg.Port)
}

func TestManager_ReloadCancelled(t *testing.T) {
	src := &mockSource{name: "test", data: map[string]any{"name": "orders", "port": 8080}}
	var cfg appConfig
	mgr, err := config.NewManager(&cfg, config.Options{}, src)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, mgr.Reload(ctx), context.Canceled)
}

func TestManager_SubscribeReceivesChangedKeys(t *testing.T) {
	src := &mockSource{name: "test", data: map[string]any{"name": "orders", "port": 8080}}
	var cfg appConfig
	mgr, err := config.NewManager(&cfg, config.Options{}, src)
	require.NoError(t, err)

	ch := make(chan config.Event, 2)
	mgr.Subscribe(ch)

	// identical reload: no event
	require.NoError(t, mgr.Reload(context.Background()))
	assert.Empty(t, ch)

	src.set(map[string]any{"name": "orders", "port": 9000})
	require.NoError(t, mgr.Reload(context.Background()))

	require.Len(t, ch, 1)
	evt := <-ch
	assert.Equal(t, []string{"Port"}, evt.ChangedKeys)
	assert.True(t, evt.Changed("Port"))
	assert.False(t, evt.Changed("Name"))
	assert.Equal(t, 8080, evt.OldConfig.(*appConfig).Port)
	assert.Equal(t, 9000, evt.NewConfig.(*appConfig).Port)
}

func TestManager_AutoReload(t *testing.T) {
	src := &mockSource{
		name:    "watched",
		data:    map[string]any{"name": "orders", "port": 8080},
		changes: make(chan struct{}),
	}
	var cfg appConfig
	mgr, err := config.NewManager(&cfg, config.Options{AutoReload: true}, src)
	require.NoError(t, err)
	defer mgr.Close()

	events := make(chan config.Event, 1)
	mgr.Subscribe(events)

	src.set(map[string]any{"name": "orders", "port": 8181})
	src.changes <- struct{}{}

	select {
	case evt := <-events:
		assert.Equal(t, []string{"Port"}, evt.ChangedKeys)
	case <-time.After(2 * time.Second):
		t.Fatal("no reload event")
	}

	var snap appConfig
	require.NoError(t, mgr.Snapshot(&snap))
	assert.Equal(t, 8181, snap.Port)
	assert.Error(t, mgr.Snapshot(&struct{}{}))
}

func TestLoad_AppliesDefaults(t *testing.T) {
	src := &mockSource{name: "app", data: map[string]any{
		"app":    map[string]any{"name": "orders", "version": "1.0.0"},
		"events": map[string]any{"asyncWorkers": 2, "overrides": map[string]any{"main.audit": map[string]any{"priority": 5}}},
	}}

	cfg, mgr, err := config.Load(config.Options{}, src)
	require.NoError(t, err)
	require.NotNil(t, mgr)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "/actuator", cfg.Actuator.BasePath)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 2, cfg.Events.AsyncWorkers)
	assert.True(t, cfg.Events.ResolutionCache)
	assert.Equal(t, 10*time.Second, cfg.Events.ShutdownTimeout)
	require.Contains(t, cfg.Events.Overrides, "main.audit")
	require.NotNil(t, cfg.Events.Overrides["main.audit"].Priority)
	assert.Equal(t, 5, *cfg.Events.Overrides["main.audit"].Priority)
	assert.Nil(t, cfg.Events.Overrides["main.audit"].Async)
}

func TestLoad_RejectsInvalidLogging(t *testing.T) {
	src := &mockSource{name: "app", data: map[string]any{
		"app":     map[string]any{"name": "orders", "version": "1.0.0"},
		"logging": map[string]any{"level": "loud"},
	}}

	_, _, err := config.Load(config.Options{}, src)
	var bindErr *config.BindError
	require.ErrorAs(t, err, &bindErr)
	assert.Equal(t, "validate", bindErr.Stage)
	assert.ErrorContains(t, err, "Root.logging.level")
}

func TestManager_ReloadPublishesFreshValue(t *testing.T) {
	src := &mockSource{name: "test", data: map[string]any{"name": "orders", "port": 8080}}
	var cfg appConfig
	mgr, err := config.NewManager(&cfg, config.Options{}, src)
	require.NoError(t, err)
	require.Same(t, &cfg, config.Current[appConfig](mgr))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				cur := config.Current[appConfig](mgr)
				_ = cur.Name + strconv.Itoa(cur.Port)
				var snap appConfig
				_ = mgr.Snapshot(&snap)
			}
		}()
	}
	for port := 9000; port < 9020; port++ {
		src.set(map[string]any{"name": "orders", "port": port})
		require.NoError(t, mgr.Reload(context.Background()))
	}
	close(stop)
	wg.Wait()

	assert.Equal(t, 8080, cfg.Port, "the initial struct is not written by reloads")
	assert.Equal(t, 9019, config.Current[appConfig](mgr).Port)
	assert.Nil(t, config.Current[struct{ Port int }](mgr))
}
