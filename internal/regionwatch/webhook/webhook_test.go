package webhook

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjzar/regionwatch/internal/event"
	"github.com/sjzar/regionwatch/internal/model"
	"github.com/sjzar/regionwatch/internal/regionwatch/conf"
)

type testConfig struct {
	webhook *conf.Webhook
}

func (c testConfig) GetWebhook() *conf.Webhook { return c.webhook }

type received struct {
	mu     sync.Mutex
	events []map[string]any
}

func (r *received) handler(w http.ResponseWriter, req *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(req.Body).Decode(&body)
	r.mu.Lock()
	r.events = append(r.events, body)
	r.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (r *received) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func heartbeat(state model.ProcessState) model.ProcessCheckResult {
	return model.ProcessCheckResult{CheckedOn: time.Now(), State: state}
}

func TestForwardsStateChangesOnly(t *testing.T) {
	var got received
	ts := httptest.NewServer(http.HandlerFunc(got.handler))
	defer ts.Close()

	bus := event.NewBus()
	s := New(testConfig{&conf.Webhook{Items: []*conf.WebhookItem{{URL: ts.URL}}}}, bus)
	require.NoError(t, s.Start())

	bus.Emit(event.ProcessCheck, heartbeat(model.StateRunning))
	bus.Emit(event.ProcessCheck, heartbeat(model.StateRunning))
	bus.Emit(event.ProcessCheck, heartbeat(model.Listening("EUC")))
	bus.Emit(event.ProcessCheck, heartbeat(model.Listening("EUC")))
	bus.Emit(event.Updater, model.UpdaterResult{State: model.UpdaterStateLatest})

	require.Eventually(t, func() bool { return got.len() == 2 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Stop())

	got.mu.Lock()
	defer got.mu.Unlock()
	for _, e := range got.events {
		assert.Equal(t, event.ProcessCheck, e["name"])
	}
}

func TestUpdaterHook(t *testing.T) {
	var got received
	ts := httptest.NewServer(http.HandlerFunc(got.handler))
	defer ts.Close()

	bus := event.NewBus()
	s := New(testConfig{&conf.Webhook{Items: []*conf.WebhookItem{
		{Type: "updater", URL: ts.URL},
		{Type: "state", URL: ts.URL, Disabled: true},
		{Type: "bogus", URL: ts.URL},
	}}}, bus)
	require.Len(t, s.hooks, 1)
	require.NoError(t, s.Start())

	bus.Emit(event.ProcessCheck, heartbeat(model.StateRunning))
	bus.Emit(event.Updater, model.UpdaterResult{State: model.UpdaterStateNewVersion})

	require.Eventually(t, func() bool { return got.len() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Stop())

	got.mu.Lock()
	defer got.mu.Unlock()
	assert.Equal(t, event.Updater, got.events[0]["name"])
}

func TestNoHooks(t *testing.T) {
	bus := event.NewBus()
	s := New(testConfig{}, bus)
	require.NoError(t, s.Start())
	assert.Nil(t, s.unsubscribe)
	require.NoError(t, s.Stop())
}

func TestPostFailureIsLogged(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	ts.Close()

	hook := NewPostWebhook(&conf.WebhookItem{URL: ts.URL})
	hook.Do(event.Event{Name: event.Settings, Payload: model.Settings{}})
}
