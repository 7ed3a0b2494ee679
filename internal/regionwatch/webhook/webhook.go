package webhook

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sjzar/regionwatch/internal/event"
	"github.com/sjzar/regionwatch/internal/model"
	"github.com/sjzar/regionwatch/internal/regionwatch/conf"
)

// eventBuffer 订阅缓冲，转发跟不上时丢弃事件
const eventBuffer = 32

// hook type -> bus event name
var hookEvents = map[string]string{
	"state":     event.ProcessCheck,
	"updater":   event.Updater,
	"encounter": event.EncounterUpdate,
	"settings":  event.Settings,
}

type Config interface {
	GetWebhook() *conf.Webhook
}

type Events interface {
	Subscribe(buffer int) (<-chan event.Event, func())
}

type Webhook interface {
	Do(e event.Event)
}

// Service forwards bus events to the configured URLs.
// process-check heartbeats are only forwarded when the displayed state changes.
type Service struct {
	config *conf.Webhook
	events Events
	hooks  map[string][]Webhook

	mu          sync.Mutex
	unsubscribe func()
	done        chan struct{}
	inflight    sync.WaitGroup
}

func New(config Config, events Events) *Service {
	s := &Service{
		config: config.GetWebhook(),
		events: events,
	}

	if s.config == nil {
		return s
	}

	hooks := make(map[string][]Webhook)
	for _, item := range s.config.Items {
		if item.Disabled {
			continue
		}
		if item.Type == "" {
			item.Type = "state"
		}
		name, ok := hookEvents[item.Type]
		if !ok {
			log.Error().Msgf("unknown webhook type: %s", item.Type)
			continue
		}
		hooks[name] = append(hooks[name], NewPostWebhook(item))
	}
	s.hooks = hooks

	return s
}

// Start subscribes to the bus. It does nothing when no hook is enabled.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.hooks) == 0 || s.unsubscribe != nil {
		return nil
	}

	ch, unsubscribe := s.events.Subscribe(eventBuffer)
	s.unsubscribe = unsubscribe
	s.done = make(chan struct{})
	go s.loop(ch, s.done)

	log.Info().Msgf("webhook forwarding %d event kinds", len(s.hooks))
	return nil
}

// Stop unsubscribes and waits for requests already in flight.
func (s *Service) Stop() error {
	s.mu.Lock()
	unsubscribe, done := s.unsubscribe, s.done
	s.unsubscribe, s.done = nil, nil
	s.mu.Unlock()

	if unsubscribe == nil {
		return nil
	}
	unsubscribe()
	<-done
	s.inflight.Wait()
	return nil
}

func (s *Service) loop(ch <-chan event.Event, done chan struct{}) {
	defer close(done)

	last := model.StateUnknown
	seen := false
	for e := range ch {
		hooks := s.hooks[e.Name]
		if len(hooks) == 0 {
			continue
		}

		if e.Name == event.ProcessCheck {
			r, ok := e.Payload.(model.ProcessCheckResult)
			if !ok || (seen && r.State == last) {
				continue
			}
			last, seen = r.State, true
		}

		if s.config.DelayMs > 0 {
			time.Sleep(time.Duration(s.config.DelayMs) * time.Millisecond)
		}
		s.do(e, hooks)
	}
}

func (s *Service) do(e event.Event, hooks []Webhook) {
	for _, hook := range hooks {
		s.inflight.Add(1)
		go func(hook Webhook) {
			defer s.inflight.Done()
			hook.Do(e)
		}(hook)
	}
}

type PostWebhook struct {
	conf   *conf.WebhookItem
	client *http.Client
}

func NewPostWebhook(conf *conf.WebhookItem) *PostWebhook {
	return &PostWebhook{
		conf:   conf,
		client: &http.Client{Timeout: time.Second * 10},
	}
}

func (p *PostWebhook) Do(e event.Event) {
	body, err := json.Marshal(e)
	if err != nil {
		log.Error().Err(err).Msgf("marshal %s event failed", e.Name)
		return
	}
	req, err := http.NewRequest(http.MethodPost, p.conf.URL, bytes.NewBuffer(body))
	if err != nil {
		log.Error().Err(err).Msgf("invalid webhook url %s", p.conf.URL)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	log.Debug().Msgf("post %s event to %s", e.Name, p.conf.URL)
	resp, err := p.client.Do(req)
	if err != nil {
		log.Error().Err(err).Msgf("post %s event failed", e.Name)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Error().Msgf("post %s event failed, status code: %d", e.Name, resp.StatusCode)
	}
}
