package event

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// 事件名称
const (
	ProcessCheck    = "process-check"
	Updater         = "updater"
	EncounterUpdate = "encounter-update"
	Settings        = "settings"
)

type Event struct {
	Name    string    `json:"name"`
	Payload any       `json:"payload"`
	Time    time.Time `json:"time"`
}

// Sink receives fire-and-forget events for the frontend.
type Sink interface {
	Emit(name string, payload any)
}

// Bus fans events out to every subscriber and remembers the last event of each name.
// A subscriber that is not keeping up loses events instead of blocking the publisher.
type Bus struct {
	mu   sync.RWMutex
	subs map[uint64]chan Event
	next uint64
	last map[string]Event
}

func NewBus() *Bus {
	return &Bus{
		subs: make(map[uint64]chan Event),
		last: make(map[string]Event),
	}
}

func (b *Bus) Emit(name string, payload any) {
	e := Event{Name: name, Payload: payload, Time: time.Now()}

	b.mu.Lock()
	b.last[name] = e
	b.mu.Unlock()

	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs {
		select {
		case ch <- e:
		default:
			log.Debug().Msgf("subscriber %d is slow, drop event %s", id, name)
		}
	}
}

// Subscribe 订阅全部事件，返回的 cancel 会关闭通道
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Last returns the most recent event published under name.
func (b *Bus) Last(name string) (Event, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.last[name]
	return e, ok
}

var _ Sink = (*Bus)(nil)
