package processor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sjzar/regionwatch/internal/event"
	"github.com/sjzar/regionwatch/internal/model"
)

const DefaultTick = time.Second

// Processor is the downstream data processor started once the monitored
// process is connected to a known region. It currently publishes a
// synthetic encounter that grows on every tick.
type Processor struct {
	sink event.Sink
	tick time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	region string
}

func New(sink event.Sink, tick time.Duration) *Processor {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Processor{
		sink: sink,
		tick: tick,
	}
}

// Start 开始处理指定区域的数据，已有会话会先被停止
func (p *Processor) Start(region string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	p.region = region

	log.Info().Msgf("processor started, region %s", region)
	go p.run(ctx, done, region)
}

// Stop cancels the running session and waits for it to exit.
func (p *Processor) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	return nil
}

// Running reports the region of the active session.
func (p *Processor) Running() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.region, p.cancel != nil
}

func (p *Processor) stopLocked() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	log.Info().Msgf("processor stopped, region %s", p.region)
	p.cancel = nil
	p.done = nil
	p.region = ""
}

func (p *Processor) run(ctx context.Context, done chan struct{}, region string) {
	defer close(done)

	encounter := model.Encounter{
		ID:        newID(),
		Region:    region,
		UpdatedOn: time.Now(),
	}

	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()

	for {
		encounter.TotalDamage++
		encounter.UpdatedOn = time.Now()
		p.sink.Emit(event.EncounterUpdate, encounter)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func newID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}
