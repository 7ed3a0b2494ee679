package processor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjzar/regionwatch/internal/event"
	"github.com/sjzar/regionwatch/internal/model"
)

func next(t *testing.T, ch <-chan event.Event) model.Encounter {
	t.Helper()
	select {
	case e := <-ch:
		require.Equal(t, event.EncounterUpdate, e.Name)
		return e.Payload.(model.Encounter)
	case <-time.After(time.Second):
		t.Fatal("no encounter update")
	}
	return model.Encounter{}
}

func TestProcessorStartStop(t *testing.T) {
	bus := event.NewBus()
	ch, cancel := bus.Subscribe(64)
	defer cancel()

	p := New(bus, 5*time.Millisecond)
	p.Start("EU")

	first := next(t, ch)
	second := next(t, ch)
	assert.Equal(t, "EU", first.Region)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(1), first.TotalDamage)
	assert.Equal(t, int64(2), second.TotalDamage)

	region, running := p.Running()
	assert.True(t, running)
	assert.Equal(t, "EU", region)

	require.NoError(t, p.Stop())
	_, running = p.Running()
	assert.False(t, running)

	// drain anything emitted before Stop returned
	for len(ch) > 0 {
		<-ch
	}
	select {
	case e := <-ch:
		t.Fatalf("event after stop: %v", e)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestProcessorRestartReplacesSession(t *testing.T) {
	bus := event.NewBus()
	ch, cancel := bus.Subscribe(64)
	defer cancel()

	p := New(bus, 5*time.Millisecond)
	p.Start("EU")
	eu := next(t, ch)

	p.Start("US")
	us := next(t, ch)
	for us.Region != "US" {
		us = next(t, ch)
	}
	assert.NotEqual(t, eu.ID, us.ID)
	assert.Equal(t, 7, int(us.ID.Version()))

	require.NoError(t, p.Stop())
	require.NoError(t, p.Stop())
}
