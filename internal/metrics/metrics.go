package metrics

import "github.com/sjzar/regionwatch/internal/model"

// Collector receives pipeline measurements.
type Collector interface {
	// WatcherPoll records one watcher tick and whether the process was found
	WatcherPoll(found bool)

	// StateTransition records an emitted process state change
	StateTransition(from, to model.ProcessState)

	// RegionTableLoaded records the size of the loaded region table
	RegionTableLoaded(prefixes int)

	// Heartbeat records a published process-check event
	Heartbeat(state model.ProcessState)

	// UpdateCheck records the outcome of an update check
	UpdateCheck(state model.UpdaterState)
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) WatcherPoll(bool) {}
func (Nop) StateTransition(model.ProcessState, model.ProcessState) {}
func (Nop) RegionTableLoaded(int) {}
func (Nop) Heartbeat(model.ProcessState) {}
func (Nop) UpdateCheck(model.UpdaterState) {}

var _ Collector = Nop{}
