package watcher

import "github.com/sjzar/regionwatch/internal/model"

// Reduce 根据上一次发出的状态和本次观察到的状态计算是否需要发出新状态
//
// Running is suppressed once the socket state of the process is known,
// otherwise every tick would flap between Running and the resolved state.
func Reduce(previous, observed model.ProcessState) (model.ProcessState, bool) {
	if observed == model.StateRunning && previous.IsConnected() {
		return previous, false
	}
	if observed != previous {
		return observed, true
	}
	return previous, false
}

// ResolveStopped synthesizes the state to report when the process can no longer be found.
func ResolveStopped(previous model.ProcessState) (model.ProcessState, bool) {
	switch previous.Status {
	case model.ProcessUnknown:
		return model.StateNotRunning, true
	case model.ProcessRunning, model.ProcessNotListening, model.ProcessListening:
		return model.StateStopped, true
	default:
		// NotRunning and Stopped are terminal while the process stays absent
		return previous, false
	}
}
