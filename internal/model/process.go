package model

import "time"

// ProcessStatus 目标进程的生命周期状态
type ProcessStatus string

const (
	ProcessUnknown      ProcessStatus = "unknown"
	ProcessNotRunning   ProcessStatus = "not_running"
	ProcessRunning      ProcessStatus = "running"
	ProcessNotListening ProcessStatus = "not_listening"
	ProcessListening    ProcessStatus = "listening"
	ProcessStopped      ProcessStatus = "stopped"
)

// ProcessState is the observed state of the monitored process.
// Region is only set when Status is ProcessListening.
type ProcessState struct {
	Status ProcessStatus `json:"status"`
	Region string        `json:"region,omitempty"`
}

var (
	StateUnknown      = ProcessState{Status: ProcessUnknown}
	StateNotRunning   = ProcessState{Status: ProcessNotRunning}
	StateRunning      = ProcessState{Status: ProcessRunning}
	StateNotListening = ProcessState{Status: ProcessNotListening}
	StateStopped      = ProcessState{Status: ProcessStopped}
)

// Listening 返回带区域的监听状态
func Listening(region string) ProcessState {
	return ProcessState{Status: ProcessListening, Region: region}
}

// IsConnected reports whether the process was seen with its socket state resolved.
func (s ProcessState) IsConnected() bool {
	return s.Status == ProcessNotListening || s.Status == ProcessListening
}

func (s ProcessState) String() string {
	if s.Status == ProcessListening {
		return string(s.Status) + "(" + s.Region + ")"
	}
	return string(s.Status)
}

// ProcessCheckResult 心跳事件 "process-check" 的负载
type ProcessCheckResult struct {
	CheckedOn time.Time    `json:"checked_on"`
	State     ProcessState `json:"state"`
}
