package model

import "time"

// UpdaterStatus 更新检查结果
type UpdaterStatus string

const (
	UpdaterUnknown       UpdaterStatus = "unknown"
	UpdaterNewVersion    UpdaterStatus = "new_version"
	UpdaterLatestVersion UpdaterStatus = "latest_version"
	UpdaterError         UpdaterStatus = "error"
)

type UpdaterState struct {
	Status  UpdaterStatus `json:"status"`
	Message string        `json:"message,omitempty"`
}

var (
	UpdaterStateUnknown    = UpdaterState{Status: UpdaterUnknown}
	UpdaterStateNewVersion = UpdaterState{Status: UpdaterNewVersion}
	UpdaterStateLatest     = UpdaterState{Status: UpdaterLatestVersion}
)

// UpdaterFailed 返回带错误信息的更新状态
func UpdaterFailed(message string) UpdaterState {
	return UpdaterState{Status: UpdaterError, Message: message}
}

// UpdaterResult 事件 "updater" 的负载
type UpdaterResult struct {
	CheckedOn time.Time    `json:"checked_on"`
	State     UpdaterState `json:"state"`
}
