package model

import (
	"time"

	"github.com/google/uuid"
)

// Encounter is the placeholder payload published by the processor.
type Encounter struct {
	ID          uuid.UUID `json:"id"`
	Region      string    `json:"region"`
	UpdatedOn   time.Time `json:"updated_on"`
	TotalDamage int64     `json:"total_damage"`
}

// Settings 用户可见的配置快照
type Settings struct {
	ProcessName   string        `json:"process_name"`
	Port          int           `json:"port"`
	CheckInterval time.Duration `json:"check_interval"`
	RegionSource  string        `json:"region_source"`
	UpdateEnabled bool          `json:"update_enabled"`
}

// LoadResult 前端加载握手的返回值
type LoadResult struct {
	Version  string   `json:"version"`
	Settings Settings `json:"settings"`
}

// Snapshot is what the frontend polls when it cannot keep an event stream open.
type Snapshot struct {
	Ready      bool                `json:"ready"`
	Process    *ProcessCheckResult `json:"process,omitempty"`
	Updater    *UpdaterResult      `json:"updater,omitempty"`
	Processing string              `json:"processing_region,omitempty"`
	Pending    string              `json:"pending_version,omitempty"`
	Downloaded int64               `json:"downloaded_bytes"`
	Installed  bool                `json:"installed"`
}
