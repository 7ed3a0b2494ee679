package watcher

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/process"
)

// ProcessFinder looks up the monitored process in the OS process table.
type ProcessFinder interface {
	// Find scans the process table and returns the first process matching name
	Find(ctx context.Context, name string) (int32, bool)

	// Exists reports whether pid is still alive
	Exists(ctx context.Context, pid int32) bool
}

// SystemFinder 基于 gopsutil 的进程查找
type SystemFinder struct{}

func NewSystemFinder() *SystemFinder {
	return &SystemFinder{}
}

func (f *SystemFinder) Find(ctx context.Context, name string) (int32, bool) {
	processes, err := process.ProcessesWithContext(ctx)
	if err != nil {
		log.Err(err).Msg("获取进程列表失败")
		return 0, false
	}

	want := normalizeName(name)
	for _, p := range processes {
		pname, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		if normalizeName(pname) == want {
			return p.Pid, true
		}
	}
	return 0, false
}

func (f *SystemFinder) Exists(ctx context.Context, pid int32) bool {
	ok, err := process.PidExistsWithContext(ctx, pid)
	if err != nil {
		log.Debug().Err(err).Msgf("check pid %d failed", pid)
		return false
	}
	return ok
}

// normalizeName 忽略大小写和 Windows 下的 .exe 后缀
func normalizeName(name string) string {
	return strings.TrimSuffix(strings.ToLower(name), ".exe")
}
