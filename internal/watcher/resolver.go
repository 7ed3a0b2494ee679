package watcher

import (
	"context"
	"net"

	"github.com/rs/zerolog/log"
	psnet "github.com/shirou/gopsutil/v4/net"
)

// SocketResolver returns the remote IPv4 addresses a process is connected to on port.
// Enumeration failures are treated as no match.
type SocketResolver interface {
	RemoteAddrs(ctx context.Context, pid int32, port uint32) []net.IP
}

// SystemResolver 基于 gopsutil 读取 TCP 连接表
type SystemResolver struct{}

func NewSystemResolver() *SystemResolver {
	return &SystemResolver{}
}

func (r *SystemResolver) RemoteAddrs(ctx context.Context, pid int32, port uint32) []net.IP {
	conns, err := psnet.ConnectionsPidWithContext(ctx, "tcp4", pid)
	if err != nil {
		log.Debug().Err(err).Msgf("list connections of pid %d failed", pid)
		return nil
	}

	seen := make(map[string]struct{})
	var addrs []net.IP
	for _, c := range conns {
		if c.Raddr.Port != port || c.Raddr.IP == "" {
			continue
		}
		if _, ok := seen[c.Raddr.IP]; ok {
			continue
		}
		ip := net.ParseIP(c.Raddr.IP)
		if ip == nil {
			continue
		}
		seen[c.Raddr.IP] = struct{}{}
		addrs = append(addrs, ip)
	}
	return addrs
}
