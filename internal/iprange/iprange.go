package iprange

import (
	"net"

	"github.com/sjzar/regionwatch/internal/errors"
)

// IPRanges mirrors the published AWS ip-ranges.json document.
type IPRanges struct {
	SyncToken  string   `json:"syncToken"`
	CreateDate string   `json:"createDate"`
	Prefixes   []Prefix `json:"prefixes"`
}

type Prefix struct {
	IPPrefix           string `json:"ip_prefix"`
	Region             string `json:"region"`
	Service            string `json:"service"`
	NetworkBorderGroup string `json:"network_border_group"`
}

// Match 按表顺序查找包含 ip 的第一个前缀，返回其区域
// 前缀格式错误时直接返回错误，不跳过该条目
func (r *IPRanges) Match(ip net.IP) (string, bool, error) {
	if r == nil {
		return "", false, nil
	}
	for _, p := range r.Prefixes {
		_, network, err := net.ParseCIDR(p.IPPrefix)
		if err != nil {
			return "", false, errors.RegionPrefixInvalid(p.IPPrefix, err)
		}
		if network.Contains(ip) {
			return p.Region, true, nil
		}
	}
	return "", false, nil
}

// Len returns the number of prefixes in the table.
func (r *IPRanges) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Prefixes)
}
