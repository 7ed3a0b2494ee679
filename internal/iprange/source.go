package iprange

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sjzar/regionwatch/internal/errors"
)

const (
	DefaultURL       = "https://ip-ranges.amazonaws.com/ip-ranges.json"
	DefaultCacheFile = "ip-ranges.json"

	SourceAWS    = "aws"
	SourceStatic = "static"
)

// Source 提供区域表
type Source interface {
	Get(ctx context.Context) (*IPRanges, error)
}

// NewSource 根据名称创建区域表来源
func NewSource(name, url, cacheFile string) (Source, error) {
	switch name {
	case "", SourceAWS:
		return NewAWS(url, cacheFile), nil
	case SourceStatic:
		return NewStatic(), nil
	default:
		return nil, errors.InvalidParam("region.source", name)
	}
}

// AWS fetches the table once over HTTPS and keeps the raw body in a cache file.
// While the cache file exists the remote table is never fetched again.
type AWS struct {
	url       string
	cacheFile string
	client    *http.Client
}

func NewAWS(url, cacheFile string) *AWS {
	if url == "" {
		url = DefaultURL
	}
	if cacheFile == "" {
		cacheFile = DefaultCacheFile
	}
	return &AWS{
		url:       url,
		cacheFile: cacheFile,
		client:    &http.Client{Timeout: time.Second * 30},
	}
}

func (a *AWS) Get(ctx context.Context) (*IPRanges, error) {
	if data, err := os.ReadFile(a.cacheFile); err == nil {
		log.Debug().Msgf("load region table from cache %s", a.cacheFile)
		return decode(data)
	} else if !os.IsNotExist(err) {
		return nil, errors.FileReadFailed(a.cacheFile, err)
	}

	data, err := a.fetch(ctx)
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(a.cacheFile); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.FileWriteFailed(a.cacheFile, err)
		}
	}
	if err := os.WriteFile(a.cacheFile, data, 0644); err != nil {
		return nil, errors.FileWriteFailed(a.cacheFile, err)
	}
	log.Info().Msgf("region table cached to %s", a.cacheFile)

	return decode(data)
}

func (a *AWS) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.url, nil)
	if err != nil {
		return nil, errors.RegionTableFetchFailed(a.url, err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, errors.RegionTableFetchFailed(a.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.RegionTableFetchFailed(a.url, errors.New(errors.ErrTypeHTTP, resp.Status, nil, resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.RegionTableFetchFailed(a.url, err)
	}
	return data, nil
}

func decode(data []byte) (*IPRanges, error) {
	var ranges IPRanges
	if err := json.Unmarshal(data, &ranges); err != nil {
		return nil, errors.RegionTableDecodeFailed(err)
	}
	return &ranges, nil
}

// Static serves a fixed table that maps loopback traffic to EUC.
type Static struct {
	ranges *IPRanges
}

func NewStatic() *Static {
	return &Static{
		ranges: &IPRanges{
			Prefixes: []Prefix{
				{
					IPPrefix:           "127.0.0.0/8",
					Region:             "EUC",
					Service:            "n/a",
					NetworkBorderGroup: "n/a",
				},
			},
		},
	}
}

// NewStaticTable wraps an already built table.
func NewStaticTable(ranges *IPRanges) *Static {
	return &Static{ranges: ranges}
}

func (s *Static) Get(ctx context.Context) (*IPRanges, error) {
	return s.ranges, nil
}
