package updater

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/mod/semver"

	"github.com/sjzar/regionwatch/internal/errors"
	"github.com/sjzar/regionwatch/pkg/version"
)

// Release describes an update that is newer than the running build.
type Release struct {
	Version   string    `json:"version"`
	Notes     string    `json:"notes,omitempty"`
	PubDate   time.Time `json:"pub_date,omitempty"`
	URL       string    `json:"url"`
	Signature string    `json:"signature,omitempty"`
}

// Source 查询更新源，没有新版本时返回 nil, nil
type Source interface {
	Check(ctx context.Context) (*Release, error)
}

// manifest is the static update document published with each release.
//
//	{"version": "1.2.0", "notes": "...", "pub_date": "2025-01-01T00:00:00Z",
//	 "platforms": {"windows-amd64": {"url": "...", "signature": "..."}}}
type manifest struct {
	Version   string              `json:"version"`
	Notes     string              `json:"notes"`
	PubDate   time.Time           `json:"pub_date"`
	Platforms map[string]platform `json:"platforms"`
}

type platform struct {
	URL       string `json:"url"`
	Signature string `json:"signature"`
}

type HTTPSource struct {
	endpoint string
	current  string
	target   string
	client   *http.Client
}

// DefaultTarget returns the platform key of the running binary.
func DefaultTarget() string {
	return runtime.GOOS + "-" + runtime.GOARCH
}

func NewHTTPSource(endpoint, current, target string) *HTTPSource {
	if target == "" {
		target = DefaultTarget()
	}
	return &HTTPSource{
		endpoint: endpoint,
		current:  current,
		target:   target,
		client:   &http.Client{Timeout: time.Second * 30},
	}
}

func (s *HTTPSource) Check(ctx context.Context) (*Release, error) {
	if s.endpoint == "" {
		return nil, errors.ConfigMissing("updater.endpoint")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return nil, errors.UpdateCheckFailed(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.UpdateCheckFailed(err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent:
		return nil, nil
	default:
		return nil, errors.UpdateCheckFailed(errors.New(errors.ErrTypeHTTP, resp.Status, nil, resp.StatusCode))
	}

	var m manifest
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, errors.UpdateCheckFailed(err)
	}

	remote, current := version.Canonical(m.Version), version.Canonical(s.current)
	if !semver.IsValid(remote) {
		return nil, errors.UpdateCheckFailed(errors.InvalidParam("version", m.Version))
	}
	if !semver.IsValid(current) {
		log.Debug().Msgf("running version %q is not a release, skip update", s.current)
		return nil, nil
	}
	if semver.Compare(remote, current) <= 0 {
		return nil, nil
	}

	p, ok := m.Platforms[s.target]
	if !ok || p.URL == "" {
		return nil, errors.UpdateAssetMissing(s.target)
	}

	return &Release{
		Version:   m.Version,
		Notes:     m.Notes,
		PubDate:   m.PubDate,
		URL:       p.URL,
		Signature: p.Signature,
	}, nil
}
