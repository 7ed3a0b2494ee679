package updater

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sjzar/regionwatch/internal/errors"
)

// Installer stages a release so that the next start runs it.
type Installer interface {
	Install(ctx context.Context, release *Release, progress func(n int64)) error
}

// Downloader saves the release asset into a download directory.
type Downloader struct {
	dir    string
	client *http.Client
}

func NewDownloader(dir string) *Downloader {
	return &Downloader{
		dir:    dir,
		client: &http.Client{Timeout: time.Minute * 10},
	}
}

// Path returns where the asset of release is stored.
func (d *Downloader) Path(release *Release) string {
	name := "regionwatch-" + release.Version
	if u, err := url.Parse(release.URL); err == nil && path.Base(u.Path) != "." && path.Base(u.Path) != "/" {
		name = path.Base(u.Path)
	}
	return filepath.Join(d.dir, name)
}

func (d *Downloader) Install(ctx context.Context, release *Release, progress func(n int64)) error {
	if release == nil || release.URL == "" {
		return errors.UpdateAssetMissing(DefaultTarget())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, release.URL, nil)
	if err != nil {
		return errors.UpdateDownloadFailed(release.URL, err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return errors.UpdateDownloadFailed(release.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.UpdateDownloadFailed(release.URL, errors.New(errors.ErrTypeHTTP, resp.Status, nil, resp.StatusCode))
	}

	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return errors.FileWriteFailed(d.dir, err)
	}

	target := d.Path(release)
	tmp, err := os.CreateTemp(d.dir, ".download-*")
	if err != nil {
		return errors.FileWriteFailed(d.dir, err)
	}
	defer os.Remove(tmp.Name())

	_, err = io.Copy(tmp, &progressReader{r: resp.Body, progress: progress})
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errors.UpdateDownloadFailed(release.URL, err)
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		return errors.FileWriteFailed(target, err)
	}
	if err := os.Chmod(target, 0755); err != nil {
		return errors.FileWriteFailed(target, err)
	}

	log.Info().Msgf("update %s downloaded to %s", release.Version, target)
	return nil
}

type progressReader struct {
	r        io.Reader
	progress func(n int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.progress != nil {
		p.progress(int64(n))
	}
	return n, err
}
