// Package fetch copies image and narration assets to local files.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ivlev/kenburns/internal/failure"
)

// Fetcher downloads http(s) URLs into Dir. file:// URLs and plain paths are
// used in place.
type Fetcher struct {
	Client  *http.Client
	Dir     string
	Retries int
	Backoff time.Duration
}

func New(dir string, retries int) *Fetcher {
	return &Fetcher{
		Client:  &http.Client{Timeout: 2 * time.Minute},
		Dir:     dir,
		Retries: retries,
		Backoff: 500 * time.Millisecond,
	}
}

// Fetch returns a local path holding the content of rawURL. Downloads are
// stored at Dir/name plus the URL's extension; name may itself be a path.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, name string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", failure.New(failure.Fetch, rawURL, err)
	}
	switch u.Scheme {
	case "http", "https":
	case "file":
		return localFile(rawURL, u.Path)
	case "":
		return localFile(rawURL, rawURL)
	default:
		return "", failure.Newf(failure.Fetch, rawURL, "unsupported scheme %q", u.Scheme)
	}

	dst := filepath.Join(f.Dir, name+filepath.Ext(u.Path))
	var lastErr error
	for attempt := 0; attempt <= f.Retries; attempt++ {
		if attempt > 0 {
			wait := f.Backoff * time.Duration(1<<(attempt-1))
			log.WithFields(log.Fields{"url": rawURL, "attempt": attempt}).Warnf("[!] retrying in %s: %v", wait, lastErr)
			select {
			case <-ctx.Done():
				return "", failure.New(failure.Fetch, rawURL, ctx.Err())
			case <-time.After(wait):
			}
		}
		var retry bool
		retry, lastErr = f.download(ctx, rawURL, dst)
		if lastErr == nil {
			log.WithField("url", rawURL).Debugf("[*] fetched to %s", dst)
			return dst, nil
		}
		if !retry {
			break
		}
	}
	return "", failure.New(failure.Fetch, rawURL, lastErr)
}

// download reports whether a failed attempt is worth repeating.
func (f *Fetcher) download(ctx context.Context, rawURL, dst string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return false, err
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		retry := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return retry, fmt.Errorf("status %d", resp.StatusCode)
	}

	out, err := os.Create(dst)
	if err != nil {
		return false, err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(dst)
		return ctx.Err() == nil, err
	}
	return false, out.Close()
}

func localFile(rawURL, path string) (string, error) {
	path = strings.TrimSpace(path)
	st, err := os.Stat(path)
	if err != nil {
		return "", failure.New(failure.Fetch, rawURL, err)
	}
	if st.IsDir() {
		return "", failure.Newf(failure.Fetch, rawURL, "%s is a directory", path)
	}
	return path, nil
}
