package bulk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/oews-ingest/internal/hash/sha256"
	"github.com/JakeFAU/oews-ingest/internal/metrics"
	"github.com/JakeFAU/oews-ingest/internal/policy/retry"
)

// Archive keeps a copy of every downloaded file. The local, gcs and memory
// blob stores implement it.
type Archive interface {
	PutObject(ctx context.Context, path, contentType string, r io.Reader) (string, error)
}

// Config configures a Downloader.
type Config struct {
	BaseURL   string
	Dir       string
	UserAgent string
	// Timeout bounds one attempt of one file.
	Timeout time.Duration
	// ArchivePrefix is prepended to archived object names.
	ArchivePrefix string
}

// File describes one completed download.
type File struct {
	Name       string        `json:"name"`
	Path       string        `json:"path"`
	Bytes      int64         `json:"bytes"`
	SHA256     string        `json:"sha256"`
	ArchiveURI string        `json:"archive_uri,omitempty"`
	Attempts   int           `json:"attempts"`
	Elapsed    time.Duration `json:"elapsed"`
}

// StatusError is a non-200 answer from the bulk host.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
}

// Downloader fetches bulk files into a local directory.
type Downloader struct {
	cfg     Config
	http    *http.Client
	policy  *retry.Policy
	archive Archive
	logger  *zap.Logger
	now     func() time.Time
}

// New validates cfg. archive may be nil.
func New(cfg Config, httpClient *http.Client, policy *retry.Policy, archive Archive, logger *zap.Logger) (*Downloader, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("bulk: base url is required")
	}
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, errors.New("bulk: download dir is required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if policy == nil {
		policy = retry.New(retry.Config{})
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Downloader{
		cfg:     cfg,
		http:    httpClient,
		policy:  policy,
		archive: archive,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// FetchAll downloads names one after another and stops at the first failure.
func (d *Downloader) FetchAll(ctx context.Context, names []string) ([]File, error) {
	out := make([]File, 0, len(names))
	for _, name := range names {
		f, err := d.Fetch(ctx, name)
		if err != nil {
			return out, err
		}
		out = append(out, f)
	}
	return out, nil
}

// Fetch downloads one file, retrying transient failures.
func (d *Downloader) Fetch(ctx context.Context, name string) (File, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return File{}, fmt.Errorf("bulk: invalid file name %q", name)
	}
	if err := os.MkdirAll(d.cfg.Dir, 0o750); err != nil {
		return File{}, fmt.Errorf("bulk: create dir: %w", err)
	}

	start := time.Now()
	f := File{Name: name, Path: filepath.Join(d.cfg.Dir, name)}
	err := d.policy.Do(ctx, func(ctx context.Context) error {
		f.Attempts++
		bytes, sum, err := d.fetchOnce(ctx, name, f.Path)
		if err != nil {
			d.logger.Warn("download attempt failed",
				zap.String("file", name),
				zap.Int("attempt", f.Attempts),
				zap.Error(err),
			)
			return err
		}
		f.Bytes, f.SHA256 = bytes, sum
		return nil
	})
	if err != nil {
		return File{}, fmt.Errorf("download %s: %w", name, err)
	}
	metrics.ObserveDownload(name, f.Bytes)

	if d.archive != nil {
		uri, err := d.archiveFile(ctx, f.Path, name)
		if err != nil {
			return File{}, fmt.Errorf("archive %s: %w", name, err)
		}
		f.ArchiveURI = uri
	}
	f.Elapsed = time.Since(start)
	d.logger.Info("downloaded bulk file",
		zap.String("file", name),
		zap.Int64("bytes", f.Bytes),
		zap.String("sha256", f.SHA256),
		zap.Int("attempts", f.Attempts),
		zap.Duration("elapsed", f.Elapsed),
	)
	return f, nil
}

func (d *Downloader) fetchOnce(ctx context.Context, name, dest string) (int64, string, error) {
	if d.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
	}
	target := d.cfg.BaseURL + "/" + name
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, "", retry.Permanent(fmt.Errorf("build request: %w", err))
	}
	if d.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", d.cfg.UserAgent)
	}
	resp, err := d.http.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("GET %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		serr := &StatusError{URL: target, StatusCode: resp.StatusCode}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return 0, "", serr
		}
		return 0, "", retry.Permanent(serr)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+name+".*.part")
	if err != nil {
		return 0, "", retry.Permanent(fmt.Errorf("create temp file: %w", err))
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op once renamed.
		_ = os.Remove(tmpName)
	}()

	digest := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, digest), resp.Body); err != nil {
		_ = tmp.Close()
		return 0, "", fmt.Errorf("read body: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return 0, "", retry.Permanent(fmt.Errorf("rename into place: %w", err))
	}
	return digest.Size(), digest.Hex(), nil
}

func (d *Downloader) archiveFile(ctx context.Context, src, name string) (string, error) {
	// #nosec G304 -- src is the download dir joined with a validated name.
	fh, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer fh.Close()
	object := path.Join(d.cfg.ArchivePrefix, d.now().Format("2006-01-02"), name)
	return d.archive.PutObject(ctx, object, "text/plain; charset=utf-8", fh)
}
