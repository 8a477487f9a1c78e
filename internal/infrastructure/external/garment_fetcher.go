package external

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

	"vesteja/internal/domain/valueobjects"
)

const (
	defaultFetchMaxBytes = 10 << 20
	defaultFetchTimeout  = 15 * time.Second
)

// GarmentFetcher loads garment and result images. Absolute http(s) URLs are
// downloaded; site-relative paths such as "/img/vestido.png" are read from
// AssetDir when set, otherwise resolved against BaseURL.
type GarmentFetcher struct {
	HTTPClient *http.Client
	AssetDir   string
	BaseURL    string
	MaxBytes   int64
	Timeout    time.Duration
}

func (f *GarmentFetcher) defaults() {
	if f.HTTPClient == nil {
		f.HTTPClient = http.DefaultClient
	}
	if f.MaxBytes <= 0 {
		f.MaxBytes = defaultFetchMaxBytes
	}
	if f.Timeout <= 0 {
		f.Timeout = defaultFetchTimeout
	}
}

func (f *GarmentFetcher) Fetch(ctx context.Context, imageURL string) (*valueobjects.ImageData, error) {
	f.defaults()

	u, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid image URL %q: %w", imageURL, err)
	}

	var data []byte
	switch {
	case u.Scheme == "http" || u.Scheme == "https":
		data, err = f.download(ctx, imageURL)
	case u.Scheme == "" && f.AssetDir != "":
		data, err = f.readAsset(u.Path)
	case u.Scheme == "" && f.BaseURL != "":
		data, err = f.download(ctx, strings.TrimRight(f.BaseURL, "/")+"/"+strings.TrimLeft(u.Path, "/"))
	default:
		return nil, fmt.Errorf("cannot resolve image URL %q", imageURL)
	}
	if err != nil {
		return nil, err
	}

	return valueobjects.NewImageData(data)
}

func (f *GarmentFetcher) download(ctx context.Context, imageURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", imageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: status %d", imageURL, resp.StatusCode)
	}

	ct := resp.Header.Get("Content-Type")
	if idx := strings.IndexByte(ct, ';'); idx >= 0 {
		ct = strings.TrimSpace(ct[:idx])
	}
	if ct != "" && !strings.HasPrefix(ct, "image/") && ct != "application/octet-stream" {
		return nil, fmt.Errorf("download %s: unexpected content type %q", imageURL, ct)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", imageURL, err)
	}
	if int64(len(data)) > f.MaxBytes {
		return nil, fmt.Errorf("download %s: larger than %d bytes", imageURL, f.MaxBytes)
	}
	return data, nil
}

func (f *GarmentFetcher) readAsset(path string) ([]byte, error) {
	root, err := filepath.Abs(f.AssetDir)
	if err != nil {
		return nil, fmt.Errorf("invalid asset dir: %w", err)
	}
	full := filepath.Join(root, filepath.FromSlash(filepath.Clean("/"+path)))
	if !strings.HasPrefix(full, root+string(filepath.Separator)) {
		return nil, fmt.Errorf("asset path %q escapes the asset dir", path)
	}

	info, err := os.Stat(full)
	if err != nil {
		return nil, fmt.Errorf("asset %s: %w", path, err)
	}
	if info.Size() > f.MaxBytes {
		return nil, fmt.Errorf("asset %s: larger than %d bytes", path, f.MaxBytes)
	}
	return os.ReadFile(full)
}
