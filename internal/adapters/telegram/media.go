package telegram

import (
	"context"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"crossposter/internal/adapters/httpx"
	"crossposter/internal/core/dispatch"
	"crossposter/internal/core/tracking"
	perr "crossposter/internal/platform/errors"
	"crossposter/internal/platform/metrics"
)

// FileStore is the Bot API file download pair
type FileStore interface {
	GetFile(ctx context.Context, fileID string) (File, error)
	Download(ctx context.Context, filePath string) (*httpx.Response, error)
}

// Resolver turns file ids and public URLs into payload bytes
type Resolver struct {
	files FileStore
	web   *httpx.Client
}

// NewResolver resolves Telegram file ids through files and http(s) locators directly.
// Web locators come from API callers, so only public addresses are fetched.
func NewResolver(files FileStore, m *metrics.Metrics) *Resolver {
	return &Resolver{
		files: files,
		web: httpx.New(httpx.Options{
			Name: "media", Timeout: 60 * time.Second, MaxRetries: 1, Metrics: m, PublicOnly: true,
		}),
	}
}

// Resolve fetches m; file id payloads carry no URL since Telegram file URLs embed the bot token
func (r *Resolver) Resolve(ctx context.Context, m tracking.Media) (*dispatch.Payload, error) {
	var (
		resp *httpx.Response
		name string
		pub  string
		err  error
	)
	if isWebURL(m.Locator) {
		resp, err = r.web.Do(ctx, httpx.Request{Method: http.MethodGet, Path: m.Locator})
		if err != nil {
			return nil, err
		}
		u, _ := url.Parse(m.Locator)
		name, pub = path.Base(u.Path), m.Locator
	} else {
		f, err := r.files.GetFile(ctx, m.Locator)
		if err != nil {
			return nil, err
		}
		if resp, err = r.files.Download(ctx, f.FilePath); err != nil {
			return nil, err
		}
		name = path.Base(f.FilePath)
	}
	if len(resp.Body) == 0 {
		return nil, perr.Upstreamf("media %s: empty body", m.Kind)
	}
	ct := contentType(m.Kind, resp)
	return &dispatch.Payload{
		Kind:        m.Kind,
		Filename:    filename(name, m.Kind, ct),
		ContentType: ct,
		Data:        resp.Body,
		URL:         pub,
	}, nil
}

func isWebURL(s string) bool {
	return strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://")
}

func contentType(k tracking.MediaKind, resp *httpx.Response) string {
	if ct, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err == nil && ct != "application/octet-stream" {
		return ct
	}
	if ct, _, _ := strings.Cut(http.DetectContentType(resp.Body), ";"); ct != "application/octet-stream" && !strings.HasPrefix(ct, "text/") {
		return ct
	}
	if k == tracking.Photo {
		return "image/jpeg"
	}
	return "video/mp4"
}

func filename(name string, k tracking.MediaKind, ct string) string {
	if name != "" && name != "." && name != "/" {
		return name
	}
	ext := ".mp4"
	if exts, _ := mime.ExtensionsByType(ct); len(exts) > 0 {
		ext = exts[0]
	} else if k == tracking.Photo {
		ext = ".jpg"
	}
	return string(k) + ext
}
