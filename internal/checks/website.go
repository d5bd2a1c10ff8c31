package checks

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"upmon/internal/config"
	"upmon/internal/storage"
)

const defaultMaxBodyBytes = 5 << 20

// WebsiteProbe checks an HTTP endpoint with a single GET request.
type WebsiteProbe struct {
	client       *http.Client
	maxBodyBytes int64
	userAgent    string
}

// NewWebsiteProbe creates a website probe.
//
// Certificate verification follows cfg.VerifyTLS, which is off by default so
// that self-signed internal services can be monitored.
func NewWebsiteProbe(cfg config.WebsiteProbeConfig) *WebsiteProbe {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: !cfg.VerifyTLS}

	maxRedirects := cfg.MaxRedirects
	client := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	return &WebsiteProbe{
		client:       client,
		maxBodyBytes: maxBody,
		userAgent:    cfg.UserAgent,
	}
}

// Type returns MonitorTypeWebsite.
func (w *WebsiteProbe) Type() storage.MonitorType {
	return storage.MonitorTypeWebsite
}

// Probe fetches the target URL and validates the response.
//
// The result is true only when the transfer completes, the final status is
// 2xx (if CheckStatus is set) and every keyword occurs in the body.
func (w *WebsiteProbe) Probe(ctx context.Context, target storage.Target) bool {
	t, ok := target.(storage.WebsiteTarget)
	if !ok || t.URL == "" {
		return probeFailed(warn(string(storage.MonitorTypeWebsite)), ReasonInvalid, nil)
	}

	event := func() *zerolog.Event {
		return warn(string(storage.MonitorTypeWebsite)).Str("url", t.URL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL, nil)
	if err != nil {
		return probeFailed(event(), ReasonInvalid, err)
	}
	if w.userAgent != "" {
		req.Header.Set("User-Agent", w.userAgent)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return probeFailed(event(), classifyFailure(err), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, w.maxBodyBytes))
	if err != nil {
		return probeFailed(event().Int("status_code", resp.StatusCode), ReasonBodyRead, err)
	}

	if t.CheckStatus && (resp.StatusCode < 200 || resp.StatusCode >= 300) {
		return probeFailed(event().Int("status_code", resp.StatusCode), ReasonStatusCode, nil)
	}

	content := string(body)
	for _, keyword := range t.Keywords {
		if !strings.Contains(content, keyword) {
			return probeFailed(event().Str("keyword", keyword), ReasonKeyword, nil)
		}
	}

	return true
}
