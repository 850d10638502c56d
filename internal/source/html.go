package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/k3a/html2text"

	"github.com/shiftwatch/shiftwatch/internal/codes"
	"github.com/shiftwatch/shiftwatch/internal/model"
)

const (
	userAgent   = "shiftwatch/1.0"
	maxBodySize = 4 << 20 // 4MB
)

// HTMLSource scans one web page for codes. The page is flattened to plain
// text before extraction; page structure is never interpreted.
type HTMLSource struct {
	url          string
	client       *http.Client
	contextLimit int
}

// NewHTMLSource creates a source for one URL.
func NewHTMLSource(url string, timeout time.Duration, contextLimit int) *HTMLSource {
	return &HTMLSource{
		url:          url,
		client:       &http.Client{Timeout: timeout},
		contextLimit: contextLimit,
	}
}

// Name returns the source identifier stored on discovered codes.
func (s *HTMLSource) Name() string {
	return "HTML:" + s.url
}

// Fetch downloads the page, extracts candidate codes from its text, and
// yields one candidate per code with the page text as context.
func (s *HTMLSource) Fetch(ctx context.Context) ([]model.RawCandidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch page: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}

	text := html2text.HTML2Text(string(body))
	excerpt := truncate(text, s.contextLimit)

	var candidates []model.RawCandidate
	for _, code := range codes.Extract(text) {
		candidates = append(candidates, model.RawCandidate{
			RawCode: code,
			Source:  s.Name(),
			Context: excerpt,
		})
	}
	return candidates, nil
}
