package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// HTTPSDKLoader verifies the provider SDK endpoint answers before the
// flow becomes interactive. One attempt only; a dead SDK reports
// failure immediately instead of leaving the flow pending.
type HTTPSDKLoader struct {
	url  string
	http *http.Client
}

func NewHTTPSDKLoader(url string) *HTTPSDKLoader {
	return &HTTPSDKLoader{
		url:  url,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

func (l *HTTPSDKLoader) Load(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return fmt.Errorf("build sdk request: %w", err)
	}

	resp, err := l.http.Do(req)
	if err != nil {
		return fmt.Errorf("load provider sdk: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("provider sdk returned status %d", resp.StatusCode)
	}
	return nil
}
