// services/skport_client.go
package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"skport-checkin/utils"
)

const (
	RefreshPath    = "/web/v1/auth/refresh"
	AttendancePath = "/web/v1/game/endfield/attendance"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"
	origin    = "https://game.skport.com"
)

// SKPortClient talks to the SKPort web API on behalf of configured profiles.
type SKPortClient struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger

	// Now is the clock used for signing timestamps.
	Now func() time.Time
}

func NewSKPortClient(baseURL string, httpClient *http.Client, logger *zap.Logger) *SKPortClient {
	if httpClient == nil {
		httpClient = utils.NewHTTPClient(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SKPortClient{
		BaseURL:    baseURL,
		HTTPClient: httpClient,
		Logger:     logger,
		Now:        time.Now,
	}
}

// send issues a request with the browser-like header set the web client uses,
// plus the per-call metadata headers. The body is returned regardless of HTTP
// status since the API reports outcomes through its own code field.
func (c *SKPortClient) send(ctx context.Context, method, path string, headers map[string]string) (int, []byte, error) {
	endpoint := c.BaseURL + path

	var body io.Reader
	if method == http.MethodPost {
		body = http.NoBody
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request to %s: %w", endpoint, err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Origin", origin)
	req.Header.Set("Referer", origin+"/")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, nil, &TransportError{Endpoint: path, Err: err}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, utils.MaxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, &TransportError{Endpoint: path, Err: fmt.Errorf("reading body: %w", err)}
	}
	return resp.StatusCode, data, nil
}
