package presence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultSendTimeout bounds one ingestion request.
const DefaultSendTimeout = 5 * time.Second

// maxErrorBody caps how much of a failed response is kept for the log.
const maxErrorBody = 512

// HTTPSender posts reports as JSON to the relay hub's ingestion endpoint.
type HTTPSender struct {
	url     string
	client  *http.Client
	timeout time.Duration
}

// NewHTTPSender returns a sender for url. A nil client uses a default one;
// a non-positive timeout uses DefaultSendTimeout.
func NewHTTPSender(url string, client *http.Client, timeout time.Duration) *HTTPSender {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	return &HTTPSender{url: url, client: client, timeout: timeout}
}

// Send posts r. Any transport error or non-2xx status is an error.
func (s *HTTPSender) Send(ctx context.Context, r Report) error {
	body, err := json.Marshal(r.Payload())
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting report: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)) //nolint:errcheck // best-effort detail
		return fmt.Errorf("ingestion returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse
	return nil
}
