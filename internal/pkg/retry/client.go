package retry

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// HTTPDoer is the interface for executing HTTP requests.
// Both *http.Client and *Client satisfy this interface.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client wraps an HTTPDoer with the shared backoff policy. Requests that come
// back 429/5xx are replayed until the policy's attempts run out; the final
// response is returned as-is so the caller can inspect status and body.
type Client struct {
	client HTTPDoer
	policy Policy
}

// NewClient wraps the given HTTPDoer. A nil client gets a default http.Client
// with a 30s timeout.
func NewClient(client HTTPDoer, policy Policy) *Client {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if policy.MaxAttempts <= 0 {
		policy = Default()
	}
	return &Client{client: client, policy: policy}
}

// Do executes the HTTP request under the backoff policy. It retries on
// retryable status codes (429, 500, 502, 503, 504) and transient network
// errors. It does not retry on other statuses or context cancellation.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		if req.Context().Err() != nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, req.Context().Err()
		}

		if attempt > 1 {
			// Reset request body for retry if applicable
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("retry: failed to reset request body: %w", err)
				}
				req.Body = body
			}

			wait := c.policy.Delay(attempt - 1)
			log.Printf("retry: attempt %d/%d for %s %s%s (waiting %s)",
				attempt, c.policy.MaxAttempts, req.Method, req.URL.Host, req.URL.Path, wait)

			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-req.Context().Done():
				timer.Stop()
				if lastErr != nil {
					return nil, lastErr
				}
				return nil, req.Context().Err()
			}
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			if req.Context().Err() != nil {
				return nil, err
			}
			// Network/connection/timeout error
			continue
		}

		if !RetryableStatus(resp.StatusCode) {
			return resp, nil
		}

		// Last attempt: hand the response back so the caller can read the body
		if attempt == c.policy.MaxAttempts {
			return resp, nil
		}

		// Drain body for connection reuse, then go around again
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		lastErr = fmt.Errorf("retry: server returned retryable status %d", resp.StatusCode)
	}

	return nil, lastErr
}

// RetryableStatus reports whether an HTTP status indicates a transient
// condition worth replaying: 429, 500, 502, 503, 504.
func RetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
