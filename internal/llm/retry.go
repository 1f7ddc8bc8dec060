package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// Backoff envelope between attempts. Vars rather than consts so tests can
// shrink the delays.
var (
	retryBaseDelay = 4 * time.Second
	retryMaxDelay  = 10 * time.Second
)

// statusErr carries the upstream HTTP status and response body.
type statusErr struct {
	code int
	msg  string
}

func (e statusErr) Error() string   { return fmt.Sprintf("status %d: %s", e.code, e.msg) }
func (e statusErr) StatusCode() int { return e.code }

// providerRequest is a prepared request that can be replayed across retry
// attempts.
type providerRequest struct {
	url     string
	headers http.Header
	body    []byte
}

// doWithRetry sends pr up to the configured number of attempts, backing off
// exponentially between tries.
func (c *Client) doWithRetry(ctx context.Context, pr *providerRequest) ([]byte, error) {
	attempts := c.cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			delay := backoffDelay(attempt - 1)
			log.Debugf("retrying request in %s (attempt %d/%d): %v", delay, attempt, attempts, lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, pr.url, bytes.NewReader(pr.body))
		if err != nil {
			return nil, err
		}
		req.Header = pr.headers.Clone()

		data, err := c.doOnce(req)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", attempts, lastErr)
}

// doOnce executes a single HTTP attempt and maps non-2xx responses to
// statusErr.
func (c *Client) doOnce(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.Errorf("close response body error: %v", errClose)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	body, err := decodeBody(resp.Header.Get("Content-Encoding"), raw)
	if err != nil {
		return nil, fmt.Errorf("decompress response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Debugf("request error, error status: %d, error message: %s", resp.StatusCode, truncateForLog(body))
		return nil, statusErr{code: resp.StatusCode, msg: string(body)}
	}
	return body, nil
}

// backoffDelay grows exponentially from retryBaseDelay and caps at
// retryMaxDelay. retries counts the failures so far, starting at one.
func backoffDelay(retries int) time.Duration {
	d := retryBaseDelay << (retries - 1)
	if d <= 0 || d > retryMaxDelay {
		return retryMaxDelay
	}
	return d
}

// isRetryable reports whether another attempt could succeed. Rate limits,
// server-side failures, and transport errors qualify; other statuses and
// context cancellation do not.
func isRetryable(err error) bool {
	var s statusErr
	if errors.As(err, &s) {
		return s.code == http.StatusTooManyRequests || s.code >= 500
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

func truncateForLog(body []byte) string {
	const maxLen = 2048
	if len(body) <= maxLen {
		return string(body)
	}
	return string(body[:maxLen]) + "...(truncated)"
}
