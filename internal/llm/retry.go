package llm

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

const (
	maxRetries       = 3
	baseRetryBackoff = 500 * time.Millisecond
)

// doWithRetry executes an HTTP request with retries on transport errors,
// 429s and 5xx responses. The request is rebuilt per attempt so the body
// reader is fresh. Retry-After is honored when present and sane.
func doWithRetry(ctx context.Context, client *http.Client, build func() (*http.Request, error)) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := baseRetryBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := build()
		if err != nil {
			return nil, err
		}

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if !retryableStatus(resp.StatusCode) {
			return resp, nil
		}

		if wait := retryAfter(resp); wait > 0 && attempt < maxRetries {
			resp.Body.Close()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
			lastErr = fmt.Errorf("status %s", resp.Status)
			continue
		}

		lastErr = fmt.Errorf("status %s", resp.Status)
		resp.Body.Close()
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries+1, lastErr)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func retryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds <= 0 || seconds > 60 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
