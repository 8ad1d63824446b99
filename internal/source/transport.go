package source

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// transport is the shared HTTP plumbing for provider clients: a per-provider
// rate limiter plus retry with exponential backoff on transient failures.
type transport struct {
	name    string
	http    *http.Client
	limiter *rate.Limiter
}

func newTransport(name string, limiter *rate.Limiter) *transport {
	return &transport{
		name:    name,
		limiter: limiter,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

// do executes the request with rate limiting and up to three attempts.
// Returns the body and status code of the final response.
func (t *transport) do(ctx context.Context, req *http.Request) ([]byte, int, error) {
	const maxAttempts = 3
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if t.limiter != nil {
			if err := t.limiter.Wait(ctx); err != nil {
				return nil, 0, eris.Wrapf(err, "%s: rate limit wait", t.name)
			}
		}

		retryReq := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, 0, eris.Wrapf(err, "%s: clone request body", t.name)
			}
			retryReq.Body = body
		}

		resp, err := t.http.Do(retryReq)
		if err != nil {
			lastErr = err
			if attempt < maxAttempts {
				select {
				case <-ctx.Done():
					return nil, 0, ctx.Err()
				case <-time.After(backoff):
				}
				backoff *= 2
				continue
			}
			return nil, 0, eris.Wrapf(lastErr, "%s: request failed", t.name)
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, resp.StatusCode, eris.Wrapf(readErr, "%s: read response body", t.name)
		}

		if retryableStatusCode(resp.StatusCode) && attempt < maxAttempts {
			lastErr = eris.Errorf("%s: status %d: %s", t.name, resp.StatusCode, string(body))
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			continue
		}

		return body, resp.StatusCode, nil
	}

	return nil, 0, lastErr
}

// getJSON fetches a URL and decodes the 200 response into out.
func (t *transport) getJSON(ctx context.Context, url string, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return eris.Wrapf(err, "%s: create request", t.name)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	body, status, err := t.do(ctx, req)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return eris.Errorf("%s: unexpected status %d: %s", t.name, status, truncate(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrapf(err, "%s: unmarshal response", t.name)
	}
	return nil
}

func unmarshalJSON(body []byte, out any, name string) error {
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrapf(err, "%s: unmarshal response", name)
	}
	return nil
}

func truncate(body []byte) string {
	const max = 200
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
