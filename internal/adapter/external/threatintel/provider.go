// Package threatintel contains the provider adapters. Each adapter
// wraps one upstream API and normalizes its response into an
// entity.ProviderResult. Adapters never return errors: every failure
// mode is folded into the result's status.
package threatintel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/NaeeemJatt/FlashThreat/internal/entity"
)

// Provider is the uniform surface the orchestrator fans out over
type Provider interface {
	Name() string
	IsConfigured() bool
	Supports(kind entity.IndicatorKind) bool
	Fetch(ctx context.Context, ind entity.Indicator) entity.ProviderResult
	LinkOut(ind entity.Indicator) string
}

const defaultTimeout = 10 * time.Second

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// execute runs the request and decodes a 2xx JSON body into out.
// Non-2xx codes and transport errors map onto the status taxonomy;
// the returned message is human-readable context for the result.
func execute(client *http.Client, req *http.Request, out any) (entity.ProviderStatus, string) {
	resp, err := client.Do(req)
	if err != nil {
		return errorStatus(req.Context(), err)
	}
	defer resp.Body.Close()

	if st, msg, ok := httpStatus(resp.StatusCode); !ok {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return st, msg
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return entity.StatusError, fmt.Sprintf("decode response: %v", err)
	}
	return entity.StatusOK, ""
}

func httpStatus(code int) (entity.ProviderStatus, string, bool) {
	switch {
	case code >= 200 && code < 300:
		return entity.StatusOK, "", true
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return entity.StatusAuthError, "authentication rejected", false
	case code == http.StatusNotFound:
		return entity.StatusNotFound, "", false
	case code == http.StatusTooManyRequests:
		return entity.StatusRateLimited, "rate limit exceeded", false
	default:
		return entity.StatusError, fmt.Sprintf("unexpected HTTP %d", code), false
	}
}

func errorStatus(ctx context.Context, err error) (entity.ProviderStatus, string) {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return entity.StatusTimeout, "request deadline exceeded"
	}
	if errors.Is(err, context.Canceled) {
		return entity.StatusTimeout, "request cancelled"
	}
	return entity.StatusError, fmt.Sprintf("request failed: %v", err)
}

func elapsedMs(started time.Time) int64 {
	return time.Since(started).Milliseconds()
}

func intp(v int) *int { return &v }
