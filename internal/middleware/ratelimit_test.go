package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func newLimitedHandler(t *testing.T, mr *miniredis.Miniredis, limit int) http.Handler {
	t.Helper()

	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	config := RateLimitConfig{
		RequestsPerWindow: limit,
		Window:            time.Second,
		KeyPrefix:         "test_rate_limit",
	}

	return RateLimitMiddleware(redisClient, config, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestProperty_RateLimitingBlocksExcessiveRequests(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("requests past the window budget get 429", prop.ForAll(
		func(requestsPerWindow int, excessRequests int) bool {
			mr := miniredis.RunT(t)
			handler := newLimitedHandler(t, mr, requestsPerWindow)

			successCount := 0
			blockedCount := 0

			for i := 0; i < requestsPerWindow+excessRequests; i++ {
				req := httptest.NewRequest(http.MethodGet, "/products", nil)
				// Same client, new ephemeral port each time
				req.RemoteAddr = fmt.Sprintf("192.168.1.100:%d", 40000+i)
				w := httptest.NewRecorder()

				handler.ServeHTTP(w, req)

				switch w.Code {
				case http.StatusOK:
					successCount++
				case http.StatusTooManyRequests:
					blockedCount++
				}
			}

			return successCount == requestsPerWindow && blockedCount == excessRequests
		},
		gen.IntRange(5, 20),
		gen.IntRange(1, 10),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestRateLimitMiddleware_BlockedResponse(t *testing.T) {
	mr := miniredis.RunT(t)
	handler := newLimitedHandler(t, mr, 1)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/products", nil)
		req.RemoteAddr = "10.0.0.1"
		handler.ServeHTTP(w, req)

		if i == 0 {
			if got := w.Header().Get("X-RateLimit-Remaining"); got != "0" {
				t.Errorf("expected remaining 0, got %q", got)
			}
			continue
		}

		if w.Code != http.StatusTooManyRequests {
			t.Fatalf("expected 429, got %d", w.Code)
		}
		if w.Header().Get("Retry-After") == "" {
			t.Error("expected Retry-After header")
		}

		var body MessageResponse
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if body.Message != MsgTooManyRequests {
			t.Errorf("unexpected message %q", body.Message)
		}
	}
}

func TestRateLimitMiddleware_WindowResets(t *testing.T) {
	mr := miniredis.RunT(t)
	handler := newLimitedHandler(t, mr, 1)

	serve := func() int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/products", nil)
		req.RemoteAddr = "10.0.0.2:5000"
		handler.ServeHTTP(w, req)
		return w.Code
	}

	if code := serve(); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if code := serve(); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", code)
	}

	mr.FastForward(2 * time.Second)

	if code := serve(); code != http.StatusOK {
		t.Fatalf("expected 200 after window, got %d", code)
	}
}

func TestRateLimitMiddleware_FailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	handler := newLimitedHandler(t, mr, 1)
	mr.Close()

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/products", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("expected requests to pass while redis is down, got %d", w.Code)
		}
	}
}
