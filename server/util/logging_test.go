package util

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type stubLogger struct{ messages []string }

func (s *stubLogger) Printf(format string, v ...any) {
	s.messages = append(s.messages, fmt.Sprintf(format, v...))
}

func TestRequestLoggerPrefixes(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/media", nil)
	logger := &stubLogger{}
	rl := WithRequest(logger, req, "user-123")

	rl.Infof("hello %s", "world")
	rl.Errorf("oops %d", 500)

	if len(logger.messages) != 2 {
		t.Fatalf("expected 2 log messages, got %d", len(logger.messages))
	}
	if msg := logger.messages[0]; !strings.HasPrefix(msg, "INFO") {
		t.Fatalf("expected INFO prefix, got %q", msg)
	}
	if msg := logger.messages[1]; !strings.HasPrefix(msg, "ERROR") {
		t.Fatalf("expected ERROR prefix, got %q", msg)
	}
	for _, want := range []string{"POST", "/media", "user-123", "hello world"} {
		if !strings.Contains(logger.messages[0], want) {
			t.Fatalf("expected %q in info log, got %q", want, logger.messages[0])
		}
	}
}

func TestContextWithLoggerRoundTrip(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	logger := &stubLogger{}
	rl := WithRequest(logger, req, "")

	ctx := ContextWithLogger(context.Background(), rl)
	if got := FromContext(ctx); got != rl {
		t.Fatal("expected to retrieve same logger from context")
	}

	if got := FromContext(context.Background()); got != nil {
		t.Fatalf("expected nil for empty context, got %v", got)
	}

	if got := FromContext(nil); got != nil {
		t.Fatalf("expected nil for nil context, got %v", got)
	}
}
