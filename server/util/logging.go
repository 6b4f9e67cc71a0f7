package util

import (
	"context"
	"fmt"
	"net/http"
)

type loggerKeyType struct{}

var loggerKey = loggerKeyType{}

// Logger is the minimal sink the request logger writes to. *log.Logger
// satisfies it, as would zap's or logrus's std adapters.
type Logger interface {
	Printf(format string, v ...any)
}

// RequestLogger annotates log lines with the request method, path and the
// authenticated owner, so storage and engine failures can be traced back to
// the triggering request.
type RequestLogger struct {
	logger Logger
	method string
	path   string
	user   string
}

// WithRequest builds a request-scoped logger. user is the owner id resolved
// by the auth middleware; leave it empty for anonymous requests.
func WithRequest(l Logger, r *http.Request, user string) *RequestLogger {
	return &RequestLogger{
		logger: l,
		method: r.Method,
		path:   r.URL.String(),
		user:   user,
	}
}

// ContextWithLogger stores the request logger for handlers downstream of the
// middleware that created it.
func ContextWithLogger(ctx context.Context, rl *RequestLogger) context.Context {
	return context.WithValue(ctx, loggerKey, rl)
}

// FromContext returns the request logger, or nil when the request never
// passed through an identity middleware.
func FromContext(ctx context.Context) *RequestLogger {
	if ctx == nil {
		return nil
	}

	if rl, ok := ctx.Value(loggerKey).(*RequestLogger); ok {
		return rl
	}

	return nil
}

func (rl *RequestLogger) Infof(format string, v ...any) {
	rl.logf("INFO", fmt.Sprintf(format, v...))
}

func (rl *RequestLogger) Errorf(format string, v ...any) {
	rl.logf("ERROR", fmt.Sprintf(format, v...))
}

func (rl *RequestLogger) logf(level string, message string) {
	prefix := fmt.Sprintf("%s [%s %s]", level, rl.method, rl.path)
	if rl.user != "" {
		prefix = fmt.Sprintf("%s (%s)", prefix, rl.user)
	}

	rl.logger.Printf("%s: %s", prefix, message)
}
