package logger

import "time"

// HTTPRequest is one served request as recorded by the server middleware.
type HTTPRequest struct {
	Method    string
	Path      string
	Status    int
	Bytes     int
	Duration  time.Duration
	RequestID string
}

// Request logs r at info level, or at warn level for 5xx responses.
func (l *Logger) Request(r HTTPRequest) {
	event := l.zlog.Info()
	if r.Status >= 500 {
		event = l.zlog.Warn()
	}
	event.
		Str("method", r.Method).
		Str("path", r.Path).
		Int("status", r.Status).
		Int("bytes", r.Bytes).
		Dur("duration", r.Duration).
		Str("request_id", r.RequestID).
		Msg("http request")
}
