package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ganpare/densai/pkg/logger"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

// maxLoggedBody caps how much of a JSON body is kept for the log line.
const maxLoggedBody = 4 << 10

const redacted = "[FILTERED]"

// sensitiveFields are matched as substrings of lower-cased header and JSON
// key names. Customer identifiers on reports count as sensitive.
var sensitiveFields = []string{
	"contact_person_name",
	"user_number",
	"password",
	"token",
	"authorization",
	"cookie",
	"secret",
	"api_key",
	"credential",
}

func isSensitive(name string) bool {
	name = strings.ToLower(name)
	for _, f := range sensitiveFields {
		if strings.Contains(name, f) {
			return true
		}
	}
	return false
}

// LoggingMiddleware writes one line when a request arrives and one when it
// completes. Bodies are logged only for JSON and with sensitive keys masked.
// With a nil base the logger stored on the request context is used.
func LoggingMiddleware(base *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lg := base
			if lg == nil {
				lg = logger.From(r.Context())
			}
			lg = lg.With("request_id", chiMiddleware.GetReqID(r.Context()))

			lg.Info("incoming request",
				"method", r.Method,
				"path", r.URL.Path,
				"query", r.URL.RawQuery,
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
				"headers", redactHeaders(r.Header),
				"body", redactBody(peekRequestBody(r)),
			)

			captured := &cappedBuffer{}
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(captured)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			var body string
			if isJSON(ww.Header().Get("Content-Type")) {
				body = redactBody(captured.Bytes())
			}

			lg.Log(r.Context(), levelFor(status), "response",
				"method", r.Method,
				"path", r.URL.Path,
				"status_code", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"response_size", ww.BytesWritten(),
				"body", body,
			)
		})
	}
}

func levelFor(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

func isJSON(contentType string) bool {
	return strings.HasPrefix(contentType, "application/json")
}

// peekRequestBody reads a JSON body and puts it back for the handler.
func peekRequestBody(r *http.Request) []byte {
	if r.Body == nil || !isJSON(r.Header.Get("Content-Type")) {
		return nil
	}
	raw, err := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return nil
	}
	if len(raw) > maxLoggedBody {
		return raw[:maxLoggedBody]
	}
	return raw
}

// cappedBuffer keeps the first maxLoggedBody bytes written to it. PDF and
// workbook downloads are only counted by the wrapping writer.
type cappedBuffer struct {
	bytes.Buffer
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if room := maxLoggedBody - b.Len(); room > 0 {
		b.Buffer.Write(p[:min(len(p), room)])
	}
	return len(p), nil
}

func redactHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for name, values := range headers {
		if isSensitive(name) {
			out[name] = redacted
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

// redactBody masks sensitive keys in a JSON document. Bodies that do not
// parse, including ones cut at maxLoggedBody, are summarised by size.
func redactBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return "[unparsed body]"
	}

	out, err := json.Marshal(redactValue(doc))
	if err != nil {
		return "[unparsed body]"
	}
	return string(out)
}

func redactValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, inner := range val {
			if isSensitive(k) {
				out[k] = redacted
				continue
			}
			out[k] = redactValue(inner)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, inner := range val {
			out[i] = redactValue(inner)
		}
		return out
	default:
		return v
	}
}
