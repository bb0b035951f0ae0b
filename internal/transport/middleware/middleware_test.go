package middleware_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/ganpare/densai/internal/transport/middleware"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func logLines(buf *bytes.Buffer) []map[string]any {
	var out []map[string]any
	for _, raw := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var line map[string]any
		Expect(json.Unmarshal([]byte(raw), &line)).To(Succeed())
		out = append(out, line)
	}
	return out
}

var _ = Describe("LoggingMiddleware", func() {
	var (
		buf *bytes.Buffer
		lg  *slog.Logger
	)

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		lg = slog.New(slog.NewJSONHandler(buf, nil))
	})

	It("masks credentials and customer identifiers", func() {
		// Given a handler that echoes the body it received
		h := middleware.LoggingMiddleware(lg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write(body)
		}))

		// When
		req := httptest.NewRequest(http.MethodPost, "/api/v1/reports",
			strings.NewReader(`{"company_name":"Acme","user_number":"U-1","nested":{"password":"pw"}}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer abc")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		// Then the handler still saw the full body and the log did not
		Expect(rec.Body.String()).To(ContainSubstring(`"user_number":"U-1"`))
		lines := logLines(buf)
		Expect(lines).To(HaveLen(2))

		Expect(lines[0]["body"]).To(ContainSubstring(`"company_name":"Acme"`))
		Expect(lines[0]["body"]).To(ContainSubstring(`"user_number":"[FILTERED]"`))
		Expect(lines[0]["body"]).To(ContainSubstring(`"password":"[FILTERED]"`))
		Expect(lines[0]["headers"]).To(HaveKeyWithValue("Authorization", "[FILTERED]"))

		Expect(lines[1]["status_code"]).To(BeEquivalentTo(http.StatusCreated))
		Expect(lines[1]["body"]).NotTo(ContainSubstring("U-1"))
	})

	It("logs downloads by size only and warns on client errors", func() {
		h := middleware.LoggingMiddleware(lg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/pdf")
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte("%PDF-1.3 ..."))
		}))

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/reports/x/pdf", nil))

		response := logLines(buf)[1]
		Expect(response["level"]).To(Equal("WARN"))
		Expect(response["body"]).To(Equal(""))
		Expect(response["response_size"]).To(BeEquivalentTo(len("%PDF-1.3 ...")))
	})
})

var _ = Describe("RecoveryMiddleware", func() {
	It("answers 500 with the error envelope", func() {
		h := middleware.RecoveryMiddleware(slog.New(slog.NewTextHandler(io.Discard, nil)))(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic("boom") }))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		Expect(rec.Body.String()).To(ContainSubstring(`"type":"INTERNAL_ERROR"`))
		Expect(rec.Body.String()).NotTo(ContainSubstring("boom"))
	})

	It("lets ErrAbortHandler through", func() {
		h := middleware.RecoveryMiddleware(slog.New(slog.NewTextHandler(io.Discard, nil)))(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic(http.ErrAbortHandler) }))

		Expect(func() {
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		}).To(PanicWith(http.ErrAbortHandler))
	})
})

var _ = Describe("RequestID", func() {
	It("keeps a caller supplied id", func() {
		var seen string
		h := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = r.Header.Get(middleware.RequestIDHeader)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(middleware.RequestIDHeader, "req-42")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		Expect(seen).To(Equal("req-42"))
		Expect(rec.Header().Get(middleware.RequestIDHeader)).To(Equal("req-42"))
	})

	It("mints one when missing", func() {
		rec := httptest.NewRecorder()
		middleware.RequestID(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		Expect(rec.Header().Get(middleware.RequestIDHeader)).To(HaveLen(36))
	})
})

var _ = Describe("CORS", func() {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })

	It("tags allowed origins only", func() {
		h := middleware.CORS([]string{"http://app.example"})(next)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "http://app.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		Expect(rec.Code).To(Equal(http.StatusTeapot))
		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("http://app.example"))

		req.Header.Set("Origin", "http://evil.example")
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(BeEmpty())
	})

	It("short-circuits preflight", func() {
		h := middleware.CORS([]string{"http://app.example"})(next)

		req := httptest.NewRequest(http.MethodOptions, "/api/v1/reports", nil)
		req.Header.Set("Origin", "http://app.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Access-Control-Allow-Methods")).To(ContainSubstring("PATCH"))
		Expect(rec.Header().Get("Access-Control-Allow-Credentials")).To(Equal("true"))
	})

	It("never advertises credentials when every origin is allowed", func() {
		// Given a wildcard allowlist
		h := middleware.CORS([]string{"*"})(next)

		// When any site calls the API
		req := httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil)
		req.Header.Set("Origin", "http://any.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		// Then the origin is allowed without credentials
		Expect(rec.Code).To(Equal(http.StatusTeapot))
		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("*"))
		Expect(rec.Header().Get("Access-Control-Allow-Credentials")).To(BeEmpty())

		req = httptest.NewRequest(http.MethodOptions, "/api/v1/reports", nil)
		req.Header.Set("Origin", "http://any.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		Expect(rec.Header().Get("Access-Control-Allow-Credentials")).To(BeEmpty())
	})
})
