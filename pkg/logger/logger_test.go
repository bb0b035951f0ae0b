package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ganpare/densai/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Logger", func() {
	DescribeTable("parses levels",
		func(in string, want slog.Level) {
			Expect(logger.ParseLevel(in)).To(Equal(want))
		},
		Entry("debug", "debug", slog.LevelDebug),
		Entry("warning alias", " WARNING ", slog.LevelWarn),
		Entry("error", "error", slog.LevelError),
		Entry("unknown falls back to info", "verbose", slog.LevelInfo),
	)

	It("writes json lines tagged with the service", func() {
		var buf bytes.Buffer
		lg := logger.New(&buf, "json", "info")

		lg.Debug("hidden")
		lg.Info("report approved", "report_number", "RPT-2025-04-001")

		var line map[string]any
		Expect(json.Unmarshal(buf.Bytes(), &line)).To(Succeed())
		Expect(line["msg"]).To(Equal("report approved"))
		Expect(line["service"]).To(Equal("densai"))
		Expect(line["report_number"]).To(Equal("RPT-2025-04-001"))
	})

	It("carries fields through the context", func() {
		ctx := logger.With(context.Background(), "request_id", "req-1")
		Expect(logger.From(ctx)).NotTo(BeIdenticalTo(logger.From(context.Background())))
	})
})
