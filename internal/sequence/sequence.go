// Package sequence hands out gap-tolerant, strictly increasing numbers per
// scope and reserves collision-free output file names.
package sequence

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Counter returns the next value of a named scope. Implementations must be
// atomic across concurrent callers and processes sharing the same backend.
type Counter interface {
	Next(ctx context.Context, scope string) (int64, error)
	// EnsureAtLeast raises the scope's current value to floor when it is lower.
	EnsureAtLeast(ctx context.Context, scope string, floor int64) error
}

const reportNumberPrefix = "RPT"

type Generator struct {
	counter Counter
	loc     *time.Location
}

func NewGenerator(counter Counter, loc *time.Location) *Generator {
	if loc == nil {
		loc = time.Local
	}
	return &Generator{counter: counter, loc: loc}
}

func (g *Generator) Location() *time.Location {
	return g.loc
}

// ReportScope is the counter scope for the month containing now.
func (g *Generator) ReportScope(now time.Time) string {
	t := now.In(g.loc)
	return fmt.Sprintf("report:%04d-%02d", t.Year(), int(t.Month()))
}

// ReportNumberPrefix returns "RPT-{YYYY}-{MM}-" for the month containing now.
func (g *Generator) ReportNumberPrefix(now time.Time) string {
	t := now.In(g.loc)
	return fmt.Sprintf("%s-%04d-%02d-", reportNumberPrefix, t.Year(), int(t.Month()))
}

func (g *Generator) NextReportNumber(ctx context.Context, now time.Time) (string, error) {
	seq, err := g.counter.Next(ctx, g.ReportScope(now))
	if err != nil {
		return "", fmt.Errorf("next report sequence: %w", err)
	}
	return FormatReportNumber(g.ReportNumberPrefix(now), seq), nil
}

// Resync moves the month's counter to at least floor, typically the highest
// sequence already present in storage.
func (g *Generator) Resync(ctx context.Context, now time.Time, floor int64) error {
	if err := g.counter.EnsureAtLeast(ctx, g.ReportScope(now), floor); err != nil {
		return fmt.Errorf("resync report sequence: %w", err)
	}
	return nil
}

func FormatReportNumber(prefix string, seq int64) string {
	return fmt.Sprintf("%s%03d", prefix, seq)
}

// ParseReportSequence extracts the trailing sequence of a report number.
func ParseReportSequence(number string) (int64, bool) {
	idx := strings.LastIndex(number, "-")
	if idx < 0 || idx == len(number)-1 {
		return 0, false
	}
	seq, err := strconv.ParseInt(number[idx+1:], 10, 64)
	if err != nil || seq < 0 {
		return 0, false
	}
	return seq, true
}
