package statistics

import (
	"context"
	"log/slog"
	"time"

	"github.com/ganpare/densai/internal"
)

type Repository interface {
	Aggregate(ctx context.Context, w Windows) (*Statistics, error)
}

type Service struct {
	repo   Repository
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger
}

func NewService(repo Repository, loc *time.Location, logger *slog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, loc: loc, now: time.Now, logger: logger}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) GetStatistics(ctx context.Context) (*Statistics, error) {
	w := WindowsAt(s.now(), s.loc)
	stats, err := s.repo.Aggregate(ctx, w)
	if err != nil {
		s.logger.Error("failed to aggregate statistics", "error", err)
		return nil, internal.NewInternalError("failed to compute statistics", err)
	}
	stats.GeneratedAt = w.Now
	return stats, nil
}
