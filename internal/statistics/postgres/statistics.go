package postgres

import (
	"context"
	"fmt"

	"github.com/ganpare/densai/internal/statistics"
	"github.com/jmoiron/sqlx"
)

const aggregateQuery = `
SELECT
  (SELECT COUNT(*) FROM reports WHERE created_at >= ? AND created_at < ?) AS today_inquiries,
  (SELECT COUNT(*) FROM reports WHERE status = 'pending_approval') AS pending_approvals,
  (SELECT COUNT(*) FROM reports WHERE status = 'approved' AND created_at >= ? AND created_at < ?) AS monthly_completed,
  (SELECT COUNT(*) FROM reports WHERE escalation_required = ?) AS escalations
`

type StatisticsRepository struct {
	db    *sqlx.DB
	query string
}

// NewStatisticsRepository binds the aggregate query to the placeholder style
// of db's driver.
func NewStatisticsRepository(db *sqlx.DB) *StatisticsRepository {
	return &StatisticsRepository{db: db, query: db.Rebind(aggregateQuery)}
}

var _ statistics.Repository = (*StatisticsRepository)(nil)

func (r *StatisticsRepository) Aggregate(ctx context.Context, w statistics.Windows) (*statistics.Statistics, error) {
	var stats statistics.Statistics
	err := r.db.GetContext(ctx, &stats, r.query,
		w.DayStart.UTC(), w.DayEnd.UTC(),
		w.MonthStart.UTC(), w.Now.UTC(),
		true,
	)
	if err != nil {
		return nil, fmt.Errorf("aggregate statistics: %w", err)
	}
	return &stats, nil
}
