package sequence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// GormCounter keeps one row per scope in sequence_counters. Each increment
// is a single upsert, so the database serializes concurrent callers.
type GormCounter struct {
	db *gorm.DB
}

func NewGormCounter(db *gorm.DB) *GormCounter {
	return &GormCounter{db: db}
}

const nextSQL = `INSERT INTO sequence_counters (scope, value, updated_at) VALUES (?, 1, ?)
ON CONFLICT (scope) DO UPDATE SET value = sequence_counters.value + 1, updated_at = excluded.updated_at
RETURNING value`

const ensureSQL = `INSERT INTO sequence_counters (scope, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT (scope) DO UPDATE SET
	value = CASE WHEN sequence_counters.value < excluded.value THEN excluded.value ELSE sequence_counters.value END,
	updated_at = excluded.updated_at`

func (c *GormCounter) Next(ctx context.Context, scope string) (int64, error) {
	var value int64
	if err := c.db.WithContext(ctx).Raw(nextSQL, scope, time.Now().UTC()).Scan(&value).Error; err != nil {
		return 0, fmt.Errorf("increment counter %s: %w", scope, err)
	}
	if value == 0 {
		return 0, fmt.Errorf("increment counter %s: no value returned", scope)
	}
	return value, nil
}

func (c *GormCounter) EnsureAtLeast(ctx context.Context, scope string, floor int64) error {
	if floor <= 0 {
		return nil
	}
	if err := c.db.WithContext(ctx).Exec(ensureSQL, scope, floor, time.Now().UTC()).Error; err != nil {
		return fmt.Errorf("raise counter %s: %w", scope, err)
	}
	return nil
}

// Current returns the last issued value, zero when the scope is unused.
func (c *GormCounter) Current(ctx context.Context, scope string) (int64, error) {
	var value int64
	err := c.db.WithContext(ctx).Raw("SELECT value FROM sequence_counters WHERE scope = ?", scope).Scan(&value).Error
	if err != nil {
		return 0, fmt.Errorf("read counter %s: %w", scope, err)
	}
	return value, nil
}
