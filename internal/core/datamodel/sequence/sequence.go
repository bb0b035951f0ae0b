package sequence

import "time"

type Counter struct {
	Scope     string    `gorm:"column:scope;primaryKey"`
	Value     int64     `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (Counter) TableName() string {
	return "sequence_counters"
}
