// Package testutil opens throwaway databases for repository tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	institutionDatamodel "github.com/ganpare/densai/internal/core/datamodel/institution"
	reportDatamodel "github.com/ganpare/densai/internal/core/datamodel/report"
	sequenceDatamodel "github.com/ganpare/densai/internal/core/datamodel/sequence"
	userDatamodel "github.com/ganpare/densai/internal/core/datamodel/user"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq int64

// OpenSQLite returns a migrated in-memory database. Each call gets its own
// shared-cache database so concurrent goroutines in one test see the same
// data through the single pooled connection.
func OpenSQLite(name string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s_%d_%d?mode=memory&cache=shared", name, time.Now().UnixNano(), atomic.AddInt64(&dbSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&userDatamodel.User{},
		&userDatamodel.UserRole{},
		&institutionDatamodel.FinancialInstitution{},
		&institutionDatamodel.Branch{},
		&reportDatamodel.Report{},
		&sequenceDatamodel.Counter{},
	); err != nil {
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return db, nil
}

// MustOpenSQLite panics on failure; for use inside BeforeEach blocks.
func MustOpenSQLite(name string) *gorm.DB {
	db, err := OpenSQLite(name)
	if err != nil {
		panic(err)
	}
	return db
}

// SeedUser inserts an active user holding roles and returns its id.
func SeedUser(db *gorm.DB, email, name string, roles ...string) int64 {
	u := &userDatamodel.User{Email: email, Name: name, PasswordHash: "x", IsActive: true}
	if err := db.Create(u).Error; err != nil {
		panic(err)
	}
	for _, r := range roles {
		if err := db.Create(&userDatamodel.UserRole{UserID: u.ID, Role: r}).Error; err != nil {
			panic(err)
		}
	}
	return u.ID
}

// SeedInstitution inserts a bank with the given branch codes.
func SeedInstitution(db *gorm.DB, code, name string, branches ...string) int64 {
	fi := &institutionDatamodel.FinancialInstitution{Code: code, Name: name}
	if err := db.Create(fi).Error; err != nil {
		panic(err)
	}
	for _, b := range branches {
		if err := db.Create(&institutionDatamodel.Branch{InstitutionID: fi.ID, BranchCode: b, Name: name + " " + b}).Error; err != nil {
			panic(err)
		}
	}
	return fi.ID
}
