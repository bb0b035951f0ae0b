package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ganpare/densai/internal"
	reportDatamodel "github.com/ganpare/densai/internal/core/datamodel/report"
	userDatamodel "github.com/ganpare/densai/internal/core/datamodel/user"
	coreuser "github.com/ganpare/densai/internal/core/user"
	"github.com/ganpare/densai/internal/user"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

var _ user.Repository = (*Repository)(nil)

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "SQLSTATE 23505")
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	var m userDatamodel.User
	err := r.db.WithContext(ctx).Preload("Roles").Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}
	return user.FromDataModel(&m), nil
}

func (r *Repository) List(ctx context.Context, limit, offset int) ([]*user.User, int64, error) {
	db := r.db.WithContext(ctx)

	var total int64
	if err := db.Model(&userDatamodel.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []*userDatamodel.User
	q := db.Preload("Roles").Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&models).Error; err != nil {
		return nil, 0, err
	}
	return user.FromDataModelSlice(models), total, nil
}

// Create inserts the user and its roles in one transaction.
func (r *Repository) Create(ctx context.Context, u *user.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m := user.ToDataModel(u)
		roles := m.Roles
		m.Roles = nil
		if err := tx.Omit("Roles").Create(m).Error; err != nil {
			if isUniqueViolation(err) {
				return user.ErrEmailTaken
			}
			return err
		}
		for i := range roles {
			roles[i].UserID = m.ID
			roles[i].CreatedAt = m.CreatedAt
		}
		if len(roles) > 0 {
			if err := tx.Create(&roles).Error; err != nil {
				return err
			}
		}
		u.ID = m.ID
		return nil
	})
}

func (r *Repository) UpdateName(ctx context.Context, id int64, name string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&userDatamodel.User{}).Where("id = ?", id).
		Updates(map[string]interface{}{"name": name, "updated_at": at.UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return internal.ErrUserNotFound
	}
	return nil
}

func (r *Repository) ReplaceRoles(ctx context.Context, id int64, roles []coreuser.Role, approvalLevel *int, grantedBy int64, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&userDatamodel.User{}).Where("id = ?", id).
			Updates(map[string]interface{}{"approval_level": approvalLevel, "updated_at": at.UTC()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return internal.ErrUserNotFound
		}

		if err := tx.Where("user_id = ?", id).Delete(&userDatamodel.UserRole{}).Error; err != nil {
			return err
		}
		if len(roles) == 0 {
			return nil
		}
		rows := make([]userDatamodel.UserRole, 0, len(roles))
		for _, role := range roles {
			g := grantedBy
			rows = append(rows, userDatamodel.UserRole{UserID: id, Role: string(role), GrantedBy: &g, CreatedAt: at.UTC()})
		}
		return tx.Create(&rows).Error
	})
}

func (r *Repository) SetActive(ctx context.Context, id int64, active bool, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&userDatamodel.User{}).Where("id = ?", id).
		Updates(map[string]interface{}{"is_active": active, "updated_at": at.UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return internal.ErrUserNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&userDatamodel.UserRole{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&userDatamodel.User{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return internal.ErrUserNotFound
		}
		return nil
	})
}

func (r *Repository) CountReportReferences(ctx context.Context, id int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&reportDatamodel.Report{}).
		Where("handler_id = ? OR approver_id = ?", id, id).
		Count(&count).Error
	return count, err
}
