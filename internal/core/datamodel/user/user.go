package user

import "time"

type User struct {
	ID            int64      `gorm:"primaryKey"`
	Email         string     `gorm:"column:email;uniqueIndex;not null"`
	Name          string     `gorm:"column:name;not null"`
	PasswordHash  string     `gorm:"column:password_hash;not null"`
	ApprovalLevel *int       `gorm:"column:approval_level"`
	IsActive      bool       `gorm:"column:is_active;default:true"`
	Roles         []UserRole `gorm:"foreignKey:UserID"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at"`
}

func (User) TableName() string {
	return "users"
}

type UserRole struct {
	UserID    int64     `gorm:"column:user_id;primaryKey"`
	Role      string    `gorm:"column:role;primaryKey"`
	GrantedBy *int64    `gorm:"column:granted_by"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (UserRole) TableName() string {
	return "user_roles"
}
