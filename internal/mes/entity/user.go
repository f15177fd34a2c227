package entity

import "time"

// Role 用户角色
const (
	RoleOperator = "operator"
	RoleManager  = "manager"
	RoleMaster   = "master"
)

// User 车间用户
type User struct {
	ID            string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Username      string    `json:"username" gorm:"size:50;not null;uniqueIndex"`
	PIN           string    `json:"-" gorm:"size:6;default:'000000'"`
	Role          string    `json:"role" gorm:"size:20;not null"`
	MustChangePIN bool      `json:"must_change_pin" gorm:"default:true"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "mes_users"
}
