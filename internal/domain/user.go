package domain

import "time"

// 用户角色
const (
	RoleAdmin    = "Admin"
	RoleOperator = "Operator"
)

// User 操作员账号（对应 users 表）
type User struct {
	ID           string     `db:"user_id"`  // UUID, PRIMARY KEY
	Username     string     `db:"username"` // VARCHAR(50), unique
	PasswordHash string     `db:"password_hash"`
	Role         string     `db:"role"` // 'Admin' | 'Operator'
	Active       bool       `db:"active"`
	CreatedAt    time.Time  `db:"created_at"`
	LastLoginAt  *time.Time `db:"last_login_at"`
}
