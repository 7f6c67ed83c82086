package domain

import "time"

// Room 服务房间领域模型（对应 rooms 表）
type Room struct {
	ID        string    `db:"room_id"`   // UUID, PRIMARY KEY
	Name      string    `db:"name"`      // VARCHAR(50), NOT NULL
	Specialty *string   `db:"specialty"` // VARCHAR(100), nullable
	Active    bool      `db:"active"`
	CreatedAt time.Time `db:"created_at"`
}
