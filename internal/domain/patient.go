package domain

import "time"

// Patient 患者领域模型（对应 patients 表）
// The queue engine treats patients as opaque references; this model backs the
// thin CRUD surface only.
type Patient struct {
	ID        string    `db:"patient_id"` // UUID, PRIMARY KEY
	Name      string    `db:"name"`       // VARCHAR(100), NOT NULL
	Document  string    `db:"document"`   // VARCHAR(14), national document number, unique
	Phone     *string   `db:"phone"`      // VARCHAR(15), nullable
	Email     *string   `db:"email"`      // VARCHAR(100), nullable
	BirthDate time.Time `db:"birth_date"`
	CreatedAt time.Time `db:"created_at"`
}
