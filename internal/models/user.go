package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User holds the display fields hydrated into event payloads. Rows are
// upserted from token claims on first write; identity issuance itself is
// handled by the external auth provider.
type User struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Name      string    `json:"name"`
	Image     string    `json:"image"`
	Role      string    `gorm:"not null;default:user" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
