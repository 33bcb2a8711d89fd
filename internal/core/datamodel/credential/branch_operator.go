package credential

import "time"

// BranchOperator is the persisted row for the SQL credential backend.
type BranchOperator struct {
	ID             int64     `gorm:"primaryKey"`
	Username       string    `gorm:"column:username;uniqueIndex;not null"`
	PasswordHash   string    `gorm:"column:password_hash;not null"`
	DisplayName    string    `gorm:"column:display_name"`
	Email          string    `gorm:"column:email"`
	UpstreamSecret string    `gorm:"column:upstream_secret;not null"`
	LocationID     int64     `gorm:"column:location_id;not null"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (BranchOperator) TableName() string {
	return "branch_operators"
}
