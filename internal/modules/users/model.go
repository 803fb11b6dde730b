package users

import "time"

type User struct {
	ID        string    `gorm:"type:char(36);primaryKey"`
	Name      string    `gorm:"type:varchar(128);not null"`
	Email     string    `gorm:"type:varchar(255);not null;uniqueIndex:ux_users_email"`
	Phone     *string   `gorm:"type:varchar(20)"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (User) TableName() string { return "users" }
