package models

import "time"

// User is an account that can author posts, comment and follow other authors.
// Passwords are stored as bcrypt hashes only.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:150;not null;uniqueIndex" json:"username"`
	PasswordHash string    `gorm:"size:255" json:"-"`
	CreatedAt    time.Time `gorm:"<-:create" json:"created_at"`
}

func (u *User) String() string {
	return u.Username
}
