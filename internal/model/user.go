package model

import "time"

// User represents an application user record as stored in the `users`
// table.  The json tags omit the password hash; handlers can return a
// User directly.
//
// Fields:
//
//	ID             – UUID primary key.
//	Email          – unique email address, used as the session subject.
//	Username       – unique display name.
//	HashedPassword – bcrypt hash.
//	IsActive       – whether the account may log in.
//	IsVerified     – whether the email address was verified.
//	IsSuperuser    – full administrative rights.
//	IsAdmin        – catalogue administration rights.
//	CreatedAt      – timestamp of creation.
//	UpdatedAt      – timestamp of last update.
type User struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	Email          string    `gorm:"size:320;not null;uniqueIndex" json:"email"`
	Username       string    `gorm:"size:150;not null;uniqueIndex" json:"username"`
	HashedPassword string    `gorm:"not null" json:"-"`
	IsActive       bool      `gorm:"not null;default:true" json:"is_active"`
	IsVerified     bool      `gorm:"not null;default:false" json:"is_verified"`
	IsSuperuser    bool      `gorm:"not null;default:false" json:"is_superuser"`
	IsAdmin        bool      `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"-"`
}

// AccessToken models an entry in the `access_tokens` table.  Each row
// backs one login session.  The session id carried in the cookie is not
// stored; only its SHA-256 hash.
//
// Fields:
//
//	ID        – primary key identifier.
//	TokenHash – SHA-256 hex digest of the session id.
//	UserID    – owner of the session.
//	ExpiresAt – expiration timestamp.
//	CreatedAt – timestamp of creation.
type AccessToken struct {
	ID        uint      `gorm:"primaryKey"`
	TokenHash string    `gorm:"size:64;not null;uniqueIndex"`
	UserID    string    `gorm:"size:36;not null;index"`
	User      User      `gorm:"constraint:OnDelete:CASCADE"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time
}
