package models

import "time"

// RevokedToken is the database fallback for JWT revocation when Redis is not configured.
type RevokedToken struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	ExpiresAt time.Time `gorm:"index" json:"expiresAt"`
	RevokedAt time.Time `json:"revokedAt"`
}

func (RevokedToken) TableName() string {
	return "revoked_tokens"
}
