package models

import "time"

// Provider names for connected services.
const (
	ProviderGoogle = "google"
	ProviderNotion = "notion"
)

// User is an account created on first successful OAuth authorization.
// Users have no password; identity comes entirely from linked providers.
type User struct {
	ID          string `gorm:"primaryKey"` // UUID
	Email       string `gorm:"index"`
	Name        string
	Picture     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Connections []Connection `gorm:"constraint:OnDelete:CASCADE"`
}

// Connection stores the sealed OAuth tokens for one user x provider pair.
// AccessToken and RefreshToken are AES-GCM sealed blobs, never plaintext.
type Connection struct {
	ID                string `gorm:"primaryKey"` // UUID
	UserID            string `gorm:"uniqueIndex:idx_user_provider"`
	Provider          string `gorm:"uniqueIndex:idx_user_provider"` // "google", "notion"
	ProviderAccountID string
	AccessToken       string     // sealed
	RefreshToken      string     // sealed, empty when the provider issues none
	ExpiresAt         *time.Time // nil means the token never expires (Notion)
	Scopes            string     // JSON blob of granted scopes / workspace metadata
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
