// Package vault manages the credential lifecycle for connected providers:
// sealed storage, expiry tracking, and refresh-ahead renewal.
package vault

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pysugar/digital-twin/internal/crypto"
	"github.com/pysugar/digital-twin/internal/db/models"
	"gorm.io/gorm"
)

const (
	// RefreshBuffer is the refresh-ahead window: tokens expiring within this
	// window are renewed before use instead of served as-is.
	RefreshBuffer = 5 * time.Minute

	// refreshTimeout bounds one provider token-endpoint round trip.
	refreshTimeout = 10 * time.Second
)

// ErrNotConnected means the user has no usable credential for the provider.
// Refresh failures of any kind collapse to this at the vault boundary;
// callers never see raw provider errors.
var ErrNotConnected = errors.New("provider not connected")

// RefreshResult is what a provider's token endpoint returns for a refresh.
type RefreshResult struct {
	AccessToken  string
	ExpiresAt    time.Time
	RefreshToken string // empty unless the provider rotated it
}

// RefreshClient exchanges a refresh token for a new access token.
type RefreshClient interface {
	Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error)
}

// Vault stores sealed per-(user, provider) credentials and hands out valid
// plaintext access tokens, refreshing behind the scenes when needed.
type Vault struct {
	db         *gorm.DB
	cipher     *crypto.Cipher
	refreshers map[string]RefreshClient

	// mu guards locks; each record gets its own mutex so concurrent refreshes
	// of the same record serialize without blocking unrelated users.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a vault. refreshers maps provider name to its refresh client;
// providers whose tokens never expire (Notion) need no entry.
func New(database *gorm.DB, cipher *crypto.Cipher, refreshers map[string]RefreshClient) *Vault {
	if refreshers == nil {
		refreshers = map[string]RefreshClient{}
	}
	return &Vault{
		db:         database,
		cipher:     cipher,
		refreshers: refreshers,
		locks:      make(map[string]*sync.Mutex),
	}
}

// AccessToken returns a currently valid plaintext access token for the user's
// connection to provider, refreshing it first if it expires within
// RefreshBuffer. Returns ErrNotConnected when there is no connection or no
// way to obtain a fresh token.
func (v *Vault) AccessToken(ctx context.Context, userID, provider string) (string, error) {
	var conn models.Connection
	err := v.db.Where("user_id = ? AND provider = ?", userID, provider).First(&conn).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("⚠️ Connection lookup failed for user %s provider %s: %v", userID, provider, err)
		}
		return "", ErrNotConnected
	}

	if fresh(&conn, time.Now()) {
		return v.cipher.Unseal(conn.AccessToken)
	}

	return v.refresh(ctx, userID, provider)
}

// fresh reports whether the stored access token can be served without a
// network call: no expiry at all, or expiry beyond the refresh-ahead window.
func fresh(conn *models.Connection, now time.Time) bool {
	return conn.ExpiresAt == nil || conn.ExpiresAt.After(now.Add(RefreshBuffer))
}

// refresh renews one record. Concurrent refreshes of the same record are
// serialized; every write is derived from a fresh read taken under the lock,
// and the record is only ever replaced wholesale after a fully successful
// refresh.
func (v *Vault) refresh(ctx context.Context, userID, provider string) (string, error) {
	lock := v.recordLock(userID + "|" + provider)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock: a racing caller may have refreshed already.
	var conn models.Connection
	if err := v.db.Where("user_id = ? AND provider = ?", userID, provider).First(&conn).Error; err != nil {
		return "", ErrNotConnected
	}
	if fresh(&conn, time.Now()) {
		return v.cipher.Unseal(conn.AccessToken)
	}

	if conn.RefreshToken == "" {
		log.Printf("⚠️ Token for user %s provider %s expired and no refresh token available", userID, provider)
		return "", ErrNotConnected
	}

	refresher, ok := v.refreshers[provider]
	if !ok {
		log.Printf("⚠️ No refresh client registered for provider %s", provider)
		return "", ErrNotConnected
	}

	refreshToken, err := v.cipher.Unseal(conn.RefreshToken)
	if err != nil {
		// Tampered or re-keyed blob: fatal for the record, not swallowed.
		return "", fmt.Errorf("unseal refresh token: %w", err)
	}

	log.Printf("🔄 Refreshing %s token for user %s...", provider, userID)

	refreshCtx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	result, err := refresher.Refresh(refreshCtx, refreshToken)
	if err != nil {
		if isPermanentRefreshError(err) {
			log.Printf("🔒 Refresh grant revoked for user %s provider %s: %v", userID, provider, err)
		} else {
			log.Printf("❌ Token refresh failed for user %s provider %s: %v", userID, provider, err)
		}
		// Keep the last-known record intact rather than corrupting it.
		return "", ErrNotConnected
	}

	sealedAccess, err := v.cipher.Seal(result.AccessToken)
	if err != nil {
		return "", fmt.Errorf("seal access token: %w", err)
	}

	conn.AccessToken = sealedAccess
	expiresAt := result.ExpiresAt
	conn.ExpiresAt = &expiresAt
	// Persist a rotated refresh token only if the provider issued one.
	if result.RefreshToken != "" && result.RefreshToken != refreshToken {
		log.Printf("🔄 Rotating refresh token for user %s provider %s", userID, provider)
		sealedRefresh, err := v.cipher.Seal(result.RefreshToken)
		if err != nil {
			return "", fmt.Errorf("seal refresh token: %w", err)
		}
		conn.RefreshToken = sealedRefresh
	}

	if err := v.db.Save(&conn).Error; err != nil {
		return "", fmt.Errorf("save refreshed connection: %w", err)
	}

	log.Printf("✅ Refreshed %s token for user %s (expires: %s)", provider, userID, expiresAt.Format(time.RFC3339))
	return result.AccessToken, nil
}

func (v *Vault) recordLock(key string) *sync.Mutex {
	v.mu.Lock()
	defer v.mu.Unlock()
	lock, ok := v.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		v.locks[key] = lock
	}
	return lock
}

// Upsert creates or replaces the connection record for (userID, provider),
// sealing both tokens. Called from OAuth callbacks after a successful
// authorization-code exchange.
func (v *Vault) Upsert(userID, provider, providerAccountID, accessToken, refreshToken string, expiresAt *time.Time, scopes string) error {
	sealedAccess, err := v.cipher.Seal(accessToken)
	if err != nil {
		return fmt.Errorf("seal access token: %w", err)
	}

	var conn models.Connection
	err = v.db.Where("user_id = ? AND provider = ?", userID, provider).First(&conn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		conn = models.Connection{
			ID:       uuid.New().String(),
			UserID:   userID,
			Provider: provider,
		}
	} else if err != nil {
		return fmt.Errorf("lookup connection: %w", err)
	}

	conn.ProviderAccountID = providerAccountID
	conn.AccessToken = sealedAccess
	conn.ExpiresAt = expiresAt
	conn.Scopes = scopes
	if refreshToken != "" {
		sealedRefresh, err := v.cipher.Seal(refreshToken)
		if err != nil {
			return fmt.Errorf("seal refresh token: %w", err)
		}
		conn.RefreshToken = sealedRefresh
	}

	if err := v.db.Save(&conn).Error; err != nil {
		return fmt.Errorf("save connection: %w", err)
	}
	log.Printf("✅ Stored %s connection for user %s", provider, userID)
	return nil
}

// Providers lists the providers the user has connected, in provider order.
func (v *Vault) Providers(userID string) []string {
	var names []string
	v.db.Model(&models.Connection{}).
		Where("user_id = ?", userID).
		Order("provider").
		Pluck("provider", &names)
	return names
}

// HasConnections reports whether the user has at least one connected
// provider. The orchestrator uses this to pick capability mode.
func (v *Vault) HasConnections(userID string) bool {
	if userID == "" {
		return false
	}
	var count int64
	v.db.Model(&models.Connection{}).Where("user_id = ?", userID).Count(&count)
	return count > 0
}

// Disconnect removes the user's connection to provider and reports how many
// connections remain.
func (v *Vault) Disconnect(userID, provider string) (remaining int64, err error) {
	res := v.db.Where("user_id = ? AND provider = ?", userID, provider).Delete(&models.Connection{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete connection: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, ErrNotConnected
	}
	v.db.Model(&models.Connection{}).Where("user_id = ?", userID).Count(&remaining)
	log.Printf("🔌 Disconnected %s for user %s (%d connections remaining)", provider, userID, remaining)
	return remaining, nil
}

// DeleteUser removes a user and all their connections (cascade).
func (v *Vault) DeleteUser(userID string) error {
	if err := v.db.Where("user_id = ?", userID).Delete(&models.Connection{}).Error; err != nil {
		return fmt.Errorf("delete connections: %w", err)
	}
	if err := v.db.Where("id = ?", userID).Delete(&models.User{}).Error; err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// isPermanentRefreshError distinguishes revoked grants from transient
// provider outages; both map to ErrNotConnected but log differently.
func isPermanentRefreshError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	permanentMarkers := []string{
		"invalid_grant",
		"invalid_client",
		"unauthorized_client",
		"token has been expired or revoked",
		"revoked",
	}
	for _, marker := range permanentMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
