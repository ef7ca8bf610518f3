package auth

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"billing-system/internal/database/models"
)

const revokedKeyPrefix = "revoked:"

// Ledger tracks signed-out tokens until their natural expiry. The
// database row is the source of truth; redis mirrors it write-through
// so revocation is visible to the very next verification call either
// way.
type Ledger struct {
	db     *gorm.DB
	redis  *redis.Client
	signer *Signer
}

func NewLedger(db *gorm.DB, redisClient *redis.Client, signer *Signer) *Ledger {
	return &Ledger{
		db:     db,
		redis:  redisClient,
		signer: signer,
	}
}

func (l *Ledger) Revoke(ctx context.Context, userID int64, token string) error {
	entry := models.RevokedToken{Token: token, UserID: userID}
	if err := l.db.WithContext(ctx).Where("token = ?", token).FirstOrCreate(&entry).Error; err != nil {
		return err
	}

	if l.redis != nil {
		ttl := time.Hour
		if claims, err := l.signer.ParseAllowExpired(token); err == nil && claims.ExpiresAt != nil {
			if remaining := time.Until(claims.ExpiresAt.Time); remaining > ttl {
				ttl = remaining
			}
		}
		_ = l.redis.Set(ctx, revokedKeyPrefix+token, "1", ttl).Err()
	}

	return nil
}

func (l *Ledger) IsRevoked(ctx context.Context, token string) (bool, error) {
	if l.redis != nil {
		if n, err := l.redis.Exists(ctx, revokedKeyPrefix+token).Result(); err == nil && n > 0 {
			return true, nil
		}
	}

	var count int64
	if err := l.db.WithContext(ctx).Model(&models.RevokedToken{}).Where("token = ?", token).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Sweep purges entries whose token has expired or no longer decodes.
// Undecodable entries are garbage and fail open toward removal; a
// still-valid token is always kept. Returns the number removed.
func (l *Ledger) Sweep(ctx context.Context) (int, error) {
	var entries []models.RevokedToken
	if err := l.db.WithContext(ctx).Find(&entries).Error; err != nil {
		return 0, err
	}

	now := time.Now()
	removed := 0
	for _, entry := range entries {
		claims, err := l.signer.ParseAllowExpired(entry.Token)
		if err == nil && claims.ExpiresAt != nil && claims.ExpiresAt.Time.After(now) {
			continue
		}

		if err := l.db.WithContext(ctx).Delete(&models.RevokedToken{}, entry.ID).Error; err != nil {
			return removed, err
		}
		if l.redis != nil {
			_ = l.redis.Del(ctx, revokedKeyPrefix+entry.Token)
		}
		removed++
	}

	return removed, nil
}
