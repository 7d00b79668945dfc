package data

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"
)

const revokedPrefix = "guestrevoked:"

func MustRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	return redis.NewClient(opt)
}

// RevokeGuestToken marks a guest token id as revoked. No TTL: tokens are
// time-unbounded, so revocation has to outlive them.
func RevokeGuestToken(ctx context.Context, rdb *redis.Client, jti string) error {
	return rdb.Set(ctx, revokedPrefix+jti, "1", 0).Err()
}

// GuestTokenRevoked reports whether a token id has been revoked.
func GuestTokenRevoked(ctx context.Context, rdb *redis.Client, jti string) (bool, error) {
	n, err := rdb.Exists(ctx, revokedPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
