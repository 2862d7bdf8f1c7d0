package utils

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mmdatafocus/ledger_backend/config"
)

// CACHE_LIFESPAN is in hours, default 1.
func GetCacheLifespan() time.Duration {
	lifespan, err := strconv.Atoi(os.Getenv("CACHE_LIFESPAN"))
	if err != nil || lifespan <= 0 {
		lifespan = 1
	}
	return time.Duration(lifespan) * time.Hour
}

func CacheKey(parts ...string) string {
	return "ledger:" + strings.Join(parts, ":")
}

// store instance, obj should be a pointer
func StoreRedis[T any](ctx context.Context, key string, obj *T) error {
	return config.SetRedisObject(ctx, key, obj, GetCacheLifespan())
}

// retrieve instance, (nil, false) on cache miss or when redis is not connected
func RetrieveRedis[T any](ctx context.Context, key string) (*T, bool, error) {
	var dest T
	exists, err := config.GetRedisObject(ctx, key, &dest)
	if err != nil || !exists {
		return nil, false, err
	}
	return &dest, true, nil
}

func RemoveRedis(ctx context.Context, keys ...string) error {
	return config.RemoveRedisKey(ctx, keys...)
}
