package cache

import (
	"context"
	"time"

	appErr "github.com/Diwakar-Gupta/pepper/pkg/errors"
	"github.com/Diwakar-Gupta/pepper/pkg/utils/logger"

	"go.uber.org/zap"
)

// GetOrLoad implements cache-aside: the cache is consulted first and only on a
// miss is load called. A loaded value is written back; a failed write-back is
// logged and the loaded value still returned.
func GetOrLoad(ctx context.Context, c Cache, key string, ttl time.Duration, load func(ctx context.Context) (string, error)) (string, error) {
	val, err := c.Get(ctx, key)
	if err == nil {
		return val, nil
	}
	if !appErr.Is(err, appErr.CacheMiss) {
		logger.Warn(ctx, "cache read failed, loading from source", zap.String("key", key), zap.Error(err))
	}

	val, err = load(ctx)
	if err != nil {
		return "", err
	}
	if err := c.Set(ctx, key, val, ttl); err != nil {
		logger.Warn(ctx, "cache write failed", zap.String("key", key), zap.Error(err))
	}
	return val, nil
}

func miss(key string) error {
	return appErr.New(appErr.CacheMiss).WithDetail("key", key)
}
