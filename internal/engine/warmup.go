package engine

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// WarmupState прогревает L1 (RAM) и L2 (Redis) из статического источника (конфиг).
// Redis заливается только если он пуст: состояние, выставленное оператором в рантайме, важнее.
func WarmupState(
	ctx context.Context,
	rdb *redis.Client,
	logger *zap.Logger,
	names []string,
	redisKey string,
	lockKey string,
	updateL1 func([]string), // Callback для обновления локальной мапы
) error {
	// 1. Обновляем локальный кэш (L1)
	updateL1(names)
	if rdb == nil || len(names) == 0 {
		return nil
	}

	// 2. Распределенная блокировка (SetNX), чтобы только один инстанс обновлял Redis
	ok, err := rdb.SetNX(ctx, lockKey, "processing", 30*time.Second).Result()
	if err != nil || !ok {
		return nil // Либо ошибка сети, либо другой уже греет кэш
	}
	defer rdb.Del(context.WithoutCancel(ctx), lockKey)

	// 3. Проверка наполненности Redis
	count, err := rdb.SCard(ctx, redisKey).Result()
	if err != nil {
		count = 0
		logger.Warn("could not check Redis set size, proceeding with warm-up",
			zap.String("key", redisKey), zap.Error(err))
	}

	// 4. Redis пуст, заливаем
	if count == 0 {
		logger.Info("Redis state is empty, performing warm-up from config...",
			zap.String("key", redisKey), zap.Int("count", len(names)))

		pipe := rdb.Pipeline()
		for _, name := range names {
			pipe.SAdd(ctx, redisKey, name)
		}
		_, err = pipe.Exec(ctx)
		return err
	}

	return nil
}
