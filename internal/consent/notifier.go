package consent

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/spaceai-assistant/internal/domain"
	"github.com/xela07ax/spaceai-assistant/internal/infra"
)

// RedisNotifier публикует решения в канал devit:consents:decisions в формате "id:resolution".
type RedisNotifier struct {
	rdb *redis.Client
}

func NewRedisNotifier(rdb *redis.Client) *RedisNotifier {
	return &RedisNotifier{rdb: rdb}
}

func (n *RedisNotifier) NotifyResolved(ctx context.Context, req *domain.ConsentRequest) error {
	payload := fmt.Sprintf("%s:%s", req.ID, req.Status)
	return n.rdb.Publish(ctx, infra.RedisChanConsentDecisions, payload).Err()
}
