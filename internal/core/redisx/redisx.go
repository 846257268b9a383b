package redisx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr, pass string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})
}

// FixedWindow 固定窗口计数：INCR 后首次写入才设置过期。
// 返回窗口内的当前计数；redis 出错时返回 0 和 err，调用方自行决定放行与否。
func FixedWindow(ctx context.Context, rdb *redis.Client, key string, window time.Duration) (int64, error) {
	n, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		_ = rdb.Expire(ctx, key, window).Err()
	}
	return n, nil
}

// Relay 跨实例广播中继（pub/sub，无持久化、无回放）
type Relay struct {
	rdb     *redis.Client
	channel string
}

func NewRelay(rdb *redis.Client, channel string) *Relay {
	return &Relay{rdb: rdb, channel: channel}
}

func (r *Relay) Publish(ctx context.Context, payload []byte) error {
	return r.rdb.Publish(ctx, r.channel, payload).Err()
}

// Subscribe 阻塞消费，ctx 取消后退出；应在独立 goroutine 中运行
func (r *Relay) Subscribe(ctx context.Context, fn func([]byte)) {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer sub.Close()
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fn([]byte(msg.Payload))
		}
	}
}
