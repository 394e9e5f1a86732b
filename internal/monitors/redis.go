package monitors

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisTimeout = 5 * time.Second

// CheckRedis pings the Redis server behind uri. The client is closed on every
// path.
func CheckRedis(ctx context.Context, uri string) (Response, error) {
	start := time.Now()

	opts, err := redis.ParseURL(uri)
	if err != nil {
		return Response{}, refused(start, 500, "Redis connection string is invalid", err)
	}

	opts.DialTimeout = redisTimeout
	opts.ReadTimeout = redisTimeout
	opts.MaxRetries = -1

	client := redis.NewClient(opts)
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		message := err.Error()
		if message == "" {
			message = "Redis server down"
		}
		return Response{}, refused(start, 500, message, nil)
	}

	return established(start, "Redis server running"), nil
}
