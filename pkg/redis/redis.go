package redis

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type IRedis interface {
	AcquireLock(ctx context.Context, key string, token string, expiration time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string, token string) (bool, error)
	LockExists(ctx context.Context, key string) (bool, error)
	Close() error
}

type redisClient struct {
	client *redis.Client
}

// releaseScript deletes the key only while it still holds the caller's token,
// so an expired lock taken over by another run is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func New() IRedis {
	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	redisAddr := os.Getenv("REDIS_ADDRESS")
	redisPassword := os.Getenv("REDIS_PASSWORD")

	logrus.Info(fmt.Sprintf("Connecting to Redis at %s...", redisAddr))

	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		logrus.Error(fmt.Sprintf("Failed to connect to Redis: %v", err))
	} else {
		logrus.Info("Successfully connected to Redis")
	}

	return &redisClient{client: client}
}

func NewWithClient(client *redis.Client) IRedis {
	return &redisClient{client: client}
}

func (r *redisClient) AcquireLock(ctx context.Context, key string, token string, expiration time.Duration) (bool, error) {
	logrus.Debug(fmt.Sprintf("Acquiring lock %s with expiration %v", key, expiration))
	ok, err := r.client.SetNX(ctx, key, token, expiration).Result()
	if err != nil {
		logrus.Error(fmt.Sprintf("Error acquiring lock %s: %v", key, err))
		return false, err
	}
	if !ok {
		logrus.Debug(fmt.Sprintf("Lock %s is already held", key))
	}
	return ok, nil
}

func (r *redisClient) ReleaseLock(ctx context.Context, key string, token string) (bool, error) {
	logrus.Debug(fmt.Sprintf("Releasing lock %s", key))
	result, err := releaseScript.Run(ctx, r.client, []string{key}, token).Int64()
	if err != nil {
		logrus.Error(fmt.Sprintf("Error releasing lock %s: %v", key, err))
		return false, err
	}

	if result == 0 {
		logrus.Debug(fmt.Sprintf("Lock %s was not held by this token", key))
		return false, nil
	}

	logrus.Debug(fmt.Sprintf("Successfully released lock %s", key))
	return true, nil
}

func (r *redisClient) LockExists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		logrus.Error(fmt.Sprintf("Error checking lock %s: %v", key, err))
		return false, err
	}
	return n > 0, nil
}

func (r *redisClient) Close() error {
	return r.client.Close()
}
