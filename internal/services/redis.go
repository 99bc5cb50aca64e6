package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

var RedisClient *redis.Client

// ErrRedisUnavailable is returned when the cache has not been initialized.
// Callers treat the cache as best effort, so this only ever gets logged.
var ErrRedisUnavailable = errors.New("redis client not initialized")

// InitRedis initializes the Redis client
func InitRedis() error {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://redis:6379" // Default Redis address for Docker
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %v", err)
	}

	RedisClient = redis.NewClient(opt)

	// Test the connection
	ctx := context.Background()
	_, err = RedisClient.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return nil
}

// SetDriverLocation stores driver location in Redis
func SetDriverLocation(ctx context.Context, driverID uint, lat, lng float64) error {
	if RedisClient == nil {
		return ErrRedisUnavailable
	}

	locationData := map[string]interface{}{
		"lat":     lat,
		"lng":     lng,
		"updated": time.Now().Unix(),
	}

	data, err := json.Marshal(locationData)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("driver:location:%d", driverID)
	return RedisClient.Set(ctx, key, data, time.Hour).Err()
}

// SetDriverBusy caches the driver's busy flag beside the DB row. The store
// row stays the source of truth; the cache only serves availability polls.
func SetDriverBusy(ctx context.Context, driverID uint, isBusy bool) error {
	if RedisClient == nil {
		return ErrRedisUnavailable
	}

	key := fmt.Sprintf("driver:busy:%d", driverID)
	value := "false"
	if isBusy {
		value = "true"
	}
	return RedisClient.Set(ctx, key, value, time.Hour).Err()
}

// GetDriverBusy retrieves the cached busy flag
func GetDriverBusy(ctx context.Context, driverID uint) (bool, error) {
	if RedisClient == nil {
		return false, ErrRedisUnavailable
	}

	key := fmt.Sprintf("driver:busy:%d", driverID)
	result, err := RedisClient.Get(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return result == "true", nil
}

// PublishRideUpdate publishes ride status update to Redis pub/sub
func PublishRideUpdate(ctx context.Context, rideID uint, status string, data map[string]interface{}) error {
	if RedisClient == nil {
		return ErrRedisUnavailable
	}

	updateData := map[string]interface{}{
		"rideId":    rideID,
		"status":    status,
		"data":      data,
		"timestamp": time.Now().Unix(),
	}

	jsonData, err := json.Marshal(updateData)
	if err != nil {
		return err
	}

	return RedisClient.Publish(ctx, "ride:updates", jsonData).Err()
}
