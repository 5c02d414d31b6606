package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/pkg/config"
)

// Namespace prefixes every key written by this service.
const Namespace = "timetable"

// NewRedis returns a configured Redis client.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	if logger != nil {
		logger.Info("redis connected", zap.String("addr", addr), zap.Int("db", cfg.DB))
	}
	return client, nil
}

// Key joins parts under the service namespace, e.g. timetable:conflicts:2024:1.
func Key(parts ...string) string {
	return Namespace + ":" + strings.Join(parts, ":")
}
