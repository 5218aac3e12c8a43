package config

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

var RDB *redis.Client
var Ctx = context.Background()

func ConnectRedis() {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		slog.Warn("Переменная окружения REDIS_ADDR не установлена, кэширование будет отключено.")
		return
	}

	RDB = redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	// Проверяем соединение
	if _, err := RDB.Ping(Ctx).Result(); err != nil {
		slog.Error("Не удалось подключиться к Redis", "error", err)
		RDB = nil // Обнуляем клиент, чтобы приложение не пыталось его использовать
		return
	}

	slog.Info("Успешное подключение к Redis!")
}

// CacheGetJSON читает значение из кэша и десериализует его в dest.
// Возвращает false при отсутствии ключа или недоступном Redis.
func CacheGetJSON(key string, dest interface{}) bool {
	if RDB == nil {
		return false
	}
	raw, err := RDB.Get(Ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			slog.Error("Redis GET command failed", "error", err, "key", key)
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		slog.Warn("Failed to unmarshal cached value", "key", key)
		return false
	}
	return true
}

// CacheSetJSON сериализует значение и кладет его в кэш с заданным TTL.
func CacheSetJSON(key string, value interface{}, ttl time.Duration) {
	if RDB == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := RDB.Set(Ctx, key, raw, ttl).Err(); err != nil {
		slog.Error("Redis SET command failed", "error", err, "key", key)
	}
}

// CacheDelete удаляет ключ из кэша (например, при смене strict-режима).
func CacheDelete(key string) {
	if RDB == nil {
		return
	}
	if err := RDB.Del(Ctx, key).Err(); err != nil {
		slog.Error("Redis DEL command failed", "error", err, "key", key)
	}
}
