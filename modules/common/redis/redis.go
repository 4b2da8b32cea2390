package redis

import (
	"context"
	"crypto/tls"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"fitroom-tryon-server/modules/common/config"
)

const (
	// JobQueueKey - 워커가 감시하는 Job 큐
	JobQueueKey = "tryon:jobs:queue"

	cancelKeyPrefix = "tryon:job:cancel:"
	cancelTTL       = time.Hour
)

// Connect - Redis 연결 생성
func Connect(cfg *config.Config) *redis.Client {
	log.Printf("🔌 Connecting to Redis: %s", cfg.GetRedisAddr())

	// TLS 설정 (InsecureSkipVerify 추가)
	var tlsConfig *tls.Config
	if cfg.RedisUseTLS {
		tlsConfig = &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: true, // Render.com Redis용
		}
	}

	// Redis 클라이언트 생성
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Username:     cfg.RedisUsername,
		Password:     cfg.RedisPassword,
		TLSConfig:    tlsConfig,
		DB:           0,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	// 연결 테스트
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Printf("🔍 Testing Redis connection...")
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("❌ Redis ping failed: %v", err)
		return nil
	}

	return rdb
}

// EnqueueJob - Job ID를 큐에 추가, 큐 길이 반환
func EnqueueJob(ctx context.Context, rdb *redis.Client, jobID string) (int64, error) {
	if _, err := rdb.LPush(ctx, JobQueueKey, jobID).Result(); err != nil {
		return 0, err
	}
	queueLen, _ := rdb.LLen(ctx, JobQueueKey).Result()
	return queueLen, nil
}

// SetJobCancelled - Job 취소 플래그 설정
func SetJobCancelled(rdb *redis.Client, jobID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return rdb.Set(ctx, cancelKeyPrefix+jobID, "1", cancelTTL).Err()
}

// IsJobCancelled - Job 취소 여부 확인
// Redis 장애 시에는 false (취소 안 된 것으로 간주하고 계속 진행)
func IsJobCancelled(rdb *redis.Client, jobID string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	val, err := rdb.Get(ctx, cancelKeyPrefix+jobID).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("⚠️ Failed to check cancel flag for job %s: %v", jobID, err)
		}
		return false
	}
	return val == "1"
}
