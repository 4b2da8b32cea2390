package worker

import (
	"context"
	"log"
	"time"

	"fitroom-tryon-server/modules/common/config"
	"fitroom-tryon-server/modules/common/database"
	"fitroom-tryon-server/modules/common/model"
	redisutil "fitroom-tryon-server/modules/common/redis"
	"fitroom-tryon-server/modules/facelock"
	"fitroom-tryon-server/modules/tryon"
)

// StartWorker - Redis Queue Worker 시작
// faces는 HTTP 핸들러와 같은 세션 스토어를 공유한다 (freeze 캐시 재사용)
func StartWorker(faces *facelock.Manager, notify tryon.ProgressFunc) {
	log.Println("🔄 Redis Queue Worker starting...")

	cfg := config.GetConfig()

	// Redis 연결
	rdb := redisutil.Connect(cfg)
	if rdb == nil {
		log.Fatal("❌ Failed to connect to Redis")
		return
	}
	log.Println("✅ Redis connected successfully")

	// Database 클라이언트 초기화
	dbClient := database.NewClient()
	if dbClient == nil {
		log.Fatal("❌ Failed to initialize Database client")
		return
	}

	// Queue 감시 시작
	log.Printf("👀 Watching queue: %s", redisutil.JobQueueKey)

	ctx := context.Background()

	for {
		// Job 받기 (BRPOP - Blocking Right Pop)
		result, err := rdb.BRPop(ctx, 0, redisutil.JobQueueKey).Result()
		if err != nil {
			log.Printf("❌ Redis BRPOP error: %v", err)
			time.Sleep(5 * time.Second)
			continue
		}

		// result[0]은 큐 이름, result[1]이 실제 job_id
		jobID := result[1]
		log.Printf("🎯 Received new job: %s", jobID)

		// Job 처리 (goroutine으로 비동기)
		go processJob(ctx, dbClient, jobID, faces, notify)
	}
}

// processJob - Job 데이터 조회 후 job_type 기반 라우팅
func processJob(ctx context.Context, dbClient *database.Client, jobID string, faces *facelock.Manager, notify tryon.ProgressFunc) {
	log.Printf("🚀 Processing job: %s", jobID)

	job, err := dbClient.FetchJob(jobID)
	if err != nil {
		log.Printf("❌ Failed to fetch job %s: %v", jobID, err)
		return
	}

	log.Printf("📦 Job Data:")
	log.Printf("   JobID: %s", job.JobID)
	log.Printf("   JobType: %s", job.JobType)
	log.Printf("   SessionID: %s", job.SessionID)
	log.Printf("   Status: %s", job.JobStatus)
	log.Printf("   TotalVariants: %d", job.TotalVariants)

	// 큐에 들어오기 전에 이미 취소된 Job은 바로 종료
	cfg := config.GetConfig()
	if rdb := redisutil.Connect(cfg); rdb != nil && redisutil.IsJobCancelled(rdb, jobID) {
		log.Printf("⚠️ Job %s already cancelled, skipping", jobID)
		if err := dbClient.UpdateJobStatus(ctx, jobID, model.StatusUserCancelled); err != nil {
			log.Printf("⚠️ Failed to update cancelled status: %v", err)
		}
		return
	}

	switch job.JobType {
	case model.JobTypeTryonGenerate:
		log.Printf("👗 Routing to Tryon module")
		tryon.ProcessJob(ctx, job, faces, notify)

	default:
		log.Printf("⚠️  Unknown job_type: %s, treating as tryon_generate", job.JobType)
		tryon.ProcessJob(ctx, job, faces, notify)
	}

	log.Printf("✅ Job %s processing completed", jobID)
}
