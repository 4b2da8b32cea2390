package tryon

import (
	"context"
	"log"
	"time"

	"fitroom-tryon-server/modules/analyzer"
	"fitroom-tryon-server/modules/bodyattrs"
	"fitroom-tryon-server/modules/common/config"
	"fitroom-tryon-server/modules/common/database"
	"fitroom-tryon-server/modules/common/fallback"
	"fitroom-tryon-server/modules/common/imageutil"
	"fitroom-tryon-server/modules/common/model"
	redisutil "fitroom-tryon-server/modules/common/redis"
	"fitroom-tryon-server/modules/common/storage"
	"fitroom-tryon-server/modules/facelock"
	"fitroom-tryon-server/modules/garment"
)

// ProcessJob - Try-on Job 처리 (워커 루프에서 호출)
func ProcessJob(ctx context.Context, job *model.TryonJob, faces *facelock.Manager, notify ProgressFunc) {
	log.Printf("👗 [Tryon] Starting job processing: %s", job.JobID)

	cfg := config.GetConfig()
	dbClient := database.NewClient()
	if dbClient == nil {
		log.Printf("❌ [Tryon] Failed to initialize DB client for job: %s", job.JobID)
		return
	}

	// Phase 1: Input Data 추출
	inputData := job.JobInputData
	if inputData == nil {
		log.Printf("❌ [Tryon] Missing job_input_data")
		updateJobFailed(dbClient, job.JobID, "Missing job input data")
		return
	}

	sessionID := fallback.SafeString(inputData["sessionId"], job.SessionID)
	if sessionID == "" {
		log.Printf("❌ [Tryon] Missing sessionId")
		updateJobFailed(dbClient, job.JobID, "Missing session ID")
		return
	}

	aspectRatio := fallback.SafeString(inputData["aspectRatio"], "3:4")

	storageClient := storage.NewClient(dbClient)

	subjectImage, err := loadInputImage(inputData, storageClient, "subjectImageBase64", "subjectAttachId")
	if err != nil {
		log.Printf("❌ [Tryon] Failed to load subject image: %v", err)
		updateJobFailed(dbClient, job.JobID, "Failed to load subject image")
		return
	}

	garmentImage, err := loadInputImage(inputData, storageClient, "garmentImageBase64", "garmentAttachId")
	if err != nil {
		log.Printf("❌ [Tryon] Failed to load garment image: %v", err)
		updateJobFailed(dbClient, job.JobID, "Failed to load garment image")
		return
	}

	log.Printf("📦 [Tryon] Input: session=%s, subject=%d bytes, garment=%d bytes, aspectRatio=%s",
		sessionID, len(subjectImage), len(garmentImage), aspectRatio)

	// Phase 2: Status 업데이트 → processing
	if err := dbClient.UpdateJobStatus(ctx, job.JobID, model.StatusProcessing); err != nil {
		log.Printf("⚠️ [Tryon] Failed to update job status: %v", err)
	}

	// Phase 3: 파이프라인 구성
	service := NewService()
	geminiAnalyzer := analyzer.NewGeminiAnalyzer()
	if geminiAnalyzer == nil {
		log.Printf("❌ [Tryon] Failed to initialize analyzer for job: %s", job.JobID)
		updateJobFailed(dbClient, job.JobID, "Failed to initialize image analyzer")
		return
	}

	extractor := garment.NewHTTPExtractor(cfg.ExtractorURL, cfg.ExtractorTimeout)
	gate := garment.NewGate(geminiAnalyzer, extractor, cfg.Thresholds.GarmentQualityMin)
	body := bodyattrs.NewInferencer(geminiAnalyzer)
	orchestrator := NewOrchestrator(service)
	validator := NewValidator(geminiAnalyzer, cfg.Thresholds)
	runner := NewRetryRunner(orchestrator, validator)
	pipeline := NewPipeline(faces, gate, body, runner, cfg.Thresholds, notify)

	rdb := redisutil.Connect(cfg)
	isCancelled := func(jobID string) bool {
		if rdb == nil {
			return false
		}
		return redisutil.IsJobCancelled(rdb, jobID)
	}

	// Phase 4: 파이프라인 실행 (Job 단위 deadline)
	jobCtx, cancel := context.WithTimeout(ctx, cfg.JobTimeout)
	defer cancel()

	result, err := pipeline.Run(jobCtx, job.JobID, sessionID, subjectImage, garmentImage, aspectRatio, isCancelled)
	if err != nil {
		if isCancelled(job.JobID) {
			log.Printf("⚠️ [Tryon] Job cancelled by user: %s", job.JobID)
			if updateErr := dbClient.UpdateJobStatus(ctx, job.JobID, model.StatusUserCancelled); updateErr != nil {
				log.Printf("⚠️ [Tryon] Failed to update cancelled status: %v", updateErr)
			}
			return
		}
		log.Printf("❌ [Tryon] Pipeline failed for job %s: %v", job.JobID, err)
		updateJobFailed(dbClient, job.JobID, err.Error())
		return
	}

	// Phase 5: 결과 업로드 (WebP 변환 후 Storage 저장)
	var attachIDs []int
	for _, image := range result.Batch.Images() {
		filePath, fileSize, err := storageClient.UploadImage(ctx, image, sessionID)
		if err != nil {
			log.Printf("⚠️ [Tryon] Failed to upload result image: %v", err)
			continue
		}
		attachID, err := dbClient.CreateAttachRecord(ctx, filePath, fileSize)
		if err != nil {
			log.Printf("⚠️ [Tryon] Failed to create attach record: %v", err)
			continue
		}
		attachIDs = append(attachIDs, attachID)

		if err := dbClient.UpdateJobProgress(ctx, job.JobID, len(attachIDs), attachIDs); err != nil {
			log.Printf("⚠️ [Tryon] Failed to update progress: %v", err)
		}
	}

	if len(attachIDs) == 0 {
		log.Printf("❌ [Tryon] No result images could be stored for job %s", job.JobID)
		updateJobFailed(dbClient, job.JobID, "Failed to store generated images")
		return
	}

	// Phase 6: Job 완료 상태 업데이트
	validationPassed := result.Report != nil && result.Report.Passed
	failedVariants := result.Batch.Requested - result.Batch.Succeeded
	if err := dbClient.UpdateJobCompleted(ctx, job.JobID, attachIDs, validationPassed, result.RetryUsed, failedVariants); err != nil {
		log.Printf("⚠️ [Tryon] Failed to update job completed: %v", err)
	}

	log.Printf("✅ [Tryon] Job completed - JobID: %s, Images: %d, ValidationPassed: %v, RetryUsed: %v (%dms)",
		job.JobID, len(attachIDs), validationPassed, result.RetryUsed, result.ElapsedMs)
}

// loadInputImage - base64 우선, 없으면 attachId로 스토리지에서 다운로드
func loadInputImage(inputData map[string]interface{}, storageClient *storage.Client, base64Key, attachKey string) ([]byte, error) {
	if encoded, ok := inputData[base64Key].(string); ok && encoded != "" {
		data, err := imageutil.FromBase64(encoded)
		if err != nil {
			return nil, err
		}
		log.Printf("📦 [Tryon] Using base64 input for %s: %d bytes", base64Key, len(data))
		return data, nil
	}
	if attachID := fallback.SafeInt(inputData[attachKey], 0); attachID > 0 {
		data, err := storageClient.DownloadImage(attachID)
		if err != nil {
			return nil, err
		}
		log.Printf("📦 [Tryon] Downloaded input for %s (attach %d): %d bytes", attachKey, attachID, len(data))
		return data, nil
	}
	return nil, errMissingInput(base64Key, attachKey)
}

type missingInputError struct {
	base64Key string
	attachKey string
}

func (e *missingInputError) Error() string {
	return "missing input image (" + e.base64Key + " or " + e.attachKey + ")"
}

func errMissingInput(base64Key, attachKey string) error {
	return &missingInputError{base64Key: base64Key, attachKey: attachKey}
}

// updateJobFailed - Job 실패 상태 업데이트
func updateJobFailed(dbClient *database.Client, jobID, errorMsg string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := dbClient.UpdateJobFailed(ctx, jobID, errorMsg); err != nil {
		log.Printf("❌ [Tryon] Failed to update job failed status: %v", err)
	}
}
