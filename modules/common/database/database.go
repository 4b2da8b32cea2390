package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/supabase-community/supabase-go"

	"fitroom-tryon-server/modules/common/config"
	"fitroom-tryon-server/modules/common/model"
)

type Client struct {
	supabase *supabase.Client
}

// NewClient - Database 클라이언트 생성
func NewClient() *Client {
	cfg := config.GetConfig()

	supabaseClient, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, &supabase.ClientOptions{})
	if err != nil {
		log.Printf("❌ Failed to create Supabase client: %v", err)
		return nil
	}

	return &Client{
		supabase: supabaseClient,
	}
}

// FetchJob - Supabase에서 Job 데이터 조회
func (c *Client) FetchJob(jobID string) (*model.TryonJob, error) {
	log.Printf("🔍 Fetching job from Supabase: %s", jobID)

	var jobs []model.TryonJob

	data, _, err := c.supabase.From("fitroom_tryon_jobs").
		Select("*", "exact", false).
		Eq("job_id", jobID).
		Execute()

	if err != nil {
		return nil, fmt.Errorf("failed to query Supabase: %w", err)
	}

	// JSON 파싱
	if err := json.Unmarshal(data, &jobs); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(jobs) == 0 {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}

	job := &jobs[0]
	log.Printf("✅ Job fetched successfully: %s (status: %s, total_variants: %d)",
		job.JobID, job.JobStatus, job.TotalVariants)

	return job, nil
}

// CreateJob - Job 레코드 생성
func (c *Client) CreateJob(ctx context.Context, job *model.TryonJob) error {
	log.Printf("💾 Creating job record: %s (session: %s)", job.JobID, job.SessionID)

	insertData := map[string]interface{}{
		"job_id":         job.JobID,
		"session_id":     job.SessionID,
		"job_type":       job.JobType,
		"job_status":     model.StatusPending,
		"total_variants": job.TotalVariants,
		"job_input_data": job.JobInputData,
	}

	_, _, err := c.supabase.From("fitroom_tryon_jobs").
		Insert(insertData, false, "", "", "").
		Execute()

	if err != nil {
		return fmt.Errorf("failed to insert job record: %w", err)
	}

	log.Printf("✅ Job record created: %s", job.JobID)
	return nil
}

// UpdateJobStatus - Job 상태 업데이트
func (c *Client) UpdateJobStatus(ctx context.Context, jobID string, status string) error {
	log.Printf("📝 Updating job %s status to: %s", jobID, status)

	updateData := map[string]interface{}{
		"job_status": status,
		"updated_at": "now()",
	}

	if status == model.StatusProcessing {
		updateData["started_at"] = "now()"
	} else if status == model.StatusCompleted || status == model.StatusFailed {
		updateData["completed_at"] = "now()"
	}

	_, _, err := c.supabase.From("fitroom_tryon_jobs").
		Update(updateData, "", "").
		Eq("job_id", jobID).
		Execute()

	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	log.Printf("✅ Job %s status updated to: %s", jobID, status)
	return nil
}

// UpdateJobProgress - Job 진행 상황 업데이트
func (c *Client) UpdateJobProgress(ctx context.Context, jobID string, completedVariants int, generatedAttachIds []int) error {
	log.Printf("📊 Updating job progress: %d variants completed", completedVariants)

	// 중복 제거: 같은 attach_id가 여러 번 포함되지 않도록
	uniqueIds := make([]int, 0, len(generatedAttachIds))
	seen := make(map[int]bool)
	for _, id := range generatedAttachIds {
		if !seen[id] {
			seen[id] = true
			uniqueIds = append(uniqueIds, id)
		}
	}

	updateData := map[string]interface{}{
		"completed_variants":   completedVariants,
		"generated_attach_ids": uniqueIds,
		"updated_at":           "now()",
	}

	_, _, err := c.supabase.From("fitroom_tryon_jobs").
		Update(updateData, "", "").
		Eq("job_id", jobID).
		Execute()

	if err != nil {
		return fmt.Errorf("failed to update job progress: %w", err)
	}

	return nil
}

// UpdateJobCompleted - Job 완료 처리 (검증 결과 포함)
func (c *Client) UpdateJobCompleted(ctx context.Context, jobID string, attachIds []int, validationPassed, retryUsed bool, failedVariants int) error {
	updateData := map[string]interface{}{
		"job_status":           model.StatusCompleted,
		"generated_attach_ids": attachIds,
		"completed_variants":   len(attachIds),
		"failed_variants":      failedVariants,
		"validation_passed":    validationPassed,
		"retry_used":           retryUsed,
		"completed_at":         "now()",
		"updated_at":           "now()",
	}

	_, _, err := c.supabase.From("fitroom_tryon_jobs").
		Update(updateData, "", "").
		Eq("job_id", jobID).
		Execute()

	if err != nil {
		return fmt.Errorf("failed to update job completed: %w", err)
	}

	log.Printf("✅ Job %s marked completed (%d variants, validation passed: %v)", jobID, len(attachIds), validationPassed)
	return nil
}

// UpdateJobFailed - Job 실패 처리
// 사용자에게는 포괄적인 메시지만 저장하고 상세 내용은 로그로만 남긴다
func (c *Client) UpdateJobFailed(ctx context.Context, jobID string, errorMsg string) error {
	log.Printf("❌ Marking job %s failed: %s", jobID, errorMsg)

	updateData := map[string]interface{}{
		"job_status":    model.StatusFailed,
		"error_message": errorMsg,
		"completed_at":  "now()",
		"updated_at":    "now()",
	}

	_, _, err := c.supabase.From("fitroom_tryon_jobs").
		Update(updateData, "", "").
		Eq("job_id", jobID).
		Execute()

	if err != nil {
		return fmt.Errorf("failed to update job failed: %w", err)
	}

	return nil
}

// FetchAttachInfo - fitroom_attach 테이블에서 파일 정보 조회
func (c *Client) FetchAttachInfo(attachID int) (*model.Attach, error) {
	log.Printf("🔍 Fetching attach info: %d", attachID)

	var attaches []model.Attach

	data, _, err := c.supabase.From("fitroom_attach").
		Select("*", "exact", false).
		Eq("attach_id", fmt.Sprintf("%d", attachID)).
		Execute()

	if err != nil {
		return nil, fmt.Errorf("failed to query fitroom_attach: %w", err)
	}

	if err := json.Unmarshal(data, &attaches); err != nil {
		return nil, fmt.Errorf("failed to parse attach response: %w", err)
	}

	if len(attaches) == 0 {
		return nil, fmt.Errorf("attach not found: %d", attachID)
	}

	return &attaches[0], nil
}

// CreateAttachRecord - fitroom_attach 테이블에 레코드 생성
func (c *Client) CreateAttachRecord(ctx context.Context, filePath string, fileSize int64) (int, error) {
	log.Printf("💾 Creating attach record for: %s", filePath)

	// 파일명 추출
	fileName := filePath
	for i := len(filePath) - 1; i >= 0; i-- {
		if filePath[i] == '/' {
			fileName = filePath[i+1:]
			break
		}
	}

	insertData := map[string]interface{}{
		"attach_original_name": fileName,
		"attach_file_name":     fileName,
		"attach_file_path":     filePath,
		"attach_file_size":     fileSize,
		"attach_file_type":     "image/webp",
		"attach_directory":     filePath,
		"attach_storage_type":  "supabase",
	}

	data, _, err := c.supabase.From("fitroom_attach").
		Insert(insertData, false, "", "", "").
		Execute()

	if err != nil {
		return 0, fmt.Errorf("failed to insert attach record: %w", err)
	}

	var attaches []model.Attach
	if err := json.Unmarshal(data, &attaches); err != nil {
		return 0, fmt.Errorf("failed to parse attach response: %w", err)
	}

	if len(attaches) == 0 {
		return 0, fmt.Errorf("no attach record returned")
	}

	attachID := int(attaches[0].AttachID)
	log.Printf("✅ Attach record created: ID=%d", attachID)

	return attachID, nil
}
