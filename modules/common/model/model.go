package model

import "time"

// Job 상태 상수
const (
	StatusPending       = "pending"
	StatusProcessing    = "processing"
	StatusCompleted     = "completed"
	StatusFailed        = "failed"
	StatusUserCancelled = "user_cancelled"
)

// Job Type 상수
const (
	JobTypeTryonGenerate = "tryon_generate"
)

// TryonJob - fitroom_tryon_jobs 테이블 구조
type TryonJob struct {
	JobID              string                 `json:"job_id"`
	SessionID          string                 `json:"session_id"`
	JobType            string                 `json:"job_type"`
	JobStatus          string                 `json:"job_status"`
	TotalVariants      int                    `json:"total_variants"`
	CompletedVariants  int                    `json:"completed_variants"`
	FailedVariants     int                    `json:"failed_variants"`
	JobInputData       map[string]interface{} `json:"job_input_data"`
	GeneratedAttachIDs []interface{}          `json:"generated_attach_ids"`
	ValidationPassed   *bool                  `json:"validation_passed"`
	RetryUsed          bool                   `json:"retry_used"`
	ErrorMessage       *string                `json:"error_message"`
	CreatedAt          time.Time              `json:"created_at"`
	StartedAt          *time.Time             `json:"started_at"`
	CompletedAt        *time.Time             `json:"completed_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
}

// JobInputData - job_input_data JSONB 구조
type JobInputData struct {
	SessionID          string `json:"sessionId"`
	SubjectAttachID    int    `json:"subjectAttachId"`
	GarmentAttachID    int    `json:"garmentAttachId"`
	SubjectImageBase64 string `json:"subjectImageBase64"`
	GarmentImageBase64 string `json:"garmentImageBase64"`
	AspectRatio        string `json:"aspectRatio"`
}

// Attach - fitroom_attach 테이블 구조
type Attach struct {
	AttachID           int64     `json:"attach_id"`
	CreatedAt          time.Time `json:"created_at"`
	AttachOriginalName *string   `json:"attach_original_name"`
	AttachFileName     *string   `json:"attach_file_name"`
	AttachFilePath     *string   `json:"attach_file_path"`
	AttachFileSize     *int64    `json:"attach_file_size"`
	AttachFileType     *string   `json:"attach_file_type"`
	AttachDirectory    *string   `json:"attach_directory"`
	AttachStorageType  *string   `json:"attach_storage_type"`
}
