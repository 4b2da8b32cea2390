package tryon

import (
	"context"
	"log"

	"fitroom-tryon-server/modules/bodyattrs"
	"fitroom-tryon-server/modules/facelock"
)

// RetryRunner - 생성 → 검증 → 필요 시 정확히 1회 재생성
// 재시도는 비싸므로 횟수는 1회로 고정. 2차도 실패하면 그 결과를 그대로 반환하고
// validation_passed=false로 기록한다
type RetryRunner struct {
	orchestrator *Orchestrator
	validator    *Validator
}

func NewRetryRunner(o *Orchestrator, v *Validator) *RetryRunner {
	return &RetryRunner{orchestrator: o, validator: v}
}

// RunResult - 재시도 사이클 결과
type RunResult struct {
	Batch     *BatchResult
	Report    *ValidationReport
	RetryUsed bool
}

// Run - 생성/검증 사이클 실행
// subject는 생성 모델에 주는 이미지(얼굴 고정 처리본), referenceFace는 검증기의
// 신원 비교 기준(원본 피사체). 고정 처리본으로 신원을 비교하면 안 된다
func (r *RetryRunner) Run(ctx context.Context, jobID string, variants []VariantDescriptor,
	subject, referenceFace, garmentImage []byte, zone *facelock.FaceLockZone, body *bodyattrs.BodyAttributes,
	aspectRatio string, isCancelled CancelChecker) *RunResult {

	// 1차 시도
	batch := r.orchestrator.GenerateBatch(ctx, jobID, variants, subject, garmentImage, zone, body, aspectRatio, "", isCancelled)
	if !batch.Success() {
		return &RunResult{Batch: batch}
	}

	report := r.validator.Validate(ctx, batch.Variants, referenceFace, garmentImage)
	if !report.ShouldRetry() {
		return &RunResult{Batch: batch, Report: report}
	}

	if isCancelled != nil && isCancelled(jobID) {
		log.Printf("⚠️ [Tryon] Job %s cancelled before retry, keeping first attempt", jobID)
		return &RunResult{Batch: batch, Report: report}
	}

	// 정확히 1회 재시도: 실패별 교정 가이드를 프롬프트에 추가
	guidance := report.RetryGuidance()
	log.Printf("🔁 [Tryon] Validation failed for job %s, retrying once with guidance:\n%s", jobID, guidance)

	retryBatch := r.orchestrator.GenerateBatch(ctx, jobID, variants, subject, garmentImage, zone, body, aspectRatio, guidance, isCancelled)
	if !retryBatch.Success() {
		// 재생성이 전멸하면 1차 결과가 그나마 낫다
		log.Printf("⚠️ [Tryon] Retry generation produced no images, keeping first attempt")
		return &RunResult{Batch: batch, Report: report, RetryUsed: true}
	}

	retryReport := r.validator.Validate(ctx, retryBatch.Variants, referenceFace, garmentImage)
	if !retryReport.Passed {
		log.Printf("⚠️ [Tryon] Retry still failing validation for job %s, accepting with validation_passed=false", jobID)
	}
	return &RunResult{Batch: retryBatch, Report: retryReport, RetryUsed: true}
}
