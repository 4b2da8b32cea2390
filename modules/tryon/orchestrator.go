package tryon

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"fitroom-tryon-server/modules/bodyattrs"
	"fitroom-tryon-server/modules/facelock"
)

// ImageGenerator - 변형 이미지 생성 seam (실서비스는 Gemini, 테스트는 fake)
type ImageGenerator interface {
	GenerateVariant(ctx context.Context, subject, garment []byte, prompt, aspectRatio string) ([]byte, error)
}

// CancelChecker - 작업 취소 플래그 조회 seam
type CancelChecker func(jobID string) bool

// Orchestrator - 변형 일괄 생성 오케스트레이터
type Orchestrator struct {
	generator     ImageGenerator
	maxConcurrent int
}

func NewOrchestrator(generator ImageGenerator) *Orchestrator {
	return &Orchestrator{generator: generator, maxConcurrent: 2}
}

// GenerateBatch - 변형들을 병렬 생성한다. 개별 실패는 기록만 하고 계속 진행,
// 전부 실패했을 때만 배치 실패다
func (o *Orchestrator) GenerateBatch(ctx context.Context, jobID string, variants []VariantDescriptor,
	subject, garmentImage []byte, zone *facelock.FaceLockZone, body *bodyattrs.BodyAttributes,
	aspectRatio, retryGuidance string, isCancelled CancelChecker) *BatchResult {

	start := time.Now()
	log.Printf("🎨 [Tryon] Generating %d variants for job %s", len(variants), jobID)

	batch := &BatchResult{
		Requested: len(variants),
		Variants:  make([]GeneratedVariant, len(variants)),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup

	// 동시 처리 수 제한 (최대 2개)
	semaphore := make(chan struct{}, o.maxConcurrent)

	for i, variant := range variants {
		wg.Add(1)
		go func(idx int, v VariantDescriptor) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			// Job 취소 확인
			if isCancelled != nil && isCancelled(jobID) {
				log.Printf("⚠️ [Tryon] Job %s cancelled, skipping variant %s", jobID, v.Label)
				mu.Lock()
				batch.Variants[idx] = GeneratedVariant{Descriptor: v}
				batch.Errors = append(batch.Errors, VariantError{Index: v.Index, Label: v.Label, Message: "cancelled by user"})
				mu.Unlock()
				return
			}

			variantStart := time.Now()
			prompt := BuildVariantPrompt(v, zone, body, retryGuidance)

			imageData, err := o.generator.GenerateVariant(ctx, subject, garmentImage, prompt, aspectRatio)
			elapsed := time.Since(variantStart).Milliseconds()

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				log.Printf("❌ [Tryon] Variant %s failed: %v", v.Label, err)
				batch.Variants[idx] = GeneratedVariant{Descriptor: v, ElapsedMs: elapsed}
				batch.Errors = append(batch.Errors, VariantError{
					Index:   v.Index,
					Label:   v.Label,
					Message: fmt.Sprintf("generation failed: %v", err),
				})
				return
			}

			log.Printf("✅ [Tryon] Variant %s generated: %d bytes (%dms)", v.Label, len(imageData), elapsed)
			batch.Variants[idx] = GeneratedVariant{
				Descriptor: v,
				Image:      imageData,
				Success:    true,
				ElapsedMs:  elapsed,
			}
			batch.Succeeded++
		}(i, variant)
	}

	wg.Wait()

	batch.ElapsedMs = time.Since(start).Milliseconds()
	log.Printf("🏁 [Tryon] Batch done: %d/%d succeeded (%dms)", batch.Succeeded, batch.Requested, batch.ElapsedMs)
	return batch
}
