package tryon

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"fitroom-tryon-server/modules/bodyattrs"
	"fitroom-tryon-server/modules/common/config"
	"fitroom-tryon-server/modules/facelock"
	"fitroom-tryon-server/modules/garment"
)

// ProgressFunc - 단계 완료 알림 seam (websocket 브로드캐스트 연결용)
type ProgressFunc func(jobID string, record StageRecord)

// Pipeline - 전체 try-on 파이프라인
// 준비 단계는 얼굴 고정→체형 추정 체인과 의류 게이트가 병렬, 이후 생성/검증/게이트는 순차
type Pipeline struct {
	faces      *facelock.Manager
	gate       *garment.Gate
	body       *bodyattrs.Inferencer
	runner     *RetryRunner
	thresholds config.Thresholds
	notify     ProgressFunc
}

func NewPipeline(faces *facelock.Manager, gate *garment.Gate, body *bodyattrs.Inferencer, runner *RetryRunner, thresholds config.Thresholds, notify ProgressFunc) *Pipeline {
	return &Pipeline{
		faces:      faces,
		gate:       gate,
		body:       body,
		runner:     runner,
		thresholds: thresholds,
		notify:     notify,
	}
}

// Run - 파이프라인 실행. 에러 반환은 전체 중단(게이트 실패, 얼굴 고정 실패,
// 전 변형 생성 실패, 최종 게이트 abort)을 의미한다
func (p *Pipeline) Run(ctx context.Context, jobID, sessionID string, subject, garmentImage []byte, aspectRatio string, isCancelled CancelChecker) (*PipelineResult, error) {
	start := time.Now()
	result := &PipelineResult{}

	// 준비 단계가 병렬이라 기록은 mutex로 보호
	var stageMu sync.Mutex
	record := func(stage int, name string, status StageStatus, stageStart time.Time) {
		rec := StageRecord{Stage: stage, Name: name, Status: status, TimeMs: time.Since(stageStart).Milliseconds()}
		stageMu.Lock()
		result.Stages = append(result.Stages, rec)
		stageMu.Unlock()
		if p.notify != nil {
			p.notify(jobID, rec)
		}
	}

	log.Printf("🚀 [Pipeline] Starting try-on pipeline: job=%s session=%s", jobID, sessionID)

	// Stage 1~3: 얼굴 고정 → 체형 추정 체인과 의류 게이트를 병렬 수행
	// 체형 추정은 고정된 얼굴 영역 crop만 입력받는다 (전신/의류 누출 방지)
	prepStart := time.Now()
	var (
		zone          *facelock.FaceLockZone
		garmentResult *garment.Result
		bodyAttrs     *bodyattrs.BodyAttributes
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		z, err := p.faces.FreezeForSession(sessionID, subject)
		if err != nil {
			record(1, "face_freeze", StageFailed, prepStart)
			return fmt.Errorf("face freeze failed: %w", err)
		}
		zone = z
		record(1, "face_freeze", StageOK, prepStart)

		// 체형 추정은 절대 에러를 내지 않는다
		bodyAttrs = p.body.Infer(gctx, zone.ContextBytes)
		record(3, "body_inference", StageOK, prepStart)
		return nil
	})

	g.Go(func() error {
		gr, err := p.gate.Process(gctx, garmentImage)
		if err != nil {
			record(2, "garment_gate", StageFailed, prepStart)
			return fmt.Errorf("garment gate failed: %w", err)
		}
		garmentResult = gr
		record(2, "garment_gate", StageOK, prepStart)
		return nil
	})

	if err := g.Wait(); err != nil {
		result.ElapsedMs = time.Since(start).Milliseconds()
		return result, err
	}

	result.Zone = zone
	result.Garment = garmentResult
	result.Body = bodyAttrs

	// 준비 단계 중 취소된 Job은 생성을 시작하지 않는다
	if isCancelled != nil && isCancelled(jobID) {
		log.Printf("⚠️ [Pipeline] Job %s cancelled during preparation, skipping generation", jobID)
		skipStart := time.Now()
		record(4, "variant_generation", StageSkipped, skipStart)
		record(5, "confidence_gate", StageSkipped, skipStart)
		result.ElapsedMs = time.Since(start).Milliseconds()
		return result, fmt.Errorf("job cancelled before generation")
	}

	// Stage 4: 변형 생성 + 검증 + 재시도 사이클
	genStart := time.Now()
	run := p.runner.Run(ctx, jobID, DefaultVariants, zone.FrozenBytes, subject, garmentResult.ExtractedImage, zone, bodyAttrs, aspectRatio, isCancelled)
	result.Batch = run.Batch
	result.Report = run.Report
	result.RetryUsed = run.RetryUsed

	if !run.Batch.Success() {
		record(4, "variant_generation", StageFailed, genStart)
		result.ElapsedMs = time.Since(start).Milliseconds()
		return result, fmt.Errorf("all variant generations failed")
	}
	record(4, "variant_generation", StageOK, genStart)

	// Stage 5: 최종 신뢰도 게이트
	gateStart := time.Now()
	decision := DecideGate(zone, garmentResult, p.thresholds)
	result.Decision = decision
	if !decision.Proceed {
		record(5, "confidence_gate", StageFailed, gateStart)
		result.ElapsedMs = time.Since(start).Milliseconds()
		return result, fmt.Errorf("confidence gate aborted: %s", decision.Reason)
	}
	record(5, "confidence_gate", StageOK, gateStart)

	result.ElapsedMs = time.Since(start).Milliseconds()
	log.Printf("🏁 [Pipeline] Completed: job=%s, %d/%d variants, retry=%v, passed=%v (%dms)",
		jobID, run.Batch.Succeeded, run.Batch.Requested, run.RetryUsed, run.Report != nil && run.Report.Passed, result.ElapsedMs)
	return result, nil
}
