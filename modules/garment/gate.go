package garment

import (
	"context"
	"fmt"
	"log"
	"time"

	"fitroom-tryon-server/modules/analyzer"
)

// GateState - 추출 게이트 상태
// NotChecked → NoPersonDetected(통과) 또는 PersonDetected → Extracted →
// QualityPassed(통과) / QualityFailed(hard error)
type GateState string

const (
	StateNotChecked       GateState = "not_checked"
	StateNoPersonDetected GateState = "no_person_detected"
	StatePersonDetected   GateState = "person_detected"
	StateExtracted        GateState = "extracted"
	StateQualityPassed    GateState = "quality_passed"
	StateQualityFailed    GateState = "quality_failed"
)

// Result - 의류 추출 게이트 결과
// PersonDetected가 false면 ExtractedImage는 입력과 동일하고 QualityScored는 false
type Result struct {
	PersonDetected      bool
	DetectionConfidence float64
	ExtractedImage      []byte
	QualityScore        float64 // 0~1
	QualityScored       bool
	State               GateState
	ElapsedMs           int64
}

// InsufficientQualityError - 추출 품질 미달 (전체 생성 요청 중단)
type InsufficientQualityError struct {
	Score   float64
	Minimum float64
}

func (e *InsufficientQualityError) Error() string {
	return fmt.Sprintf("garment extraction quality %.2f below minimum %.2f", e.Score, e.Minimum)
}

// Extractor - 외부 의류 추출 서비스 seam
type Extractor interface {
	Extract(ctx context.Context, image []byte, mode string) ([]byte, error)
}

// permissiveQualityScore - 품질 판정 호출 실패 시 대입하는 관대한 기본값
// 품질 체크는 2차 안전장치라 fail-open, 1차 게이트(추출 자체)는 fail-closed
const permissiveQualityScore = 0.95

// Gate - 의류 추출 필수 게이트
type Gate struct {
	analyzer   analyzer.ImageAnalyzer
	extractor  Extractor
	minQuality float64 // 0~1
}

// NewGate - 게이트 생성
func NewGate(a analyzer.ImageAnalyzer, e Extractor, minQuality float64) *Gate {
	return &Gate{analyzer: a, extractor: e, minQuality: minQuality}
}

// Process - 의류 사진에 대해 게이트 수행
// 사람이 없으면 입력을 그대로 통과시키고, 있으면 반드시 추출 후 품질 검증한다
func (g *Gate) Process(ctx context.Context, garmentImage []byte) (*Result, error) {
	start := time.Now()

	result := &Result{
		ExtractedImage: garmentImage,
		State:          StateNotChecked,
	}

	// 1. 사람 포함 여부 판정
	// 판정 호출 실패는 fail-open(false): 추출은 되돌릴 수 없는 변환이므로
	// 사람이 확실할 때만 수행한다
	detection, err := g.analyzer.DetectPerson(ctx, garmentImage)
	if err != nil {
		log.Printf("⚠️ [GarmentGate] Person detection failed, assuming no person: %v", err)
		result.State = StateNoPersonDetected
		result.ElapsedMs = time.Since(start).Milliseconds()
		return result, nil
	}

	result.DetectionConfidence = detection.Confidence

	if !detection.PersonDetected {
		log.Printf("✅ [GarmentGate] No person detected (confidence %.2f), passing image through", detection.Confidence)
		result.State = StateNoPersonDetected
		result.ElapsedMs = time.Since(start).Milliseconds()
		return result, nil
	}

	result.PersonDetected = true
	result.State = StatePersonDetected
	log.Printf("👤 [GarmentGate] Person detected (confidence %.2f), extraction is mandatory", detection.Confidence)

	// 2. 의류 추출 - fail-open 없음
	// 사람이 포함된 원본이 그대로 하류로 가는 것이 이 게이트가 막는 결함이다
	extracted, err := g.extractor.Extract(ctx, garmentImage, "garment")
	if err != nil {
		return nil, fmt.Errorf("garment extraction failed: %w", err)
	}

	result.ExtractedImage = extracted
	result.State = StateExtracted

	// 3. 추출 품질 검증 (2차 체크라 판정 실패는 fail-open)
	quality, err := g.analyzer.AssessExtractionQuality(ctx, extracted)
	score := permissiveQualityScore
	if err != nil {
		log.Printf("⚠️ [GarmentGate] Quality assessment failed, using permissive default %.2f: %v", permissiveQualityScore, err)
	} else {
		score = quality.Score / 100
		if len(quality.Issues) > 0 {
			log.Printf("🔍 [GarmentGate] Extraction issues: %v", quality.Issues)
		}
	}

	result.QualityScore = score
	result.QualityScored = true
	result.ElapsedMs = time.Since(start).Milliseconds()

	// 4. 게이트 규칙: 기준 미달이면 전체 요청 중단
	if score < g.minQuality {
		result.State = StateQualityFailed
		log.Printf("❌ [GarmentGate] Quality %.2f below minimum %.2f - aborting request", score, g.minQuality)
		return result, &InsufficientQualityError{Score: score, Minimum: g.minQuality}
	}

	result.State = StateQualityPassed
	log.Printf("✅ [GarmentGate] Extraction quality passed: %.2f (%.0fms)", score, float64(result.ElapsedMs))
	return result, nil
}
