package tryon

import (
	"context"
	"fmt"
	"log"
	"time"

	"fitroom-tryon-server/modules/analyzer"
	"fitroom-tryon-server/modules/common/config"
)

// Validator - 생성 결과 다중 기준 검증기
// 모든 판정 호출 실패는 해당 체크 스킵(fail-open): 검증기는 품질 필터지
// 가용성 병목이 되어서는 안 된다
type Validator struct {
	analyzer   analyzer.ImageAnalyzer
	thresholds config.Thresholds
}

func NewValidator(a analyzer.ImageAnalyzer, thresholds config.Thresholds) *Validator {
	return &Validator{analyzer: a, thresholds: thresholds}
}

// Validate - 성공한 변형 전체를 검증한다
// referenceFace: 원본 피사체(신원 비교 기준), garmentRef: 게이트 통과한 의류
func (v *Validator) Validate(ctx context.Context, variants []GeneratedVariant, referenceFace, garmentRef []byte) *ValidationReport {
	start := time.Now()

	report := &ValidationReport{
		Scores: make(map[string]float64),
	}

	var garmentClass *analyzer.GarmentClassification
	if len(garmentRef) > 0 {
		gc, err := v.analyzer.ClassifyGarment(ctx, garmentRef)
		if err != nil {
			log.Printf("⚠️ [Validator] Reference garment classification failed, skipping garment checks: %v", err)
		} else {
			garmentClass = gc
		}
	}

	for _, variant := range variants {
		if !variant.Success {
			continue
		}
		v.validateVariant(ctx, report, variant, referenceFace, garmentClass)
	}

	v.validateCrossVariant(ctx, report, variants)

	// Critical 실패가 없으면 통과 (High/Medium은 기록만)
	report.Passed = true
	for _, f := range report.Failures {
		if f.Severity == SeverityCritical {
			report.Passed = false
			break
		}
	}

	report.ElapsedMs = time.Since(start).Milliseconds()
	log.Printf("🔍 [Validator] Validation done: passed=%v, failures=%d (%dms)",
		report.Passed, len(report.Failures), report.ElapsedMs)
	return report
}

// validateVariant - 변형 하나에 대한 신원/포즈/조명/의류 체크
func (v *Validator) validateVariant(ctx context.Context, report *ValidationReport, variant GeneratedVariant, referenceFace []byte, garmentClass *analyzer.GarmentClassification) {
	idx := variant.Descriptor.Index
	label := variant.Descriptor.Label

	// 1. 신원 일치 (Critical)
	identity, err := v.analyzer.ScoreIdentity(ctx, referenceFace, variant.Image)
	if err != nil {
		log.Printf("⚠️ [Validator] Identity check failed for %s, skipping: %v", label, err)
	} else {
		report.Scores[fmt.Sprintf("identity_%s", label)] = identity.Similarity
		if identity.Similarity < v.thresholds.IdentityMin {
			report.Failures = append(report.Failures, ValidationFailure{
				Kind:         FailureIdentityMismatch,
				Severity:     SeverityCritical,
				VariantIndex: idx,
				Detail:       fmt.Sprintf("identity similarity %.0f below %.0f: %s", identity.Similarity, v.thresholds.IdentityMin, identity.Reason),
				Guidance:     "preserve the subject's exact facial features, face shape and skin tone from the reference image",
			})
		}
	}

	// 2. 포즈 대칭성 (High) - 너무 대칭이면 어색한 마네킹 포즈
	pose, err := v.analyzer.AnalyzePose(ctx, variant.Image)
	if err != nil {
		log.Printf("⚠️ [Validator] Pose check failed for %s, skipping: %v", label, err)
	} else {
		report.Scores[fmt.Sprintf("symmetry_%s", label)] = pose.SymmetryScore
		if pose.SymmetryScore >= v.thresholds.SymmetryMax {
			report.Failures = append(report.Failures, ValidationFailure{
				Kind:         FailurePoseTooSymmetric,
				Severity:     SeverityHigh,
				VariantIndex: idx,
				Detail:       fmt.Sprintf("pose symmetry %.0f at or above %.0f", pose.SymmetryScore, v.thresholds.SymmetryMax),
				Guidance:     "use a clearly asymmetric natural pose with shifted weight and uneven arm positions",
			})
		}
	}

	// 3. 조명 평탄도 (Medium)
	lighting, err := v.analyzer.AnalyzeLighting(ctx, variant.Image)
	if err != nil {
		log.Printf("⚠️ [Validator] Lighting check failed for %s, skipping: %v", label, err)
	} else {
		report.Scores[fmt.Sprintf("falloff_%s", label)] = lighting.FalloffPercent
		if lighting.FalloffPercent <= v.thresholds.FalloffMin || !lighting.ShadowsPresent {
			report.Failures = append(report.Failures, ValidationFailure{
				Kind:         FailureLightingFlat,
				Severity:     SeverityMedium,
				VariantIndex: idx,
				Detail:       fmt.Sprintf("lighting falloff %.0f%%, shadows=%v", lighting.FalloffPercent, lighting.ShadowsPresent),
				Guidance:     "add clearly directional lighting with visible soft shadows and brightness falloff across the body",
			})
		}
	}

	// 4. 의류 일치 (Critical) - 기준 분류가 있을 때만
	if garmentClass != nil {
		candidate, err := v.analyzer.ClassifyGarment(ctx, variant.Image)
		if err != nil {
			log.Printf("⚠️ [Validator] Garment check failed for %s, skipping: %v", label, err)
		} else if mismatch := garmentMismatch(garmentClass, candidate); mismatch != "" {
			report.Failures = append(report.Failures, ValidationFailure{
				Kind:         FailureGarmentMismatch,
				Severity:     SeverityCritical,
				VariantIndex: idx,
				Detail:       mismatch,
				Guidance:     "reproduce the reference garment exactly: same category, hemline, color and pattern",
			})
		}
	}
}

// validateCrossVariant - 변형끼리 쌍으로 비교. 너무 비슷하면 변형의 의미가 없다
func (v *Validator) validateCrossVariant(ctx context.Context, report *ValidationReport, variants []GeneratedVariant) {
	succeeded := make([]GeneratedVariant, 0, len(variants))
	for _, variant := range variants {
		if variant.Success {
			succeeded = append(succeeded, variant)
		}
	}

	for i := 0; i < len(succeeded); i++ {
		for j := i + 1; j < len(succeeded); j++ {
			diff, err := v.analyzer.CompareVariants(ctx, succeeded[i].Image, succeeded[j].Image)
			if err != nil {
				log.Printf("⚠️ [Validator] Variant comparison %s/%s failed, skipping: %v",
					succeeded[i].Descriptor.Label, succeeded[j].Descriptor.Label, err)
				continue
			}
			pairKey := fmt.Sprintf("diff_%s_%s", succeeded[i].Descriptor.Label, succeeded[j].Descriptor.Label)
			report.Scores[pairKey] = diff.DifferenceScore
			if diff.DifferenceScore < v.thresholds.VariantDiffMin {
				report.Failures = append(report.Failures, ValidationFailure{
					Kind:         FailureVariantsTooSimilar,
					Severity:     SeverityHigh,
					VariantIndex: -1,
					Detail: fmt.Sprintf("variants %s and %s differ by only %.0f (minimum %.0f)",
						succeeded[i].Descriptor.Label, succeeded[j].Descriptor.Label, diff.DifferenceScore, v.thresholds.VariantDiffMin),
					Guidance: "make each variant visibly distinct in lighting color temperature and pose",
				})
			}
		}
	}
}

// garmentMismatch - 카테고리는 항상 비교, 밑단은 양쪽 다 값이 있을 때만
func garmentMismatch(reference, candidate *analyzer.GarmentClassification) string {
	if reference.Category != "" && candidate.Category != "" && reference.Category != candidate.Category {
		return fmt.Sprintf("garment category changed: expected %s, got %s", reference.Category, candidate.Category)
	}
	if reference.Hemline != "" && candidate.Hemline != "" && reference.Hemline != candidate.Hemline {
		return fmt.Sprintf("garment hemline changed: expected %s, got %s", reference.Hemline, candidate.Hemline)
	}
	return ""
}
