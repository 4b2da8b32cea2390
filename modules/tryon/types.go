package tryon

import (
	"fitroom-tryon-server/modules/bodyattrs"
	"fitroom-tryon-server/modules/facelock"
	"fitroom-tryon-server/modules/garment"
)

// VariantDescriptor - 생성할 변형 하나의 조명/포즈 지시
type VariantDescriptor struct {
	Index        int    `json:"index"`
	Label        string `json:"label"`
	LightingNote string `json:"lighting_note"`
	PoseNote     string `json:"pose_note"`
}

// DefaultVariants - 기본 3종 변형 (warm / neutral / cool)
var DefaultVariants = []VariantDescriptor{
	{
		Index:        0,
		Label:        "warm",
		LightingNote: "warm directional key light from the upper left, soft golden falloff across the torso",
		PoseNote:     "relaxed three-quarter stance, weight shifted onto the left leg, right shoulder slightly dropped",
	},
	{
		Index:        1,
		Label:        "neutral",
		LightingNote: "neutral softbox lighting from the front right with gentle shadow under the jaw",
		PoseNote:     "natural standing pose turned slightly right, one hand resting near the hip",
	},
	{
		Index:        2,
		Label:        "cool",
		LightingNote: "cool daylight from a window on the right, visible gradient from lit to shaded side",
		PoseNote:     "casual contrapposto with hips angled, arms asymmetric, one slightly bent",
	},
}

// GeneratedVariant - 변형 생성 결과 하나
type GeneratedVariant struct {
	Descriptor VariantDescriptor `json:"descriptor"`
	Image      []byte            `json:"-"`
	Success    bool              `json:"success"`
	ElapsedMs  int64             `json:"elapsed_ms"`
}

// VariantError - 실패한 변형의 에러 정보
type VariantError struct {
	Index   int    `json:"index"`
	Label   string `json:"label"`
	Message string `json:"message"`
}

// BatchResult - 변형 일괄 생성 결과. 1장 이상 성공이면 부분 성공으로 진행한다
type BatchResult struct {
	Variants  []GeneratedVariant `json:"variants"`
	Errors    []VariantError     `json:"errors"`
	Requested int                `json:"requested"`
	Succeeded int                `json:"succeeded"`
	ElapsedMs int64              `json:"elapsed_ms"`
}

// Success - 성공한 변형이 하나라도 있으면 true
func (b *BatchResult) Success() bool {
	return b.Succeeded > 0
}

// Images - 성공한 변형 이미지만 순서대로
func (b *BatchResult) Images() [][]byte {
	images := make([][]byte, 0, b.Succeeded)
	for _, v := range b.Variants {
		if v.Success {
			images = append(images, v.Image)
		}
	}
	return images
}

// FailureKind - 검증 실패 종류
type FailureKind string

const (
	FailureIdentityMismatch   FailureKind = "identity_mismatch"
	FailurePoseTooSymmetric   FailureKind = "pose_too_symmetric"
	FailureLightingFlat       FailureKind = "lighting_flat"
	FailureGarmentMismatch    FailureKind = "garment_mismatch"
	FailureVariantsTooSimilar FailureKind = "variants_too_similar"
)

// Severity - 실패 심각도. Critical만 재시도를 유발한다
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
)

// ValidationFailure - 검증 실패 하나
type ValidationFailure struct {
	Kind         FailureKind `json:"kind"`
	Severity     Severity    `json:"severity"`
	VariantIndex int         `json:"variant_index"` // 교차 검증 실패는 -1
	Detail       string      `json:"detail"`
	Guidance     string      `json:"guidance"`
}

// ValidationReport - 변형 전체에 대한 검증 리포트
type ValidationReport struct {
	Passed    bool                `json:"passed"`
	Failures  []ValidationFailure `json:"failures"`
	Scores    map[string]float64  `json:"scores"`
	ElapsedMs int64               `json:"elapsed_ms"`
}

// ShouldRetry - Critical 실패가 있을 때만 재시도
func (r *ValidationReport) ShouldRetry() bool {
	return !r.Passed
}

// RetryGuidance - 실패별 교정 가이드를 프롬프트에 넣을 형태로 합친다
func (r *ValidationReport) RetryGuidance() string {
	guidance := ""
	for _, f := range r.Failures {
		if f.Guidance == "" {
			continue
		}
		if guidance != "" {
			guidance += "\n"
		}
		guidance += "- " + f.Guidance
	}
	return guidance
}

// GateAction - 최종 게이트 결정
type GateAction string

const (
	ActionReplace GateAction = "replace"
	ActionBlend   GateAction = "blend"
	ActionAbort   GateAction = "abort"
)

// GateDecision - 얼굴/의류 신뢰도 기반 후처리 결정
type GateDecision struct {
	Proceed        bool       `json:"proceed"`
	FaceAction     GateAction `json:"face_action"`
	GarmentAction  GateAction `json:"garment_action"`
	FaceConfidence float64    `json:"face_confidence"`
	GarmentScore   float64    `json:"garment_score"`
	Reason         string     `json:"reason"`
}

// StageStatus - 파이프라인 단계 상태
type StageStatus string

const (
	StageOK      StageStatus = "ok"
	StageSkipped StageStatus = "skipped"
	StageFailed  StageStatus = "failed"
)

// StageRecord - 파이프라인 단계 기록 (진행률 알림과 디버깅용)
type StageRecord struct {
	Stage  int         `json:"stage"`
	Name   string      `json:"name"`
	Status StageStatus `json:"status"`
	TimeMs int64       `json:"timeMs"`
}

// PipelineResult - 전체 파이프라인 결과
type PipelineResult struct {
	Zone      *facelock.FaceLockZone    `json:"-"`
	Garment   *garment.Result           `json:"-"`
	Body      *bodyattrs.BodyAttributes `json:"body"`
	Batch     *BatchResult              `json:"batch"`
	Report    *ValidationReport         `json:"report"`
	Decision  *GateDecision             `json:"decision"`
	RetryUsed bool                      `json:"retry_used"`
	Stages    []StageRecord             `json:"stages"`
	ElapsedMs int64                     `json:"elapsed_ms"`
}
