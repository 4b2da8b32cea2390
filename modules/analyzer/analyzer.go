package analyzer

import "context"

// PersonDetection - 의류 사진에 사람이 있는지 판정 결과
type PersonDetection struct {
	PersonDetected bool    `json:"person_detected"`
	Confidence     float64 `json:"confidence"` // 0~1
}

// ExtractionQuality - 의류 추출 품질 평가 (0~100)
type ExtractionQuality struct {
	Score  float64  `json:"score"`
	Issues []string `json:"issues"`
}

// BodyReading - 얼굴 사진에서 추론한 체형 정보 (raw)
// 필드 정규화는 bodyattrs 쪽에서 수행
type BodyReading struct {
	ShoulderWidth  string  `json:"shoulder_width"`
	ArmThickness   string  `json:"arm_thickness"`
	TorsoShape     string  `json:"torso_shape"`
	Build          string  `json:"build"`
	WeightCategory string  `json:"weight_category"`
	Summary        string  `json:"summary"`
	Confidence     float64 `json:"confidence"` // 0~100
}

// IdentityScore - 두 이미지가 같은 사람인지 판정 (0~100)
type IdentityScore struct {
	Similarity float64 `json:"similarity"`
	Reason     string  `json:"reason"`
}

// PoseReading - 포즈 대칭도 (0~100, 높을수록 부자연스럽게 대칭)
type PoseReading struct {
	SymmetryScore float64 `json:"symmetry_score"`
}

// LightingReading - 조명 방향성 평가
type LightingReading struct {
	FalloffPercent float64 `json:"falloff_percent"`
	ShadowsPresent bool    `json:"shadows_present"`
	Direction      string  `json:"direction"`
}

// GarmentClassification - 의류 구조 분류
type GarmentClassification struct {
	Category   string  `json:"category"` // top / bottom / dress / outer 등
	Hemline    string  `json:"hemline"`
	Sleeve     string  `json:"sleeve"`
	Confidence float64 `json:"confidence"` // 0~1
}

// VariantDifference - 두 variant 간 장면 차이 (0~100)
type VariantDifference struct {
	DifferenceScore float64 `json:"difference_score"`
}

// ImageAnalyzer - 모든 비전 판정 호출이 지나가는 단일 seam
// 프로덕션은 Gemini 구현, 테스트는 결정적인 fake를 주입한다
type ImageAnalyzer interface {
	DetectPerson(ctx context.Context, image []byte) (*PersonDetection, error)
	AssessExtractionQuality(ctx context.Context, image []byte) (*ExtractionQuality, error)
	InferBodyAttributes(ctx context.Context, faceImage []byte) (*BodyReading, error)
	ScoreIdentity(ctx context.Context, reference, candidate []byte) (*IdentityScore, error)
	AnalyzePose(ctx context.Context, image []byte) (*PoseReading, error)
	AnalyzeLighting(ctx context.Context, image []byte) (*LightingReading, error)
	ClassifyGarment(ctx context.Context, image []byte) (*GarmentClassification, error)
	CompareVariants(ctx context.Context, a, b []byte) (*VariantDifference, error)
}
