package tryon

import (
	"context"
	"errors"
	"testing"

	"fitroom-tryon-server/modules/analyzer"
	"fitroom-tryon-server/modules/common/config"
)

// stubAnalyzer - 검증 체크별 응답을 주입하는 ImageAnalyzer
// nil인 함수는 "전부 통과" 기본값으로 동작한다
type stubAnalyzer struct {
	identity func(candidate []byte) (*analyzer.IdentityScore, error)
	pose     func(image []byte) (*analyzer.PoseReading, error)
	lighting func(image []byte) (*analyzer.LightingReading, error)
	classify func(image []byte) (*analyzer.GarmentClassification, error)
	compare  func(a, b []byte) (*analyzer.VariantDifference, error)
	detect   func(image []byte) (*analyzer.PersonDetection, error)
	quality  func(image []byte) (*analyzer.ExtractionQuality, error)
}

func (s *stubAnalyzer) ScoreIdentity(ctx context.Context, reference, candidate []byte) (*analyzer.IdentityScore, error) {
	if s.identity != nil {
		return s.identity(candidate)
	}
	return &analyzer.IdentityScore{Similarity: 95}, nil
}

func (s *stubAnalyzer) AnalyzePose(ctx context.Context, image []byte) (*analyzer.PoseReading, error) {
	if s.pose != nil {
		return s.pose(image)
	}
	return &analyzer.PoseReading{SymmetryScore: 20}, nil
}

func (s *stubAnalyzer) AnalyzeLighting(ctx context.Context, image []byte) (*analyzer.LightingReading, error) {
	if s.lighting != nil {
		return s.lighting(image)
	}
	return &analyzer.LightingReading{FalloffPercent: 25, ShadowsPresent: true, Direction: "left"}, nil
}

func (s *stubAnalyzer) ClassifyGarment(ctx context.Context, image []byte) (*analyzer.GarmentClassification, error) {
	if s.classify != nil {
		return s.classify(image)
	}
	return &analyzer.GarmentClassification{Category: "top", Hemline: "cropped", Confidence: 0.9}, nil
}

func (s *stubAnalyzer) CompareVariants(ctx context.Context, a, b []byte) (*analyzer.VariantDifference, error) {
	if s.compare != nil {
		return s.compare(a, b)
	}
	return &analyzer.VariantDifference{DifferenceScore: 60}, nil
}

func (s *stubAnalyzer) DetectPerson(ctx context.Context, image []byte) (*analyzer.PersonDetection, error) {
	if s.detect != nil {
		return s.detect(image)
	}
	return &analyzer.PersonDetection{PersonDetected: false, Confidence: 0.9}, nil
}

func (s *stubAnalyzer) AssessExtractionQuality(ctx context.Context, image []byte) (*analyzer.ExtractionQuality, error) {
	if s.quality != nil {
		return s.quality(image)
	}
	return &analyzer.ExtractionQuality{Score: 95}, nil
}

func (s *stubAnalyzer) InferBodyAttributes(ctx context.Context, faceImage []byte) (*analyzer.BodyReading, error) {
	return nil, errors.New("not used")
}

func testVariants(images ...[]byte) []GeneratedVariant {
	variants := make([]GeneratedVariant, len(images))
	for i, img := range images {
		variants[i] = GeneratedVariant{
			Descriptor: DefaultVariants[i%len(DefaultVariants)],
			Image:      img,
			Success:    true,
		}
	}
	return variants
}

func findFailure(report *ValidationReport, kind FailureKind) *ValidationFailure {
	for i := range report.Failures {
		if report.Failures[i].Kind == kind {
			return &report.Failures[i]
		}
	}
	return nil
}

func TestValidatePassesCleanVariants(t *testing.T) {
	v := NewValidator(&stubAnalyzer{}, config.DefaultThresholds())

	report := v.Validate(context.Background(), testVariants([]byte("warm"), []byte("neutral")), []byte("ref"), []byte("garment"))
	if !report.Passed {
		t.Fatalf("expected pass, got failures: %+v", report.Failures)
	}
	if report.ShouldRetry() {
		t.Error("clean report must not request a retry")
	}
	if len(report.Scores) == 0 {
		t.Error("expected per-check scores to be recorded")
	}
}

func TestValidateFlagsIdentityMismatchAsCritical(t *testing.T) {
	v := NewValidator(&stubAnalyzer{
		identity: func(candidate []byte) (*analyzer.IdentityScore, error) {
			return &analyzer.IdentityScore{Similarity: 70, Reason: "face shape changed"}, nil
		},
	}, config.DefaultThresholds())

	report := v.Validate(context.Background(), testVariants([]byte("warm")), []byte("ref"), []byte("garment"))
	if report.Passed {
		t.Fatal("identity mismatch must fail validation")
	}
	failure := findFailure(report, FailureIdentityMismatch)
	if failure == nil {
		t.Fatal("expected identity_mismatch failure")
	}
	if failure.Severity != SeverityCritical {
		t.Errorf("identity mismatch must be critical, got %s", failure.Severity)
	}
	if !report.ShouldRetry() {
		t.Error("critical failure must request a retry")
	}
}

func TestValidateFlagsSymmetricPoseAsHigh(t *testing.T) {
	v := NewValidator(&stubAnalyzer{
		pose: func(image []byte) (*analyzer.PoseReading, error) {
			return &analyzer.PoseReading{SymmetryScore: 55}, nil
		},
	}, config.DefaultThresholds())

	report := v.Validate(context.Background(), testVariants([]byte("warm")), []byte("ref"), []byte("garment"))
	failure := findFailure(report, FailurePoseTooSymmetric)
	if failure == nil {
		t.Fatal("expected pose_too_symmetric failure")
	}
	if failure.Severity != SeverityHigh {
		t.Errorf("symmetric pose must be high severity, got %s", failure.Severity)
	}
	// High는 기록만 하고 통과시킨다
	if !report.Passed {
		t.Error("high severity alone must not fail validation")
	}
}

func TestValidateFlagsFlatLightingAsMedium(t *testing.T) {
	for _, tc := range []struct {
		name    string
		reading analyzer.LightingReading
	}{
		{"low falloff", analyzer.LightingReading{FalloffPercent: 3, ShadowsPresent: true}},
		{"no shadows", analyzer.LightingReading{FalloffPercent: 20, ShadowsPresent: false}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			reading := tc.reading
			v := NewValidator(&stubAnalyzer{
				lighting: func(image []byte) (*analyzer.LightingReading, error) {
					return &reading, nil
				},
			}, config.DefaultThresholds())

			report := v.Validate(context.Background(), testVariants([]byte("warm")), []byte("ref"), []byte("garment"))
			failure := findFailure(report, FailureLightingFlat)
			if failure == nil {
				t.Fatal("expected lighting_flat failure")
			}
			if failure.Severity != SeverityMedium {
				t.Errorf("flat lighting must be medium severity, got %s", failure.Severity)
			}
			if !report.Passed {
				t.Error("medium severity alone must not fail validation")
			}
		})
	}
}

func TestValidateFlagsGarmentCategoryChangeAsCritical(t *testing.T) {
	v := NewValidator(&stubAnalyzer{
		classify: func(image []byte) (*analyzer.GarmentClassification, error) {
			if string(image) == "garment" {
				return &analyzer.GarmentClassification{Category: "top", Hemline: "cropped"}, nil
			}
			return &analyzer.GarmentClassification{Category: "dress", Hemline: "cropped"}, nil
		},
	}, config.DefaultThresholds())

	report := v.Validate(context.Background(), testVariants([]byte("warm")), []byte("ref"), []byte("garment"))
	failure := findFailure(report, FailureGarmentMismatch)
	if failure == nil {
		t.Fatal("expected garment_mismatch failure")
	}
	if failure.Severity != SeverityCritical {
		t.Errorf("garment mismatch must be critical, got %s", failure.Severity)
	}
	if report.Passed {
		t.Error("garment mismatch must fail validation")
	}
}

func TestValidateSkipsHemlineWhenEitherSideMissing(t *testing.T) {
	v := NewValidator(&stubAnalyzer{
		classify: func(image []byte) (*analyzer.GarmentClassification, error) {
			if string(image) == "garment" {
				return &analyzer.GarmentClassification{Category: "top", Hemline: "cropped"}, nil
			}
			// 후보 쪽 밑단이 판정 불가면 밑단 비교는 건너뛴다
			return &analyzer.GarmentClassification{Category: "top", Hemline: ""}, nil
		},
	}, config.DefaultThresholds())

	report := v.Validate(context.Background(), testVariants([]byte("warm")), []byte("ref"), []byte("garment"))
	if failure := findFailure(report, FailureGarmentMismatch); failure != nil {
		t.Errorf("hemline must not be compared when one side is empty: %+v", failure)
	}
}

func TestValidateFlagsNearIdenticalVariants(t *testing.T) {
	v := NewValidator(&stubAnalyzer{
		compare: func(a, b []byte) (*analyzer.VariantDifference, error) {
			return &analyzer.VariantDifference{DifferenceScore: 8}, nil
		},
	}, config.DefaultThresholds())

	report := v.Validate(context.Background(), testVariants([]byte("warm"), []byte("warm2")), []byte("ref"), []byte("garment"))
	failure := findFailure(report, FailureVariantsTooSimilar)
	if failure == nil {
		t.Fatal("expected variants_too_similar failure")
	}
	if failure.Severity != SeverityHigh {
		t.Errorf("near-identical variants must be high severity, got %s", failure.Severity)
	}
	if failure.VariantIndex != -1 {
		t.Errorf("cross-variant failures must use index -1, got %d", failure.VariantIndex)
	}
}

func TestValidateSkipsChecksOnAnalyzerErrors(t *testing.T) {
	v := NewValidator(&stubAnalyzer{
		identity: func(candidate []byte) (*analyzer.IdentityScore, error) {
			return nil, errors.New("vision API timeout")
		},
		compare: func(a, b []byte) (*analyzer.VariantDifference, error) {
			return nil, errors.New("vision API timeout")
		},
	}, config.DefaultThresholds())

	// 판정 호출 실패는 해당 체크 스킵: 검증기가 가용성 병목이 되면 안 된다
	report := v.Validate(context.Background(), testVariants([]byte("warm"), []byte("cool")), []byte("ref"), []byte("garment"))
	if !report.Passed {
		t.Errorf("analyzer errors must not fail validation: %+v", report.Failures)
	}
}

func TestRetryGuidanceConcatenatesFailures(t *testing.T) {
	report := &ValidationReport{
		Failures: []ValidationFailure{
			{Kind: FailureIdentityMismatch, Guidance: "preserve the face"},
			{Kind: FailureLightingFlat, Guidance: "add directional light"},
			{Kind: FailureGarmentMismatch, Guidance: ""},
		},
	}

	guidance := report.RetryGuidance()
	if guidance != "- preserve the face\n- add directional light" {
		t.Errorf("unexpected guidance: %q", guidance)
	}
}
