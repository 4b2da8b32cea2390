package bodyattrs

import (
	"context"
	"errors"
	"testing"

	"fitroom-tryon-server/modules/analyzer"
)

// fakeBodyAnalyzer - InferBodyAttributes만 의미 있는 최소 구현
type fakeBodyAnalyzer struct {
	reading *analyzer.BodyReading
	err     error
}

func (f *fakeBodyAnalyzer) InferBodyAttributes(ctx context.Context, faceImage []byte) (*analyzer.BodyReading, error) {
	return f.reading, f.err
}

func (f *fakeBodyAnalyzer) DetectPerson(ctx context.Context, image []byte) (*analyzer.PersonDetection, error) {
	return nil, errors.New("not used")
}

func (f *fakeBodyAnalyzer) AssessExtractionQuality(ctx context.Context, image []byte) (*analyzer.ExtractionQuality, error) {
	return nil, errors.New("not used")
}

func (f *fakeBodyAnalyzer) ScoreIdentity(ctx context.Context, reference, candidate []byte) (*analyzer.IdentityScore, error) {
	return nil, errors.New("not used")
}

func (f *fakeBodyAnalyzer) AnalyzePose(ctx context.Context, image []byte) (*analyzer.PoseReading, error) {
	return nil, errors.New("not used")
}

func (f *fakeBodyAnalyzer) AnalyzeLighting(ctx context.Context, image []byte) (*analyzer.LightingReading, error) {
	return nil, errors.New("not used")
}

func (f *fakeBodyAnalyzer) ClassifyGarment(ctx context.Context, image []byte) (*analyzer.GarmentClassification, error) {
	return nil, errors.New("not used")
}

func (f *fakeBodyAnalyzer) CompareVariants(ctx context.Context, a, b []byte) (*analyzer.VariantDifference, error) {
	return nil, errors.New("not used")
}

func TestInferReturnsReading(t *testing.T) {
	inf := NewInferencer(&fakeBodyAnalyzer{
		reading: &analyzer.BodyReading{
			ShoulderWidth:  ShoulderBroad,
			ArmThickness:   ArmThick,
			TorsoShape:     TorsoTapered,
			Build:          BuildAthletic,
			WeightCategory: WeightHeavy,
			Summary:        "broad-shouldered athletic build",
			Confidence:     82,
		},
	})

	attrs := inf.Infer(context.Background(), []byte("subject"))
	if attrs == nil {
		t.Fatal("Infer must never return nil")
	}
	if !attrs.Inferred {
		t.Error("expected Inferred=true on success")
	}
	if attrs.ShoulderWidth != ShoulderBroad || attrs.Build != BuildAthletic {
		t.Errorf("reading not carried through: %+v", attrs)
	}
	if attrs.Confidence != 82 {
		t.Errorf("expected confidence 82, got %f", attrs.Confidence)
	}
}

func TestInferNeverErrors(t *testing.T) {
	inf := NewInferencer(&fakeBodyAnalyzer{err: errors.New("vision API down")})

	// 추정 실패는 파이프라인을 멈추지 않는다: 평균 체형으로 계속
	attrs := inf.Infer(context.Background(), []byte("subject"))
	if attrs == nil {
		t.Fatal("Infer must never return nil")
	}
	if attrs.Inferred {
		t.Error("expected Inferred=false on analyzer failure")
	}

	want := DefaultBodyAttributes()
	if attrs.ShoulderWidth != want.ShoulderWidth ||
		attrs.ArmThickness != want.ArmThickness ||
		attrs.TorsoShape != want.TorsoShape ||
		attrs.Build != want.Build ||
		attrs.WeightCategory != want.WeightCategory {
		t.Errorf("expected average defaults, got %+v", attrs)
	}
}

func TestInferAcceptsEveryPromptedValue(t *testing.T) {
	// 추론 프롬프트가 모델에 제시하는 어휘 그대로. 여기 있는 값이
	// normalize에서 탈락하면 프롬프트와 enum이 어긋난 것이다
	cases := []struct {
		field  string
		values []string
		set    func(r *analyzer.BodyReading, v string)
		get    func(a *BodyAttributes) string
	}{
		{"shoulder_width", []string{"narrow", "medium", "broad"},
			func(r *analyzer.BodyReading, v string) { r.ShoulderWidth = v },
			func(a *BodyAttributes) string { return a.ShoulderWidth }},
		{"arm_thickness", []string{"slim", "average", "thick"},
			func(r *analyzer.BodyReading, v string) { r.ArmThickness = v },
			func(a *BodyAttributes) string { return a.ArmThickness }},
		{"torso_shape", []string{"straight", "tapered", "rounded"},
			func(r *analyzer.BodyReading, v string) { r.TorsoShape = v },
			func(a *BodyAttributes) string { return a.TorsoShape }},
		{"build", []string{"slim", "athletic", "average", "heavy"},
			func(r *analyzer.BodyReading, v string) { r.Build = v },
			func(a *BodyAttributes) string { return a.Build }},
		{"weight_category", []string{"light", "average", "heavy"},
			func(r *analyzer.BodyReading, v string) { r.WeightCategory = v },
			func(a *BodyAttributes) string { return a.WeightCategory }},
	}

	for _, tc := range cases {
		for _, v := range tc.values {
			reading := &analyzer.BodyReading{
				ShoulderWidth:  ShoulderMedium,
				ArmThickness:   ArmAverage,
				TorsoShape:     TorsoStraight,
				Build:          BuildAverage,
				WeightCategory: WeightAverage,
				Confidence:     80,
			}
			tc.set(reading, v)
			inf := NewInferencer(&fakeBodyAnalyzer{reading: reading})
			attrs := inf.Infer(context.Background(), []byte("subject"))
			if got := tc.get(attrs); got != v {
				t.Errorf("%s=%q was rewritten to %q; prompted value must survive normalization", tc.field, v, got)
			}
		}
	}
}

func TestInferNormalizesUnknownValues(t *testing.T) {
	inf := NewInferencer(&fakeBodyAnalyzer{
		reading: &analyzer.BodyReading{
			ShoulderWidth:  "gigantic", // 모델이 만들어낸 허용 외 값
			ArmThickness:   ArmSlim,
			TorsoShape:     "",
			Build:          BuildSlim,
			WeightCategory: "featherweight",
			Confidence:     70,
		},
	})

	attrs := inf.Infer(context.Background(), []byte("subject"))
	if attrs.ShoulderWidth != ShoulderMedium {
		t.Errorf("unknown shoulder value must fall back to medium, got %s", attrs.ShoulderWidth)
	}
	if attrs.ArmThickness != ArmSlim {
		t.Errorf("valid value must survive normalization, got %s", attrs.ArmThickness)
	}
	if attrs.TorsoShape != TorsoStraight {
		t.Errorf("empty torso value must fall back to straight, got %s", attrs.TorsoShape)
	}
	if attrs.WeightCategory != WeightAverage {
		t.Errorf("unknown weight value must fall back to average, got %s", attrs.WeightCategory)
	}
	if attrs.Summary == "" {
		t.Error("summary must never be empty")
	}
}
