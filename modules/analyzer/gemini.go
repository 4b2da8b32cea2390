package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"google.golang.org/genai"

	"fitroom-tryon-server/modules/common/config"
	"fitroom-tryon-server/modules/common/gemini"
)

// GeminiAnalyzer - Gemini vision 모델 기반 ImageAnalyzer 구현
type GeminiAnalyzer struct {
	genaiClient *genai.Client
	model       string
}

// NewGeminiAnalyzer - Gemini Analyzer 생성
func NewGeminiAnalyzer() *GeminiAnalyzer {
	cfg := config.GetConfig()

	ctx := context.Background()
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		log.Printf("❌ Failed to create Genai client: %v", err)
		return nil
	}

	return &GeminiAnalyzer{
		genaiClient: genaiClient,
		model:       cfg.GeminiVisionModel,
	}
}

// askJSON - 이미지 + 지시문으로 JSON 응답을 받아 out으로 파싱
func (a *GeminiAnalyzer) askJSON(ctx context.Context, prompt string, images [][]byte, out interface{}) error {
	parts := make([]*genai.Part, 0, len(images)+1)
	for _, img := range images {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: "image/png",
				Data:     img,
			},
		})
	}
	parts = append(parts, genai.NewPartFromText(prompt))

	content := &genai.Content{Parts: parts}

	result, err := a.genaiClient.Models.GenerateContent(
		ctx,
		a.model,
		[]*genai.Content{content},
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			Temperature:      floatPtr(0.1),
		},
	)
	if err != nil {
		return fmt.Errorf("Gemini API call failed: %w", err)
	}

	text, err := gemini.ExtractText(result)
	if err != nil {
		return err
	}

	raw := stripCodeFence(text)
	if raw == "" {
		return fmt.Errorf("empty response text")
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("failed to parse analyzer response: %w", err)
	}
	return nil
}

// stripCodeFence - JSON 모드가 무시된 경우를 대비한 ``` 펜스 제거
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}

func floatPtr(f float64) *float32 {
	f32 := float32(f)
	return &f32
}

// DetectPerson - 의류 사진에 사람(모델)이 포함되어 있는지 판정
func (a *GeminiAnalyzer) DetectPerson(ctx context.Context, image []byte) (*PersonDetection, error) {
	prompt := "Look at this garment photo. Is there a human (model, mannequin with visible skin, or any person) wearing or holding the garment?\n" +
		"Respond with JSON only: {\"person_detected\": boolean, \"confidence\": number between 0 and 1}"

	var out PersonDetection
	if err := a.askJSON(ctx, prompt, [][]byte{image}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AssessExtractionQuality - 추출된 의류 이미지 품질 평가
func (a *GeminiAnalyzer) AssessExtractionQuality(ctx context.Context, image []byte) (*ExtractionQuality, error) {
	prompt := "This image should contain ONLY a garment, extracted from a photo, with no human body parts remaining.\n" +
		"Score the extraction quality from 0 to 100. Deduct for: remaining skin/hair/body parts, cut-off garment edges, heavy artifacts, distorted shape.\n" +
		"Respond with JSON only: {\"score\": number 0-100, \"issues\": [list of short issue strings]}"

	var out ExtractionQuality
	if err := a.askJSON(ctx, prompt, [][]byte{image}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// InferBodyAttributes - 얼굴 사진만으로 체형 카테고리 추론
// 의류 사진은 절대 입력하지 않는다 (레퍼런스 모델의 체형이 새어 들어오는 것 방지)
func (a *GeminiAnalyzer) InferBodyAttributes(ctx context.Context, faceImage []byte) (*BodyReading, error) {
	prompt := "From this face/portrait photo ONLY, estimate the person's likely body attributes.\n" +
		"Use exactly these values:\n" +
		"shoulder_width: narrow|medium|broad\n" +
		"arm_thickness: slim|average|thick\n" +
		"torso_shape: straight|tapered|rounded\n" +
		"build: slim|athletic|average|heavy\n" +
		"weight_category: light|average|heavy\n" +
		"Respond with JSON only: {\"shoulder_width\": string, \"arm_thickness\": string, \"torso_shape\": string, \"build\": string, \"weight_category\": string, \"summary\": short free text, \"confidence\": number 0-100}"

	var out BodyReading
	if err := a.askJSON(ctx, prompt, [][]byte{faceImage}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ScoreIdentity - 레퍼런스와 후보 이미지가 같은 사람인지 점수화
func (a *GeminiAnalyzer) ScoreIdentity(ctx context.Context, reference, candidate []byte) (*IdentityScore, error) {
	prompt := "Image 1 is the reference person. Image 2 is a generated photo.\n" +
		"Score from 0 to 100 how likely the person in Image 2 is the SAME person as Image 1 (facial structure, skin tone, hair, ethnicity, bone structure).\n" +
		"Respond with JSON only: {\"similarity\": number 0-100, \"reason\": short string}"

	var out IdentityScore
	if err := a.askJSON(ctx, prompt, [][]byte{reference, candidate}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AnalyzePose - 포즈 대칭도 평가 (자연스러운 포즈는 완전 대칭이 아님)
func (a *GeminiAnalyzer) AnalyzePose(ctx context.Context, image []byte) (*PoseReading, error) {
	prompt := "Look at the person's pose in this photo.\n" +
		"Score from 0 to 100 how SYMMETRIC the pose is (100 = perfectly mirrored left/right, 0 = strongly asymmetric). Natural human poses score low.\n" +
		"Respond with JSON only: {\"symmetry_score\": number 0-100}"

	var out PoseReading
	if err := a.askJSON(ctx, prompt, [][]byte{image}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AnalyzeLighting - 조명 방향성/falloff 평가
func (a *GeminiAnalyzer) AnalyzeLighting(ctx context.Context, image []byte) (*LightingReading, error) {
	prompt := "Analyze the lighting on the subject in this photo.\n" +
		"falloff_percent: brightness difference in percent between the brightest and darkest side of the subject (0 = perfectly flat light).\n" +
		"shadows_present: whether any cast or form shadows are visible.\n" +
		"direction: left|right|front|back.\n" +
		"Respond with JSON only: {\"falloff_percent\": number, \"shadows_present\": boolean, \"direction\": string}"

	var out LightingReading
	if err := a.askJSON(ctx, prompt, [][]byte{image}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClassifyGarment - 의류 구조 분류 (카테고리/밑단/소매)
func (a *GeminiAnalyzer) ClassifyGarment(ctx context.Context, image []byte) (*GarmentClassification, error) {
	prompt := "Classify the garment in this image.\n" +
		"category: top|bottom|dress|outer|other\n" +
		"hemline: cropped|hip|thigh|knee|ankle|unknown\n" +
		"sleeve: sleeveless|short|long|unknown\n" +
		"Respond with JSON only: {\"category\": string, \"hemline\": string, \"sleeve\": string, \"confidence\": number 0-1}"

	var out GarmentClassification
	if err := a.askJSON(ctx, prompt, [][]byte{image}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CompareVariants - 두 variant의 장면 차이 점수
// 얼굴/체형은 같아야 하므로 제외하고 조명/무드/배경만 비교한다
func (a *GeminiAnalyzer) CompareVariants(ctx context.Context, imgA, imgB []byte) (*VariantDifference, error) {
	prompt := "These two images are generated variants of the same person wearing the same garment.\n" +
		"IGNORING face and body (those must match), score from 0 to 100 how DIFFERENT the two images are in lighting, mood, color temperature and background (0 = identical scenes).\n" +
		"Respond with JSON only: {\"difference_score\": number 0-100}"

	var out VariantDifference
	if err := a.askJSON(ctx, prompt, [][]byte{imgA, imgB}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
