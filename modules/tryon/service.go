package tryon

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"fitroom-tryon-server/modules/common/config"
	"fitroom-tryon-server/modules/common/gemini"
)

// Service - Gemini 기반 ImageGenerator 구현
type Service struct {
	apiKeys []string
	model   string
}

// NewService - Service 생성
func NewService() *Service {
	cfg := config.GetConfig()
	return &Service{
		apiKeys: cfg.GeminiAPIKeys,
		model:   cfg.GeminiImageModel,
	}
}

// GenerateVariant - 피사체 + 의류 + 프롬프트로 변형 이미지 1장 생성
func (s *Service) GenerateVariant(ctx context.Context, subject, garmentImage []byte, prompt, aspectRatio string) ([]byte, error) {
	var parts []*genai.Part

	// Reference Image 1: 중립 얼굴 처리된 피사체
	parts = append(parts, &genai.Part{
		InlineData: &genai.Blob{
			MIMEType: "image/png",
			Data:     subject,
		},
	})

	// Reference Image 2: 추출된 의류
	parts = append(parts, &genai.Part{
		InlineData: &genai.Blob{
			MIMEType: "image/png",
			Data:     garmentImage,
		},
	})

	parts = append(parts, genai.NewPartFromText(prompt))

	content := &genai.Content{
		Parts: parts,
	}

	result, err := gemini.GenerateContentWithRetry(
		ctx,
		s.apiKeys,
		s.model,
		[]*genai.Content{content},
		&genai.GenerateContentConfig{
			ImageConfig: &genai.ImageConfig{
				AspectRatio: aspectRatio,
			},
			Temperature: floatPtr(0.5),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	return gemini.ExtractImage(result)
}

func floatPtr(f float64) *float32 {
	v := float32(f)
	return &v
}
