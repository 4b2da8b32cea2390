package garment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"fitroom-tryon-server/modules/common/imageutil"
)

// HTTPExtractor - 외부 의류 추출 서비스 HTTP 클라이언트
type HTTPExtractor struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPExtractor - 추출 서비스 클라이언트 생성
func NewHTTPExtractor(baseURL string, timeout time.Duration) *HTTPExtractor {
	return &HTTPExtractor{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type extractRequest struct {
	Image string `json:"image"`
	Mode  string `json:"mode"`
}

type extractResponse struct {
	Success bool   `json:"success"`
	Image   string `json:"image"`
	Error   string `json:"error,omitempty"`
}

// Extract - 이미지를 추출 서비스에 전달하고 의류만 남은 결과를 받는다
func (e *HTTPExtractor) Extract(ctx context.Context, image []byte, mode string) ([]byte, error) {
	payload, err := json.Marshal(extractRequest{
		Image: imageutil.ToBase64(image),
		Mode:  mode,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode extraction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/extract", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build extraction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	log.Printf("📤 [Extractor] Sending %d bytes to extraction service (mode=%s)", len(image), mode)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extraction service request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read extraction response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extraction service returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed extractResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse extraction response: %w", err)
	}

	if !parsed.Success {
		return nil, fmt.Errorf("extraction service reported failure: %s", parsed.Error)
	}

	extracted, err := imageutil.FromBase64(parsed.Image)
	if err != nil {
		return nil, fmt.Errorf("failed to decode extracted image: %w", err)
	}

	if len(extracted) == 0 {
		return nil, fmt.Errorf("extraction service returned empty image")
	}

	log.Printf("📥 [Extractor] Received extracted garment: %d bytes", len(extracted))
	return extracted, nil
}
