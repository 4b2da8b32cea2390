package tryon

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"fitroom-tryon-server/modules/analyzer"
	"fitroom-tryon-server/modules/common/config"
	"fitroom-tryon-server/modules/common/database"
	"fitroom-tryon-server/modules/common/imageutil"
	"fitroom-tryon-server/modules/common/model"
	redisutil "fitroom-tryon-server/modules/common/redis"
	"fitroom-tryon-server/modules/facelock"
	"fitroom-tryon-server/modules/garment"
)

// minSubjectDimension - freeze 대상 이미지의 한 변 최소 픽셀
const minSubjectDimension = 64

// Handler - Try-on HTTP 핸들러
type Handler struct {
	faces *facelock.Manager
}

// NewHandler - Handler 생성
func NewHandler(faces *facelock.Manager) *Handler {
	return &Handler{faces: faces}
}

// RegisterRoutes - 라우트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/tryon/freeze", h.HandleFreeze).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/tryon/garment", h.HandleGarment).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/tryon/generate", h.HandleGenerate).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/tryon/session/{sessionId}", h.HandleClearSession).Methods("DELETE", "OPTIONS")
	log.Println("✅ Tryon routes registered: /api/tryon/{freeze,garment,generate,session}")
}

func setCORSHeaders(w http.ResponseWriter, methods string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", methods)
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// FreezeRequest - 얼굴 고정 요청
type FreezeRequest struct {
	SessionID   string `json:"sessionId"`
	ImageBase64 string `json:"imageBase64"`
}

// FreezeResponse - 얼굴 고정 응답
type FreezeResponse struct {
	Success           bool             `json:"success"`
	Error             string           `json:"error,omitempty"`
	SessionID         string           `json:"sessionId,omitempty"`
	FrozenImageBase64 string           `json:"frozenImageBase64,omitempty"`
	Bounds            *facelock.Bounds `json:"bounds,omitempty"`
	Confidence        float64          `json:"confidence,omitempty"`
	LightingDirection string           `json:"lightingDirection,omitempty"`
	Cached            bool             `json:"cached"`
}

// HandleFreeze - POST /api/tryon/freeze
// 세션에 얼굴 영역을 고정하고 중립 처리된 이미지를 반환한다
func (h *Handler) HandleFreeze(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w, "POST, OPTIONS")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req FreezeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("❌ [Freeze] Invalid request: %v", err)
		json.NewEncoder(w).Encode(FreezeResponse{Success: false, Error: "Invalid request body"})
		return
	}
	if req.SessionID == "" || req.ImageBase64 == "" {
		json.NewEncoder(w).Encode(FreezeResponse{Success: false, Error: "sessionId and imageBase64 are required"})
		return
	}

	imageData, err := imageutil.FromBase64(req.ImageBase64)
	if err != nil {
		json.NewEncoder(w).Encode(FreezeResponse{Success: false, Error: "Failed to decode imageBase64"})
		return
	}

	// 얼굴 영역 산출이 무의미한 초소형 이미지는 여기서 거른다
	width, height, err := imageutil.DecodeDimensions(imageData)
	if err != nil {
		json.NewEncoder(w).Encode(FreezeResponse{Success: false, Error: "Unreadable image data"})
		return
	}
	if width < minSubjectDimension || height < minSubjectDimension {
		json.NewEncoder(w).Encode(FreezeResponse{Success: false, Error: fmt.Sprintf("image too small (%dx%d, minimum %d)", width, height, minSubjectDimension)})
		return
	}

	hash := facelock.ContentHash(imageData)
	cached := false
	if existing, ok := h.faces.Lookup(req.SessionID); ok && existing.ContentHash == hash {
		cached = true
	}

	zone, err := h.faces.FreezeForSession(req.SessionID, imageData)
	if err != nil {
		log.Printf("❌ [Freeze] Failed for session %s: %v", req.SessionID, err)
		json.NewEncoder(w).Encode(FreezeResponse{Success: false, Error: err.Error()})
		return
	}

	bounds := zone.Bounds
	json.NewEncoder(w).Encode(FreezeResponse{
		Success:           true,
		SessionID:         req.SessionID,
		FrozenImageBase64: imageutil.ToBase64(zone.FrozenBytes),
		Bounds:            &bounds,
		Confidence:        zone.Confidence,
		LightingDirection: string(zone.LightingDirection),
		Cached:            cached,
	})
}

// GarmentRequest - 의류 게이트 요청
type GarmentRequest struct {
	ImageBase64 string `json:"imageBase64"`
}

// GarmentResponse - 의류 게이트 응답
type GarmentResponse struct {
	Success              bool    `json:"success"`
	Error                string  `json:"error,omitempty"`
	PersonDetected       bool    `json:"personDetected"`
	ExtractedImageBase64 string  `json:"extractedImageBase64,omitempty"`
	QualityScore         float64 `json:"qualityScore"`
	QualityScored        bool    `json:"qualityScored"`
	State                string  `json:"state,omitempty"`
}

// HandleGarment - POST /api/tryon/garment
// 의류 사진을 추출 게이트에 통과시킨다 (생성 전 사전 확인용)
func (h *Handler) HandleGarment(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w, "POST, OPTIONS")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req GarmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		json.NewEncoder(w).Encode(GarmentResponse{Success: false, Error: "Invalid request body"})
		return
	}
	if req.ImageBase64 == "" {
		json.NewEncoder(w).Encode(GarmentResponse{Success: false, Error: "imageBase64 is required"})
		return
	}

	imageData, err := imageutil.FromBase64(req.ImageBase64)
	if err != nil {
		json.NewEncoder(w).Encode(GarmentResponse{Success: false, Error: "Failed to decode imageBase64"})
		return
	}

	cfg := config.GetConfig()
	geminiAnalyzer := analyzer.NewGeminiAnalyzer()
	if geminiAnalyzer == nil {
		json.NewEncoder(w).Encode(GarmentResponse{Success: false, Error: "Failed to initialize analyzer"})
		return
	}
	extractor := garment.NewHTTPExtractor(cfg.ExtractorURL, cfg.ExtractorTimeout)
	gate := garment.NewGate(geminiAnalyzer, extractor, cfg.Thresholds.GarmentQualityMin)

	ctx, cancel := context.WithTimeout(r.Context(), cfg.ExtractorTimeout+30*time.Second)
	defer cancel()

	result, err := gate.Process(ctx, imageData)
	if err != nil {
		resp := GarmentResponse{Success: false, Error: err.Error()}
		if result != nil {
			resp.PersonDetected = result.PersonDetected
			resp.QualityScore = result.QualityScore
			resp.QualityScored = result.QualityScored
			resp.State = string(result.State)
		}
		json.NewEncoder(w).Encode(resp)
		return
	}

	json.NewEncoder(w).Encode(GarmentResponse{
		Success:              true,
		PersonDetected:       result.PersonDetected,
		ExtractedImageBase64: imageutil.ToBase64(result.ExtractedImage),
		QualityScore:         result.QualityScore,
		QualityScored:        result.QualityScored,
		State:                string(result.State),
	})
}

// GenerateRequest - 생성 Job 등록 요청
type GenerateRequest struct {
	SessionID          string `json:"sessionId"`
	SubjectImageBase64 string `json:"subjectImageBase64,omitempty"`
	SubjectAttachID    int    `json:"subjectAttachId,omitempty"`
	GarmentImageBase64 string `json:"garmentImageBase64,omitempty"`
	GarmentAttachID    int    `json:"garmentAttachId,omitempty"`
	AspectRatio        string `json:"aspectRatio,omitempty"`
}

// GenerateResponse - 생성 Job 등록 응답
type GenerateResponse struct {
	Success       bool   `json:"success"`
	Error         string `json:"error,omitempty"`
	JobID         string `json:"jobId,omitempty"`
	QueuePosition int64  `json:"queuePosition,omitempty"`
}

// HandleGenerate - POST /api/tryon/generate
// Job 레코드를 만들고 Redis 큐에 등록한다. 실제 처리는 워커가 한다
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w, "POST, OPTIONS")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		json.NewEncoder(w).Encode(GenerateResponse{Success: false, Error: "Invalid request body"})
		return
	}
	if req.SessionID == "" {
		json.NewEncoder(w).Encode(GenerateResponse{Success: false, Error: "sessionId is required"})
		return
	}
	if req.SubjectImageBase64 == "" && req.SubjectAttachID == 0 {
		json.NewEncoder(w).Encode(GenerateResponse{Success: false, Error: "subject image is required"})
		return
	}
	if req.GarmentImageBase64 == "" && req.GarmentAttachID == 0 {
		json.NewEncoder(w).Encode(GenerateResponse{Success: false, Error: "garment image is required"})
		return
	}

	aspectRatio := req.AspectRatio
	if aspectRatio == "" {
		aspectRatio = "3:4"
	}

	jobID := uuid.New().String()
	inputData := map[string]interface{}{
		"sessionId":   req.SessionID,
		"aspectRatio": aspectRatio,
	}
	if req.SubjectImageBase64 != "" {
		inputData["subjectImageBase64"] = req.SubjectImageBase64
	} else {
		inputData["subjectAttachId"] = float64(req.SubjectAttachID)
	}
	if req.GarmentImageBase64 != "" {
		inputData["garmentImageBase64"] = req.GarmentImageBase64
	} else {
		inputData["garmentAttachId"] = float64(req.GarmentAttachID)
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	dbClient := database.NewClient()
	if dbClient == nil {
		json.NewEncoder(w).Encode(GenerateResponse{Success: false, Error: "Database unavailable"})
		return
	}

	job := &model.TryonJob{
		JobID:         jobID,
		SessionID:     req.SessionID,
		JobType:       model.JobTypeTryonGenerate,
		JobStatus:     model.StatusPending,
		TotalVariants: len(DefaultVariants),
		JobInputData:  inputData,
	}
	if err := dbClient.CreateJob(ctx, job); err != nil {
		log.Printf("❌ [Generate] Failed to create job record: %v", err)
		json.NewEncoder(w).Encode(GenerateResponse{Success: false, Error: "Failed to create job"})
		return
	}

	cfg := config.GetConfig()
	rdb := redisutil.Connect(cfg)
	if rdb == nil {
		json.NewEncoder(w).Encode(GenerateResponse{Success: false, Error: "Queue unavailable"})
		return
	}
	position, err := redisutil.EnqueueJob(ctx, rdb, jobID)
	if err != nil {
		log.Printf("❌ [Generate] Failed to enqueue job: %v", err)
		json.NewEncoder(w).Encode(GenerateResponse{Success: false, Error: "Failed to enqueue job"})
		return
	}

	log.Printf("✅ [Generate] Job %s enqueued for session %s (position %d)", jobID, req.SessionID, position)
	json.NewEncoder(w).Encode(GenerateResponse{Success: true, JobID: jobID, QueuePosition: position})
}

// ClearSessionResponse - 세션 해제 응답
type ClearSessionResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId"`
}

// HandleClearSession - DELETE /api/tryon/session/{sessionId}
// 세션의 얼굴 고정 캐시를 명시적으로 해제한다
func (h *Handler) HandleClearSession(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w, "DELETE, OPTIONS")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	sessionID := mux.Vars(r)["sessionId"]
	h.faces.ClearSession(sessionID)
	json.NewEncoder(w).Encode(ClearSessionResponse{Success: true, SessionID: sessionID})
}
