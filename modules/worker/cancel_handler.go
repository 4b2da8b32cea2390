package worker

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"fitroom-tryon-server/modules/common/config"
	redisutil "fitroom-tryon-server/modules/common/redis"
)

// CancelHandler - Job 취소 Handler
type CancelHandler struct {
	rdb *redis.Client
}

// CancelResponse - 취소 응답
type CancelResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	JobID   string `json:"job_id,omitempty"`
}

// NewCancelHandler - CancelHandler 생성
func NewCancelHandler() *CancelHandler {
	cfg := config.GetConfig()

	rdb := redisutil.Connect(cfg)
	if rdb == nil {
		log.Println("⚠️ [Cancel] Failed to connect to Redis")
		return nil
	}

	log.Println("✅ [Cancel] Handler initialized with Redis connection")
	return &CancelHandler{rdb: rdb}
}

// RegisterRoutes - 라우트 등록
func (h *CancelHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/jobs/{jobId}/cancel", h.HandleCancel).Methods("POST", "OPTIONS")
	log.Println("✅ Cancel routes registered: /api/jobs/{jobId}/cancel")
}

// HandleCancel - POST /api/jobs/{jobId}/cancel
// 취소 플래그만 세운다. 진행 중인 단계는 다음 취소 확인 지점에서 중단된다
func (h *CancelHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	jobID := mux.Vars(r)["jobId"]
	if jobID == "" {
		json.NewEncoder(w).Encode(CancelResponse{Success: false, Error: "jobId is required"})
		return
	}

	if err := redisutil.SetJobCancelled(h.rdb, jobID); err != nil {
		log.Printf("❌ [Cancel] Failed to set cancel flag for %s: %v", jobID, err)
		json.NewEncoder(w).Encode(CancelResponse{Success: false, Error: err.Error()})
		return
	}

	log.Printf("🛑 [Cancel] Cancel flag set for job: %s", jobID)
	json.NewEncoder(w).Encode(CancelResponse{
		Success: true,
		Message: "Job cancellation requested",
		JobID:   jobID,
	})
}
