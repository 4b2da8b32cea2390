package main

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"fitroom-tryon-server/modules/common/config"
	"fitroom-tryon-server/modules/facelock"
	"fitroom-tryon-server/modules/tryon"
	"fitroom-tryon-server/modules/worker"
)

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ProgressClient - 진행률 구독 클라이언트
type ProgressClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// ProgressHub - Job별 진행률 websocket 허브
// 워커가 단계 완료를 알리면 해당 Job을 구독 중인 클라이언트 전체에 전달한다
type ProgressHub struct {
	subscribers map[string][]*ProgressClient
	mu          sync.RWMutex
}

var progressHub = &ProgressHub{
	subscribers: make(map[string][]*ProgressClient),
}

// ProgressMessage - 진행률 메시지
type ProgressMessage struct {
	JobID  string `json:"jobId"`
	Stage  int    `json:"stage"`
	Name   string `json:"name"`
	Status string `json:"status"`
	TimeMs int64  `json:"timeMs"`
	SentAt int64  `json:"sentAt"`
}

// subscribe - jobID 구독 등록
func (h *ProgressHub) subscribe(jobID string, client *ProgressClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[jobID] = append(h.subscribers[jobID], client)
	log.Printf("📡 [Progress] Client subscribed to job %s (%d subscribers)", jobID, len(h.subscribers[jobID]))
}

// unsubscribe - 연결 종료된 클라이언트 제거
func (h *ProgressHub) unsubscribe(jobID string, client *ProgressClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients := h.subscribers[jobID]
	for i, c := range clients {
		if c == client {
			h.subscribers[jobID] = append(clients[:i], clients[i+1:]...)
			break
		}
	}
	if len(h.subscribers[jobID]) == 0 {
		delete(h.subscribers, jobID)
	}
}

// broadcast - Job 구독자 전체에 단계 기록 전송
func (h *ProgressHub) broadcast(jobID string, record tryon.StageRecord) {
	h.mu.RLock()
	clients := make([]*ProgressClient, len(h.subscribers[jobID]))
	copy(clients, h.subscribers[jobID])
	h.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	message := ProgressMessage{
		JobID:  jobID,
		Stage:  record.Stage,
		Name:   record.Name,
		Status: string(record.Status),
		TimeMs: record.TimeMs,
		SentAt: time.Now().UnixMilli(),
	}

	for _, client := range clients {
		client.mu.Lock()
		if err := client.conn.WriteJSON(message); err != nil {
			log.Printf("⚠️ [Progress] Failed to send to subscriber: %v", err)
		}
		client.mu.Unlock()
	}
}

// handleProgressWS - GET /ws/progress?jobId=...
func handleProgressWS(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("jobId")
	if jobID == "" {
		http.Error(w, "jobId query parameter is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("❌ [Progress] WebSocket upgrade failed: %v", err)
		return
	}

	client := &ProgressClient{conn: conn}
	progressHub.subscribe(jobID, client)

	// 읽기 루프는 연결 종료 감지용
	go func() {
		defer func() {
			progressHub.unsubscribe(jobID, client)
			conn.Close()
			log.Printf("📡 [Progress] Client disconnected from job %s", jobID)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// enableCORS - CORS 미들웨어
func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// 헬스 체크 엔드포인트
func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "fitroom-tryon-server",
	})
}

func main() {
	// 환경변수 로드
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	// 세션 얼굴 고정 스토어 (HTTP 핸들러와 워커가 공유)
	store := facelock.NewCacheStore(cfg.SessionTTL, cfg.SessionMaxEntries)
	faces := facelock.NewManager(store, facelock.NewFreezeGenerator())

	// Redis Queue Worker 시작 (백그라운드)
	go worker.StartWorker(faces, progressHub.broadcast)

	// 라우터 설정
	r := mux.NewRouter()
	r.Use(enableCORS)

	r.HandleFunc("/", healthCheck).Methods("GET")
	r.HandleFunc("/health", healthCheck).Methods("GET")
	r.HandleFunc("/ws/progress", handleProgressWS)

	tryonHandler := tryon.NewHandler(faces)
	tryonHandler.RegisterRoutes(r)

	if cancelHandler := worker.NewCancelHandler(); cancelHandler != nil {
		cancelHandler.RegisterRoutes(r)
	}

	log.Printf("🚀 Fitroom Try-on Server starting on port %s", cfg.Port)
	log.Printf("📡 Progress endpoint: ws://localhost:%s/ws/progress?jobId=...", cfg.Port)
	log.Printf("❤️  Health check: http://localhost:%s/health", cfg.Port)

	// 서버 시작
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
