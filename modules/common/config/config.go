package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config 구조체 - 모든 환경변수를 담음
type Config struct {
	// Redis
	RedisHost     string
	RedisPort     string
	RedisUsername string
	RedisPassword string
	RedisUseTLS   bool

	// Supabase
	SupabaseURL            string
	SupabaseServiceKey     string
	SupabaseStorageBaseURL string

	// Gemini API
	GeminiAPIKey      string
	GeminiAPIKeys     []string // 429 재시도용 추가 키 (콤마 구분)
	GeminiImageModel  string
	GeminiVisionModel string

	// 의류 추출 외부 서비스
	ExtractorURL     string
	ExtractorTimeout time.Duration

	// Server
	Port string

	// Job 처리 데드라인 (variant 호출 전체에 전파됨)
	JobTimeout time.Duration

	// Session Face Store
	SessionTTL        time.Duration
	SessionMaxEntries int

	// 파이프라인 판정 기준치
	Thresholds Thresholds
}

// Thresholds - 파이프라인 전체의 수치 기준을 한 곳에 모음
// 개별 호출부에 숫자를 흩어놓지 않고 여기서만 튜닝한다
type Thresholds struct {
	GarmentQualityMin float64 // 의류 추출 품질 하한 (0~1), 미달 시 hard error
	IdentityMin       float64 // 얼굴 유사도 하한 (0~100)
	SymmetryMax       float64 // 포즈 대칭도 상한 (0~100), 이상이면 부자연스러움
	FalloffMin        float64 // 조명 falloff 하한 (%), 이하면 평면광
	VariantDiffMin    float64 // variant 간 차이 하한 (%), 미만이면 너무 비슷함
	LockConfidenceMin float64 // Face lock confidence 하한 (0~1)
	GarmentBlendMin   float64 // 이 값 이상이면 replace, 미만이면 blend (0~1)
}

var globalConfig *Config

// LoadConfig - 환경변수 로드
func LoadConfig() (*Config, error) {
	// .env 파일 로드 (있으면)
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env file not found, using environment variables")
	}

	// Redis UseTLS 파싱
	useTLS := true // 기본값
	if tlsStr := os.Getenv("REDIS_USE_TLS"); tlsStr != "" {
		if parsed, err := strconv.ParseBool(tlsStr); err == nil {
			useTLS = parsed
		}
	}

	globalConfig = &Config{
		// Redis
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisUsername: getEnv("REDIS_USERNAME", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisUseTLS:   useTLS,

		// Supabase
		SupabaseURL:            getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:     getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseStorageBaseURL: getEnv("SUPABASE_STORAGE_BASE_URL", ""),

		// Gemini API
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiAPIKeys:     splitKeys(os.Getenv("GEMINI_API_KEYS")),
		GeminiImageModel:  getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
		GeminiVisionModel: getEnv("GEMINI_VISION_MODEL", "gemini-2.5-flash"),

		// 의류 추출 서비스
		ExtractorURL:     getEnv("EXTRACTOR_URL", ""),
		ExtractorTimeout: getEnvDuration("EXTRACTOR_TIMEOUT_SEC", 60),

		// Server
		Port: getEnv("PORT", "8080"),

		// Job 데드라인
		JobTimeout: getEnvDuration("JOB_TIMEOUT_SEC", 300),

		// Session Face Store
		SessionTTL:        getEnvDuration("SESSION_TTL_SEC", 1800),
		SessionMaxEntries: getEnvInt("SESSION_MAX_ENTRIES", 500),

		Thresholds: Thresholds{
			GarmentQualityMin: getEnvFloat("GARMENT_QUALITY_MIN", 0.85),
			IdentityMin:       getEnvFloat("IDENTITY_MIN", 85),
			SymmetryMax:       getEnvFloat("SYMMETRY_MAX", 40),
			FalloffMin:        getEnvFloat("FALLOFF_MIN", 5),
			VariantDiffMin:    getEnvFloat("VARIANT_DIFF_MIN", 30),
			LockConfidenceMin: getEnvFloat("LOCK_CONFIDENCE_MIN", 0.95),
			GarmentBlendMin:   getEnvFloat("GARMENT_BLEND_MIN", 0.7),
		},
	}

	// 메인 키가 GEMINI_API_KEYS에 없으면 맨 앞에 추가
	if globalConfig.GeminiAPIKey != "" && !containsKey(globalConfig.GeminiAPIKeys, globalConfig.GeminiAPIKey) {
		globalConfig.GeminiAPIKeys = append([]string{globalConfig.GeminiAPIKey}, globalConfig.GeminiAPIKeys...)
	}

	// 필수 환경변수 검증
	if err := globalConfig.validate(); err != nil {
		return nil, err
	}

	log.Println("✅ Configuration loaded successfully")
	log.Printf("   Redis: %s:%s (TLS: %v)", globalConfig.RedisHost, globalConfig.RedisPort, globalConfig.RedisUseTLS)
	log.Printf("   Supabase: %s", globalConfig.SupabaseURL)
	log.Printf("   Gemini: image=%s, vision=%s (%d keys)", globalConfig.GeminiImageModel, globalConfig.GeminiVisionModel, len(globalConfig.GeminiAPIKeys))
	log.Printf("   Extractor: %s", globalConfig.ExtractorURL)
	log.Printf("   Thresholds: quality=%.2f identity=%.0f symmetry=%.0f falloff=%.0f diff=%.0f lock=%.2f",
		globalConfig.Thresholds.GarmentQualityMin, globalConfig.Thresholds.IdentityMin,
		globalConfig.Thresholds.SymmetryMax, globalConfig.Thresholds.FalloffMin,
		globalConfig.Thresholds.VariantDiffMin, globalConfig.Thresholds.LockConfidenceMin)

	return globalConfig, nil
}

// GetConfig - 로드된 설정 가져오기
func GetConfig() *Config {
	if globalConfig == nil {
		log.Fatal("❌ Config not loaded. Call LoadConfig() first.")
	}
	return globalConfig
}

// DefaultThresholds - 테스트/단독 사용을 위한 기본 기준치
func DefaultThresholds() Thresholds {
	return Thresholds{
		GarmentQualityMin: 0.85,
		IdentityMin:       85,
		SymmetryMax:       40,
		FalloffMin:        5,
		VariantDiffMin:    30,
		LockConfidenceMin: 0.95,
		GarmentBlendMin:   0.7,
	}
}

// validate - 필수 환경변수 검증
func (c *Config) validate() error {
	if c.RedisHost == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if c.SupabaseServiceKey == "" {
		return fmt.Errorf("SUPABASE_SERVICE_KEY is required")
	}
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if c.ExtractorURL == "" {
		return fmt.Errorf("EXTRACTOR_URL is required")
	}
	return nil
}

// getEnv - 환경변수 가져오기 (기본값 지원)
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt - int 환경변수 (기본값 지원)
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvFloat - float 환경변수 (기본값 지원)
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration - 초 단위 환경변수를 Duration으로
func getEnvDuration(key string, defaultSec int) time.Duration {
	return time.Duration(getEnvInt(key, defaultSec)) * time.Second
}

// splitKeys - 콤마 구분 API 키 문자열 파싱
func splitKeys(raw string) []string {
	if raw == "" {
		return nil
	}
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

// GetRedisAddr - Redis 연결 문자열 생성
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}
