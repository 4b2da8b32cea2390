package facelock

import (
	"log"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// SessionStore - 세션별 FaceLockZone 저장소
// 같은 세션에 동시 쓰기는 제품 설계상 없지만, 서로 다른 세션 간
// 동시 접근은 항상 안전해야 한다
type SessionStore interface {
	Get(sessionID string) (*FaceLockZone, bool)
	Put(zone *FaceLockZone)
	Clear(sessionID string)
	Len() int
}

// CacheStore - go-cache 기반 SessionStore 구현
// TTL 만료 + 엔트리 수 상한으로 장기 실행 프로세스에서의 무한 성장을 막는다
type CacheStore struct {
	cache      *gocache.Cache
	maxEntries int
}

// NewCacheStore - TTL/상한이 설정된 세션 스토어 생성
func NewCacheStore(ttl time.Duration, maxEntries int) *CacheStore {
	if maxEntries <= 0 {
		maxEntries = 500
	}
	return &CacheStore{
		cache:      gocache.New(ttl, ttl/2),
		maxEntries: maxEntries,
	}
}

// Get - 세션의 zone 조회
func (s *CacheStore) Get(sessionID string) (*FaceLockZone, bool) {
	v, ok := s.cache.Get(sessionID)
	if !ok {
		return nil, false
	}
	zone, ok := v.(*FaceLockZone)
	return zone, ok
}

// Put - zone 저장 (상한 초과 시 가장 오래된 엔트리 퇴출)
func (s *CacheStore) Put(zone *FaceLockZone) {
	if zone == nil {
		return
	}

	if _, exists := s.cache.Get(zone.SessionID); !exists && s.cache.ItemCount() >= s.maxEntries {
		s.evictOldest()
	}

	s.cache.SetDefault(zone.SessionID, zone)
}

// Clear - 세션의 zone 명시적 삭제
func (s *CacheStore) Clear(sessionID string) {
	s.cache.Delete(sessionID)
}

// Len - 현재 엔트리 수
func (s *CacheStore) Len() int {
	return s.cache.ItemCount()
}

// evictOldest - CreatedAt 기준 가장 오래된 zone 제거
func (s *CacheStore) evictOldest() {
	var oldestKey string
	var oldestAt time.Time

	for key, item := range s.cache.Items() {
		zone, ok := item.Object.(*FaceLockZone)
		if !ok {
			continue
		}
		if oldestKey == "" || zone.CreatedAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = zone.CreatedAt
		}
	}

	if oldestKey != "" {
		log.Printf("🧹 [FaceStore] Evicting oldest session zone: %s (created %s)", oldestKey, oldestAt.Format(time.RFC3339))
		s.cache.Delete(oldestKey)
	}
}
