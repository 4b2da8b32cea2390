package facelock

import (
	"crypto/sha256"
	"encoding/hex"
	"log"
	"time"
)

// Manager - 세션 스토어와 freeze 생성기를 묶는 진입점
// "세션 X에 이미지 Y로 얼굴 고정" 연산을 제공한다
type Manager struct {
	store SessionStore
	gen   *FreezeGenerator
}

// NewManager - Manager 생성
func NewManager(store SessionStore, gen *FreezeGenerator) *Manager {
	return &Manager{store: store, gen: gen}
}

// ContentHash - 캐시 무효화 기준이 되는 원본 이미지 해시
func ContentHash(image []byte) string {
	sum := sha256.Sum256(image)
	return hex.EncodeToString(sum[:])
}

// FreezeForSession - 세션의 얼굴 고정 수행
// 같은 세션 + 같은 이미지면 캐시된 zone을 재계산 없이 반환하고,
// 이미지가 바뀌면 기존 엔트리를 수정하지 않고 새 엔트리를 만든다
func (m *Manager) FreezeForSession(sessionID string, image []byte) (*FaceLockZone, error) {
	hash := ContentHash(image)

	if zone, ok := m.store.Get(sessionID); ok {
		if zone.ContentHash == hash {
			log.Printf("✅ [FaceLock] Cache hit for session %s (hash %s...)", sessionID, hash[:12])
			return zone, nil
		}
		log.Printf("🔄 [FaceLock] Source image changed for session %s, rebuilding zone", sessionID)
	}

	result, err := m.gen.Freeze(image)
	if err != nil {
		// freeze 실패는 항상 abort 조건 (열화 통과 아님)
		return nil, err
	}

	zone := &FaceLockZone{
		SessionID:         sessionID,
		ContentHash:       hash,
		Bounds:            result.Region.Bounds,
		FaceBytes:         result.FaceCrop,
		ContextBytes:      result.ContextCrop,
		FrozenBytes:       result.FrozenImage,
		SkinTone:          result.SkinTone,
		LightingDirection: result.Lighting,
		Confidence:        result.Region.Confidence,
		CreatedAt:         time.Now(),
		Locked:            true,
	}

	m.store.Put(zone)
	log.Printf("🔒 [FaceLock] Zone locked for session %s (confidence %.2f)", sessionID, zone.Confidence)

	return zone, nil
}

// Lookup - freeze 없이 세션의 zone 조회 (confidence gate용)
func (m *Manager) Lookup(sessionID string) (*FaceLockZone, bool) {
	return m.store.Get(sessionID)
}

// ClearSession - 세션의 zone 명시적 제거
func (m *Manager) ClearSession(sessionID string) {
	m.store.Clear(sessionID)
	log.Printf("🧹 [FaceLock] Session cleared: %s", sessionID)
}
