package facelock

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"
)

// testPhoto - 상단이 밝고 하단이 어두운 인물 사진 대용 이미지
func testPhoto(t *testing.T, width, height int, seed uint8) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			brightness := uint8(220 - y*120/height)
			img.Set(x, y, color.RGBA{
				R: brightness,
				G: brightness - 30 + seed%10,
				B: brightness - 60,
				A: 255,
			})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test photo: %v", err)
	}
	return buf.Bytes()
}

func newTestManager() *Manager {
	store := NewCacheStore(time.Minute, 10)
	return NewManager(store, NewFreezeGenerator())
}

func TestFreezeForSessionLocksZone(t *testing.T) {
	m := newTestManager()
	photo := testPhoto(t, 200, 300, 1)

	zone, err := m.FreezeForSession("session-a", photo)
	if err != nil {
		t.Fatalf("FreezeForSession failed: %v", err)
	}

	if !zone.Locked {
		t.Error("expected zone to be locked after freeze")
	}
	if zone.SessionID != "session-a" {
		t.Errorf("expected session-a, got %s", zone.SessionID)
	}
	if zone.ContentHash != ContentHash(photo) {
		t.Error("zone content hash does not match source image")
	}
	if len(zone.FrozenBytes) == 0 {
		t.Error("expected frozen image bytes on zone")
	}
	if len(zone.FaceBytes) == 0 {
		t.Error("expected face crop bytes on zone")
	}
	if zone.Confidence <= 0 {
		t.Errorf("expected positive confidence, got %f", zone.Confidence)
	}
}

func TestFreezeForSessionCacheHit(t *testing.T) {
	m := newTestManager()
	photo := testPhoto(t, 200, 300, 1)

	first, err := m.FreezeForSession("session-a", photo)
	if err != nil {
		t.Fatalf("first freeze failed: %v", err)
	}

	second, err := m.FreezeForSession("session-a", photo)
	if err != nil {
		t.Fatalf("second freeze failed: %v", err)
	}

	// 같은 세션 + 같은 이미지는 재계산 없이 같은 zone을 돌려준다
	if first != second {
		t.Error("expected cached zone instance on repeated freeze")
	}
	if !bytes.Equal(first.FrozenBytes, second.FrozenBytes) {
		t.Error("expected identical frozen bytes on cache hit")
	}
}

func TestFreezeForSessionInvalidatesOnNewImage(t *testing.T) {
	m := newTestManager()
	photoA := testPhoto(t, 200, 300, 1)
	photoB := testPhoto(t, 200, 300, 7)

	first, err := m.FreezeForSession("session-a", photoA)
	if err != nil {
		t.Fatalf("first freeze failed: %v", err)
	}
	firstHash := first.ContentHash
	firstCreated := first.CreatedAt

	second, err := m.FreezeForSession("session-a", photoB)
	if err != nil {
		t.Fatalf("second freeze failed: %v", err)
	}

	if second == first {
		t.Fatal("expected a new zone for a changed image")
	}
	if second.ContentHash == firstHash {
		t.Error("expected a different content hash for a changed image")
	}

	// 기존 zone은 수정되지 않는다
	if first.ContentHash != firstHash || !first.CreatedAt.Equal(firstCreated) {
		t.Error("original zone was mutated by invalidation")
	}
}

func TestFreezeForSessionFailsClosedOnBadImage(t *testing.T) {
	m := newTestManager()

	_, err := m.FreezeForSession("session-a", []byte("not an image"))
	if err == nil {
		t.Fatal("expected error for undecodable image")
	}

	// 실패 시 zone이 저장되면 안 된다
	if _, ok := m.Lookup("session-a"); ok {
		t.Error("zone was stored despite freeze failure")
	}
}

func TestClearSessionRemovesZone(t *testing.T) {
	m := newTestManager()
	photo := testPhoto(t, 200, 300, 1)

	if _, err := m.FreezeForSession("session-a", photo); err != nil {
		t.Fatalf("freeze failed: %v", err)
	}

	m.ClearSession("session-a")

	if _, ok := m.Lookup("session-a"); ok {
		t.Error("expected zone to be gone after ClearSession")
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	m := newTestManager()
	photo := testPhoto(t, 200, 300, 1)

	zoneA, err := m.FreezeForSession("session-a", photo)
	if err != nil {
		t.Fatalf("freeze a failed: %v", err)
	}
	zoneB, err := m.FreezeForSession("session-b", photo)
	if err != nil {
		t.Fatalf("freeze b failed: %v", err)
	}

	if zoneA == zoneB {
		t.Error("different sessions must not share a zone instance")
	}
	m.ClearSession("session-a")
	if _, ok := m.Lookup("session-b"); !ok {
		t.Error("clearing session-a must not affect session-b")
	}
}
