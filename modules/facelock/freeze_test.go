package facelock

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

// timeForTest - 세션 ID 순서대로 생성 시각이 늘어나도록
func timeForTest(id string) time.Time {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return base.Add(time.Duration(id[len(id)-1]-'0') * time.Minute)
}

func TestFreezeIsDeterministic(t *testing.T) {
	gen := NewFreezeGenerator()
	photo := testPhoto(t, 240, 320, 3)

	first, err := gen.Freeze(photo)
	if err != nil {
		t.Fatalf("first freeze failed: %v", err)
	}
	second, err := gen.Freeze(photo)
	if err != nil {
		t.Fatalf("second freeze failed: %v", err)
	}

	if !bytes.Equal(first.FrozenImage, second.FrozenImage) {
		t.Error("freeze output differs between runs for the same input")
	}
	if !bytes.Equal(first.FaceCrop, second.FaceCrop) {
		t.Error("face crop differs between runs for the same input")
	}
	if first.SkinTone != second.SkinTone {
		t.Error("skin tone signature differs between runs")
	}
}

func TestFreezeModifiesOnlyFaceRegion(t *testing.T) {
	gen := NewFreezeGenerator()
	photo := testPhoto(t, 240, 320, 3)

	result, err := gen.Freeze(photo)
	if err != nil {
		t.Fatalf("freeze failed: %v", err)
	}
	if !result.Success {
		t.Fatal("expected freeze success")
	}

	if bytes.Equal(result.FrozenImage, photo) {
		t.Error("frozen image should differ from the source (face region is replaced)")
	}
	if result.Region == nil {
		t.Fatal("expected region in freeze result")
	}
	if result.Region.Expanded.Empty() {
		t.Error("expected non-empty expanded face region")
	}
}

func TestFreezeFailsClosedOnGarbage(t *testing.T) {
	gen := NewFreezeGenerator()

	result, err := gen.Freeze([]byte{0x00, 0x01, 0x02})
	if err == nil {
		t.Fatal("expected error for undecodable input")
	}
	if !errors.Is(err, ErrNoFaceRegion) {
		t.Errorf("expected ErrNoFaceRegion, got %v", err)
	}
	if result.Success {
		t.Error("expected Success=false on decode failure")
	}
	// 원본은 그대로 돌려준다 (변환된 척 하지 않는다)
	if !bytes.Equal(result.FrozenImage, []byte{0x00, 0x01, 0x02}) {
		t.Error("expected source bytes back on failure")
	}
}

func TestFixedFractionLocatorBounds(t *testing.T) {
	locator := NewFixedFractionLocator()

	region, err := locator.Locate(200, 400)
	if err != nil {
		t.Fatalf("locate failed: %v", err)
	}

	if region.Face.Min.X < 0 || region.Face.Min.Y < 0 {
		t.Error("face rect outside image bounds")
	}
	if region.Expanded.Max.X > 200 || region.Expanded.Max.Y > 400 {
		t.Error("expanded rect exceeds image bounds")
	}
	if !region.Face.In(region.Expanded) {
		t.Error("face rect must be inside the expanded rect")
	}
	if region.Confidence <= 0.95 {
		t.Errorf("heuristic locator confidence %f should clear the lock threshold", region.Confidence)
	}

	if _, err := locator.Locate(0, 400); err == nil {
		t.Error("expected error for zero-width image")
	}
}

func TestCacheStoreEvictsOldest(t *testing.T) {
	store := NewCacheStore(0, 2)
	photo := testPhoto(t, 100, 150, 1)
	gen := NewFreezeGenerator()

	for _, id := range []string{"s1", "s2", "s3"} {
		result, err := gen.Freeze(photo)
		if err != nil {
			t.Fatalf("freeze failed: %v", err)
		}
		zone := &FaceLockZone{
			SessionID:   id,
			ContentHash: ContentHash(photo),
			FrozenBytes: result.FrozenImage,
			CreatedAt:   timeForTest(id),
			Locked:      true,
		}
		store.Put(zone)
	}

	if store.Len() != 2 {
		t.Fatalf("expected 2 entries after eviction, got %d", store.Len())
	}
	if _, ok := store.Get("s1"); ok {
		t.Error("oldest session s1 should have been evicted")
	}
	if _, ok := store.Get("s3"); !ok {
		t.Error("newest session s3 should still be present")
	}
}
