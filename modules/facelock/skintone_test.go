package facelock

import (
	"image"
	"image/color"
	"testing"
)

// halfBrightImage - 좌/우 절반 밝기가 다른 테스트 이미지
func halfBrightImage(leftBright, rightBright uint8) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			b := leftBright
			if x >= 50 {
				b = rightBright
			}
			img.Set(x, y, color.RGBA{R: b, G: b, B: b, A: 255})
		}
	}
	return img
}

func TestDetectLightingDirection(t *testing.T) {
	cases := []struct {
		name        string
		left, right uint8
		want        LightingDirection
	}{
		{"bright left half reads as left light", 220, 120, LightingLeft},
		{"bright right half reads as right light", 120, 220, LightingRight},
		{"even halves read as front light", 180, 182, LightingFront},
	}
	for _, tc := range cases {
		got := DetectLightingDirection(halfBrightImage(tc.left, tc.right), image.Rect(0, 0, 100, 100))
		if got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestDetectLightingDirectionDegenerateRegion(t *testing.T) {
	img := halfBrightImage(220, 120)
	if got := DetectLightingDirection(img, image.Rect(0, 0, 1, 100)); got != LightingFront {
		t.Errorf("too-narrow region must read as front, got %s", got)
	}
	if got := DetectLightingDirection(img, image.Rect(500, 500, 600, 600)); got != LightingFront {
		t.Errorf("out-of-bounds region must read as front, got %s", got)
	}
}

func TestSampleSkinToneFallsBackOnEmptyRegion(t *testing.T) {
	img := halfBrightImage(180, 180)
	got := SampleSkinTone(img, image.Rect(500, 500, 600, 600))
	if got != neutralSkinTone {
		t.Errorf("empty region must return the neutral fallback, got %+v", got)
	}
}
