package facelock

import (
	"image"
)

// neutralSkinTone - 영역을 읽을 수 없을 때의 문서화된 폴백 상수
// 중간 밝기의 뉴트럴 톤
var neutralSkinTone = SkinToneSignature{
	R: 180, G: 150, B: 130,
	Brightness: 153.33,
	Warmth:     0.89,
}

// SampleSkinTone - 영역의 채널별 평균으로 피부톤 시그니처 계산
// 순수 함수: 같은 입력이면 항상 같은 결과, 부수효과 없음
func SampleSkinTone(img image.Image, rect image.Rectangle) SkinToneSignature {
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return neutralSkinTone
	}

	var sumR, sumG, sumB float64
	var count float64

	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			sumR += float64(r >> 8)
			sumG += float64(g >> 8)
			sumB += float64(b >> 8)
			count++
		}
	}

	if count == 0 {
		return neutralSkinTone
	}

	r := sumR / count
	g := sumG / count
	b := sumB / count

	return SkinToneSignature{
		R:          r,
		G:          g,
		B:          b,
		Brightness: (r + g + b) / 3,
		Warmth:     clamp01((r - b + 64) / 128), // (r-b) 선형 함수, 0~1 클램프
	}
}

// DetectLightingDirection - 얼굴 영역 좌우 밝기 차이로 조명 방향 추정
// 차이가 작으면 정면광으로 간주
func DetectLightingDirection(img image.Image, rect image.Rectangle) LightingDirection {
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() || rect.Dx() < 2 {
		return LightingFront
	}

	mid := rect.Min.X + rect.Dx()/2
	left := SampleSkinTone(img, image.Rect(rect.Min.X, rect.Min.Y, mid, rect.Max.Y))
	right := SampleSkinTone(img, image.Rect(mid, rect.Min.Y, rect.Max.X, rect.Max.Y))

	const directionalGap = 8.0 // 밝기 차이가 이보다 크면 방향광

	switch {
	case left.Brightness-right.Brightness > directionalGap:
		return LightingLeft
	case right.Brightness-left.Brightness > directionalGap:
		return LightingRight
	default:
		return LightingFront
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
