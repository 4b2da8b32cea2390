package facelock

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log"
	"math"

	"fitroom-tryon-server/modules/common/imageutil"
)

// FreezeResult - freeze 변환 결과
// Success가 false면 FrozenImage는 원본 그대로이며, 호출자는 이를
// 생성 중단 조건으로 취급해야 한다 (fail-closed)
type FreezeResult struct {
	FrozenImage []byte
	FaceCrop    []byte // 원본 얼굴 영역 (재주입용)
	ContextCrop []byte // 프레이밍 참고용 와이드 crop
	Region      *Region
	SkinTone    SkinToneSignature
	Lighting    LightingDirection
	Success     bool
}

// FreezeGenerator - 얼굴 영역을 뉴트럴 플레이스홀더로 덮는 변환기
// 같은 (원본, 마진 설정)에 대해 결과가 결정적이어야 한다
type FreezeGenerator struct {
	locator FaceLocator
	feather float64 // 타원 마스크 페더 폭 (반지름 대비 비율)
}

// NewFreezeGenerator - 기본 locator/페더의 생성기
func NewFreezeGenerator() *FreezeGenerator {
	return NewFreezeGeneratorWith(NewFixedFractionLocator(), 0.22)
}

// NewFreezeGeneratorWith - locator/페더 주입 생성
func NewFreezeGeneratorWith(locator FaceLocator, feather float64) *FreezeGenerator {
	if feather <= 0 || feather >= 1 {
		feather = 0.22
	}
	return &FreezeGenerator{locator: locator, feather: feather}
}

// Freeze - 원본에서 얼굴을 추출하고 뉴트럴 그라디언트로 덮은 이미지 생성
func (g *FreezeGenerator) Freeze(source []byte) (*FreezeResult, error) {
	img, format, err := imageutil.Decode(source)
	if err != nil {
		// 디코딩 불가 - 원본을 건드리지 않고 실패 반환
		log.Printf("❌ [Freeze] Failed to decode source image: %v", err)
		return &FreezeResult{FrozenImage: source, Success: false}, fmt.Errorf("%w: %v", ErrNoFaceRegion, err)
	}

	bounds := img.Bounds()
	region, err := g.locator.Locate(bounds.Dx(), bounds.Dy())
	if err != nil {
		log.Printf("❌ [Freeze] Face locator failed: %v", err)
		return &FreezeResult{FrozenImage: source, Success: false}, err
	}

	// 원본 얼굴 영역 보존 (재주입용, 확장 영역 기준)
	faceCrop, err := imageutil.EncodePNG(imageutil.Crop(img, region.Expanded))
	if err != nil {
		return &FreezeResult{FrozenImage: source, Success: false}, err
	}

	// 프레이밍 참고용 컨텍스트 crop (확장 영역의 절반만큼 더 넓게)
	contextRect := expandRect(region.Expanded, bounds, 0.5)
	contextCrop, err := imageutil.EncodePNG(imageutil.Crop(img, contextRect))
	if err != nil {
		return &FreezeResult{FrozenImage: source, Success: false}, err
	}

	// 피부톤은 locator가 지목한 내부 얼굴 사각형에서 샘플링
	tone := SampleSkinTone(img, region.Face)
	lighting := DetectLightingDirection(img, region.Face)

	frozen := g.composite(img, region.Expanded, tone)
	frozenBytes, err := imageutil.EncodePNG(frozen)
	if err != nil {
		return &FreezeResult{FrozenImage: source, Success: false}, err
	}

	log.Printf("✅ [Freeze] Face region frozen (%s %dx%d, region %v, lighting %s)",
		format, bounds.Dx(), bounds.Dy(), region.Expanded, lighting)

	return &FreezeResult{
		FrozenImage: frozenBytes,
		FaceCrop:    faceCrop,
		ContextCrop: contextCrop,
		Region:      region,
		SkinTone:    tone,
		Lighting:    lighting,
		Success:     true,
	}, nil
}

// composite - 피부톤 그라디언트 + 페더 타원 마스크를 원본 위에 합성
func (g *FreezeGenerator) composite(src image.Image, rect image.Rectangle, tone SkinToneSignature) *image.RGBA {
	out := image.NewRGBA(src.Bounds())
	draw.Draw(out, out.Bounds(), src, src.Bounds().Min, draw.Src)

	w := rect.Dx()
	h := rect.Dy()
	if w <= 0 || h <= 0 {
		return out
	}

	cx := float64(w) / 2
	cy := float64(h) / 2

	for y := 0; y < h; y++ {
		// 세로 그라디언트: 위가 밝고 아래가 어두움
		t := float64(y) / float64(h)
		lum := 1.15 - 0.30*t

		// 웜톤만큼 붉은 쪽으로, 쿨톤만큼 푸른 쪽으로 치우침
		gr := clamp255(tone.R * lum * (0.95 + 0.10*tone.Warmth))
		gg := clamp255(tone.G * lum)
		gb := clamp255(tone.B * lum * (1.05 - 0.10*tone.Warmth))

		for x := 0; x < w; x++ {
			alpha := g.maskAlpha(float64(x), float64(y), cx, cy)
			if alpha <= 0 {
				continue
			}

			px := rect.Min.X + x
			py := rect.Min.Y + y
			sr, sg, sb, _ := src.At(px, py).RGBA()

			out.SetRGBA(px, py, blend(
				float64(sr>>8), float64(sg>>8), float64(sb>>8),
				gr, gg, gb, alpha))
		}
	}

	return out
}

// maskAlpha - 페더가 적용된 타원 마스크의 알파값 (0~1)
// 타원 내부는 1, 페더 밴드에서 선형으로 0까지 떨어진다
func (g *FreezeGenerator) maskAlpha(x, y, cx, cy float64) float64 {
	dx := (x - cx) / cx
	dy := (y - cy) / cy
	d := math.Sqrt(dx*dx + dy*dy)

	inner := 1 - g.feather
	switch {
	case d <= inner:
		return 1
	case d >= 1:
		return 0
	default:
		return (1 - d) / g.feather
	}
}

// expandRect - 사각형을 비율만큼 확장하고 경계로 클램프
func expandRect(rect, limit image.Rectangle, ratio float64) image.Rectangle {
	dx := int(float64(rect.Dx()) * ratio / 2)
	dy := int(float64(rect.Dy()) * ratio / 2)
	return image.Rect(rect.Min.X-dx, rect.Min.Y-dy, rect.Max.X+dx, rect.Max.Y+dy).Intersect(limit)
}

func clamp255(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

func blend(sr, sg, sb, gr, gg, gb, alpha float64) color.RGBA {
	return color.RGBA{
		R: uint8(gr*alpha + sr*(1-alpha)),
		G: uint8(gg*alpha + sg*(1-alpha)),
		B: uint8(gb*alpha + sb*(1-alpha)),
		A: 255,
	}
}
