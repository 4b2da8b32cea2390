package facelock

import (
	"errors"
	"image"
)

// ErrNoFaceRegion - 얼굴 영역 산출 불가 (freeze 단계에서는 fail-closed)
var ErrNoFaceRegion = errors.New("no readable face region")

// Region - 픽셀 단위 얼굴 영역 + 마진 확장 결과
type Region struct {
	Face       image.Rectangle // locator가 지목한 얼굴 사각형
	Expanded   image.Rectangle // 마진 적용 후 (freeze가 덮는 범위)
	Bounds     Bounds          // Expanded의 정규화 좌표
	Confidence float64
}

// Margins - 영역 확장 마진 (이미지 크기 대비 비율)
// 머리카락 때문에 위쪽 마진이 아래쪽보다 크다
type Margins struct {
	Top    float64
	Bottom float64
	Left   float64
	Right  float64
}

// DefaultMargins - 기본 확장 마진
func DefaultMargins() Margins {
	return Margins{Top: 0.08, Bottom: 0.03, Left: 0.04, Right: 0.04}
}

// FaceLocator - 얼굴 위치 산출 seam
// 기본 구현은 고정 비율 사각형이지만, 실제 검출기를 주입해도
// freeze/store 로직은 그대로 동작해야 한다
type FaceLocator interface {
	Locate(width, height int) (*Region, error)
}

// FixedFractionLocator - 이미지의 고정 비율 영역을 얼굴로 간주하는 휴리스틱
// 인물 사진의 일반적인 프레이밍(상단 중앙)을 가정한다
type FixedFractionLocator struct {
	Frame      Bounds // 얼굴로 간주할 비율 영역
	Margins    Margins
	Confidence float64
}

// NewFixedFractionLocator - 기본 프레이밍의 locator 생성
func NewFixedFractionLocator() *FixedFractionLocator {
	return &FixedFractionLocator{
		Frame:      Bounds{Top: 0.12, Bottom: 0.46, Left: 0.30, Right: 0.70},
		Margins:    DefaultMargins(),
		Confidence: 0.98,
	}
}

// Locate - 고정 비율 사각형 산출 + 마진 확장
// 같은 (width, height, Frame, Margins)에 대해 항상 같은 결과 (결정적)
func (l *FixedFractionLocator) Locate(width, height int) (*Region, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrNoFaceRegion
	}

	face := image.Rect(
		int(float64(width)*l.Frame.Left),
		int(float64(height)*l.Frame.Top),
		int(float64(width)*l.Frame.Right),
		int(float64(height)*l.Frame.Bottom),
	)

	expanded := image.Rect(
		face.Min.X-int(float64(width)*l.Margins.Left),
		face.Min.Y-int(float64(height)*l.Margins.Top),
		face.Max.X+int(float64(width)*l.Margins.Right),
		face.Max.Y+int(float64(height)*l.Margins.Bottom),
	)
	expanded = expanded.Intersect(image.Rect(0, 0, width, height))

	if face.Empty() || expanded.Empty() {
		return nil, ErrNoFaceRegion
	}

	return &Region{
		Face:     face,
		Expanded: expanded,
		Bounds: Bounds{
			Top:    float64(expanded.Min.Y) / float64(height),
			Bottom: float64(expanded.Max.Y) / float64(height),
			Left:   float64(expanded.Min.X) / float64(width),
			Right:  float64(expanded.Max.X) / float64(width),
		},
		Confidence: l.Confidence,
	}, nil
}
