package facelock

import "time"

// LightingDirection - 얼굴 영역 밝기에서 추정한 조명 방향
// 좌우 밝기 비교만으로는 역광을 구분할 수 없어 left/right/front만 낸다
type LightingDirection string

const (
	LightingLeft  LightingDirection = "left"
	LightingRight LightingDirection = "right"
	LightingFront LightingDirection = "front"
)

// Bounds - 이미지 크기 대비 정규화된 영역 (0~1)
type Bounds struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
}

// SkinToneSignature - 영역의 대표 색/밝기/웜톤 시그니처
// 호출을 벗어나 저장하지 않는 파생 값
type SkinToneSignature struct {
	R          float64 `json:"r"`
	G          float64 `json:"g"`
	B          float64 `json:"b"`
	Brightness float64 `json:"brightness"`
	Warmth     float64 `json:"warmth"`
}

// FaceLockZone - 세션별 identity 보존 레코드
// Locked가 되면 FaceBytes/Bounds는 엔트리 수명 동안 절대 변경되지 않는다
// 다른 해시의 원본이 들어오면 기존 엔트리를 수정하지 않고 새 엔트리로 교체한다
type FaceLockZone struct {
	SessionID         string
	ContentHash       string // 원본 이미지 해시 (캐시 무효화 기준)
	Bounds            Bounds
	FaceBytes         []byte // 원본 얼굴 영역 crop (재주입용, 불변)
	ContextBytes      []byte // 프레이밍 참고용 와이드 crop
	FrozenBytes       []byte // freeze 합성 결과 (캐시 히트 시 재계산 방지)
	SkinTone          SkinToneSignature
	LightingDirection LightingDirection
	Confidence        float64
	CreatedAt         time.Time
	Locked            bool
}
