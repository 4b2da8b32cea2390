package tryon

import (
	"fmt"
	"log"

	"fitroom-tryon-server/modules/common/config"
	"fitroom-tryon-server/modules/facelock"
	"fitroom-tryon-server/modules/garment"
)

// DecideGate - 후처리(얼굴 복원/의류 합성) 방식을 신뢰도로 결정한다
// 얼굴 영역 신뢰도가 기준 미달이면 잘못된 위치에 복원하는 것보다 중단이 낫다
func DecideGate(zone *facelock.FaceLockZone, garmentResult *garment.Result, thresholds config.Thresholds) *GateDecision {
	decision := &GateDecision{}

	// 1. 얼굴 영역: 세션에 잠긴 영역이 있고 신뢰도 충분할 때만 진행
	if zone == nil {
		decision.FaceAction = ActionAbort
		decision.Reason = "no face lock zone available for this session"
		log.Printf("❌ [Gate] %s", decision.Reason)
		return decision
	}
	if !zone.Locked {
		decision.FaceAction = ActionAbort
		decision.Reason = "face lock zone exists but is not locked"
		log.Printf("❌ [Gate] %s", decision.Reason)
		return decision
	}

	decision.FaceConfidence = zone.Confidence
	if zone.Confidence < thresholds.LockConfidenceMin {
		decision.FaceAction = ActionAbort
		decision.Reason = fmt.Sprintf("face region confidence %.2f below %.2f", zone.Confidence, thresholds.LockConfidenceMin)
		log.Printf("❌ [Gate] %s", decision.Reason)
		return decision
	}
	decision.FaceAction = ActionReplace

	// 2. 의류: 점수가 충분하면 완전 교체, 아니면 블렌딩으로 보수적 합성
	garmentScore := 0.0
	if garmentResult != nil {
		if garmentResult.QualityScored {
			garmentScore = garmentResult.QualityScore
		} else {
			garmentScore = garmentResult.DetectionConfidence
		}
	}
	decision.GarmentScore = garmentScore

	if garmentScore >= thresholds.GarmentBlendMin {
		decision.GarmentAction = ActionReplace
	} else {
		decision.GarmentAction = ActionBlend
	}

	decision.Proceed = true
	log.Printf("✅ [Gate] Proceeding: face=%s (%.2f), garment=%s (%.2f)",
		decision.FaceAction, decision.FaceConfidence, decision.GarmentAction, decision.GarmentScore)
	return decision
}
