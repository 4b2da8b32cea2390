package tryon

import (
	"fmt"
	"strings"

	"fitroom-tryon-server/modules/bodyattrs"
	"fitroom-tryon-server/modules/facelock"
)

// BuildVariantPrompt - 변형 하나(조명/포즈 조합)에 대한 생성 프롬프트
// Reference Image 1 = 중립 얼굴 처리된 피사체, Reference Image 2 = 추출된 의류
func BuildVariantPrompt(variant VariantDescriptor, zone *facelock.FaceLockZone, body *bodyattrs.BodyAttributes, retryGuidance string) string {
	var sb strings.Builder

	sb.WriteString("[VIRTUAL TRY-ON PHOTOGRAPHER'S APPROACH]\n")
	sb.WriteString("You are a professional fashion photographer shooting a realistic try-on photo.\n")
	sb.WriteString("ONE PERSON wearing ONE garment - photorealistic, natural, believable.\n\n")

	sb.WriteString("Reference Image 1 (SUBJECT): The person to dress. Keep their body, skin tone, hair and overall appearance EXACTLY as shown\n")
	sb.WriteString("Reference Image 2 (GARMENT): The clothing item. Reproduce its color, pattern, fabric texture, neckline, sleeves and hemline FAITHFULLY\n\n")

	sb.WriteString("Create ONE photorealistic photograph:\n")
	sb.WriteString("• The subject wears the garment naturally, with realistic fabric drape and fit\n")
	sb.WriteString(fmt.Sprintf("• LIGHTING: %s\n", variant.LightingNote))
	sb.WriteString(fmt.Sprintf("• POSE: %s\n", variant.PoseNote))
	sb.WriteString("• ASYMMETRIC natural pose - NEVER a stiff, perfectly symmetric frontal stance\n")
	sb.WriteString("• Visible directional light with soft shadows - NEVER flat shadowless lighting\n")
	sb.WriteString("• Keep the face region untouched and consistent with the reference\n")

	if zone != nil {
		sb.WriteString(fmt.Sprintf("• Match the subject's lighting direction from the reference: light falls from the %s\n", zone.LightingDirection))
	}

	if body != nil {
		sb.WriteString(fmt.Sprintf("\n[BODY PROPORTIONS]\nThe subject has %s shoulders, %s arms, a %s torso, %s build overall (%s weight). %s\nThe garment must fit THESE proportions - do not slim or bulk the body.\n",
			body.ShoulderWidth, body.ArmThickness, body.TorsoShape, body.Build, body.WeightCategory, body.Summary))
	}

	if retryGuidance != "" {
		sb.WriteString("\n[CORRECTIONS FROM PREVIOUS ATTEMPT]\nThe previous attempt had problems. Fix ALL of the following:\n")
		sb.WriteString(retryGuidance)
		sb.WriteString("\n")
	}

	sb.WriteString("\n⚠️ CRITICAL: the output must look like a real photograph of this exact person in this exact garment.\n")

	return sb.String()
}
