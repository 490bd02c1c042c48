package openai

import (
	"fmt"

	"pait-backend/internal/specialist"
)

func systemPrompt(role specialist.Role) string {
	perspective := "a general analyst"
	switch role {
	case specialist.RoleTrading:
		perspective = "a quantitative trading analyst assessing strategy soundness and risk claims"
	case specialist.RoleLegal:
		perspective = "a document and compliance analyst assessing verifiability of claims"
	case specialist.RoleMediaForensics:
		perspective = "a media forensics analyst assessing authenticity and manipulation markers"
	case specialist.RoleConcierge:
		perspective = "a generalist reviewer assessing overall clarity and presentation"
	}
	return fmt.Sprintf(`You are %s. Respond with a JSON object only:
{"score": <0..1>, "confidence": <0..1>, "summary": "<one sentence>"}
Score reflects the quality of the submitted material from your perspective;
confidence reflects how much of the material you could actually assess.`, perspective)
}

func userPrompt(ref specialist.ArtifactRef) string {
	return fmt.Sprintf("Assess the uploaded artifact %s (content digest %s). If the reference is unusable, say so with confidence 0.", ref.ID, ref.ContentSHA)
}
