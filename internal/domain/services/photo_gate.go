package services

import (
	"vesteja/internal/domain/valueobjects"
)

// GateThresholds are the photo acceptance limits. Brightness is on the 0-255
// scale; a photo is accepted only when its mean lies strictly between
// MinBrightness and MaxBrightness. Keypoint scores must be strictly greater
// than their threshold.
type GateThresholds struct {
	MinBrightness float64
	MaxBrightness float64
	NoseScore     float64
	HipScore      float64
	AnkleScore    float64
}

func DefaultGateThresholds() GateThresholds {
	return GateThresholds{
		MinBrightness: 60,
		MaxBrightness: 195,
		NoseScore:     0.5,
		HipScore:      0.3,
		AnkleScore:    0.4,
	}
}

// PhotoGate holds the decision rules of the acceptance gate. It does no I/O;
// the caller measures brightness and runs pose estimation.
type PhotoGate struct {
	thresholds GateThresholds
}

func NewPhotoGate(thresholds GateThresholds) *PhotoGate {
	return &PhotoGate{thresholds: thresholds}
}

func (g *PhotoGate) Thresholds() GateThresholds {
	return g.thresholds
}

func (g *PhotoGate) CheckLighting(meanBrightness float64) valueobjects.AnalysisResult {
	switch {
	case meanBrightness <= g.thresholds.MinBrightness:
		return valueobjects.Rejected(valueobjects.ReasonLightingLow)
	case meanBrightness >= g.thresholds.MaxBrightness:
		return valueobjects.Rejected(valueobjects.ReasonLightingHigh)
	default:
		return valueobjects.Accepted()
	}
}

// CheckPoses applies the framing rule to the best pose: a confident nose,
// plus a confident hip or a confident ankle.
func (g *PhotoGate) CheckPoses(poses []valueobjects.Pose) valueobjects.AnalysisResult {
	pose, ok := SelectPose(poses)
	if !ok {
		return valueobjects.Rejected(valueobjects.ReasonNoPerson)
	}

	t := g.thresholds
	hasHead := pose.ScoreOf(valueobjects.Nose) > t.NoseScore
	hasHip := pose.ScoreOf(valueobjects.LeftHip) > t.HipScore || pose.ScoreOf(valueobjects.RightHip) > t.HipScore
	hasAnkle := pose.ScoreOf(valueobjects.LeftAnkle) > t.AnkleScore || pose.ScoreOf(valueobjects.RightAnkle) > t.AnkleScore

	if !hasHead || !(hasHip || hasAnkle) {
		return valueobjects.Rejected(valueobjects.ReasonInvalidPose)
	}
	return valueobjects.Accepted()
}

// Decide runs lighting then pose rules. It is the whole gate for callers that
// already have both measurements.
func (g *PhotoGate) Decide(meanBrightness float64, poses []valueobjects.Pose) valueobjects.AnalysisResult {
	if verdict := g.CheckLighting(meanBrightness); !verdict.IsAccepted() {
		return verdict
	}
	return g.CheckPoses(poses)
}

// SelectPose returns the highest scoring pose; ties keep the earlier one.
func SelectPose(poses []valueobjects.Pose) (valueobjects.Pose, bool) {
	if len(poses) == 0 {
		return valueobjects.Pose{}, false
	}
	best := poses[0]
	for _, p := range poses[1:] {
		if p.Score() > best.Score() {
			best = p
		}
	}
	return best, true
}
