package valueobjects

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
)

type KeypointName string

// COCO body landmarks, as reported by MoveNet/PoseNet style detectors.
const (
	Nose          KeypointName = "nose"
	LeftEye       KeypointName = "left_eye"
	RightEye      KeypointName = "right_eye"
	LeftEar       KeypointName = "left_ear"
	RightEar      KeypointName = "right_ear"
	LeftShoulder  KeypointName = "left_shoulder"
	RightShoulder KeypointName = "right_shoulder"
	LeftElbow     KeypointName = "left_elbow"
	RightElbow    KeypointName = "right_elbow"
	LeftWrist     KeypointName = "left_wrist"
	RightWrist    KeypointName = "right_wrist"
	LeftHip       KeypointName = "left_hip"
	RightHip      KeypointName = "right_hip"
	LeftKnee      KeypointName = "left_knee"
	RightKnee     KeypointName = "right_knee"
	LeftAnkle     KeypointName = "left_ankle"
	RightAnkle    KeypointName = "right_ankle"
)

var knownKeypoints = map[KeypointName]bool{
	Nose: true, LeftEye: true, RightEye: true, LeftEar: true, RightEar: true,
	LeftShoulder: true, RightShoulder: true, LeftElbow: true, RightElbow: true,
	LeftWrist: true, RightWrist: true, LeftHip: true, RightHip: true,
	LeftKnee: true, RightKnee: true, LeftAnkle: true, RightAnkle: true,
}

func (n KeypointName) Valid() bool {
	return knownKeypoints[n]
}

type Keypoint struct {
	name     KeypointName
	position r2.Point
	score    float64
}

func NewKeypoint(name string, x, y, score float64) (Keypoint, error) {
	kn := KeypointName(name)
	if !kn.Valid() {
		return Keypoint{}, fmt.Errorf("unknown keypoint name %q", name)
	}
	if !finite(x) || !finite(y) {
		return Keypoint{}, fmt.Errorf("keypoint %s: position must be finite", name)
	}
	if !finite(score) || score < 0 || score > 1 {
		return Keypoint{}, fmt.Errorf("keypoint %s: score must be within [0,1], got %v", name, score)
	}
	return Keypoint{name: kn, position: r2.Point{X: x, Y: y}, score: score}, nil
}

func (k Keypoint) Name() KeypointName {
	return k.name
}

func (k Keypoint) Position() r2.Point {
	return k.position
}

func (k Keypoint) Score() float64 {
	return k.score
}

type Pose struct {
	score     float64
	keypoints []Keypoint
}

func NewPose(score float64, keypoints []Keypoint) (Pose, error) {
	if !finite(score) || score < 0 || score > 1 {
		return Pose{}, fmt.Errorf("pose score must be within [0,1], got %v", score)
	}
	kps := make([]Keypoint, len(keypoints))
	copy(kps, keypoints)
	return Pose{score: score, keypoints: kps}, nil
}

func (p Pose) Score() float64 {
	return p.score
}

func (p Pose) Keypoints() []Keypoint {
	return p.keypoints
}

// ScoreOf returns the best confidence reported for name, or 0 when absent.
func (p Pose) ScoreOf(name KeypointName) float64 {
	best := 0.0
	for _, kp := range p.keypoints {
		if kp.name == name && kp.score > best {
			best = kp.score
		}
	}
	return best
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
