package valueobjects

import "fmt"

type Gender string

const (
	Feminino  Gender = "feminino"
	Masculino Gender = "masculino"
)

func ParseGender(s string) (Gender, error) {
	switch g := Gender(s); g {
	case Feminino, Masculino:
		return g, nil
	default:
		return "", fmt.Errorf("unknown gender %q", s)
	}
}

// Step is a wizard screen.
type Step string

const (
	StepIntro   Step = "intro"
	StepGender  Step = "gender"
	StepPhoto   Step = "photo"
	StepCloset  Step = "closet"
	StepConfirm Step = "confirm"
	StepLoading Step = "loading"
	StepResult  Step = "result"
)

type AnalysisStatus string

const (
	AnalysisIdle      AnalysisStatus = "idle"
	AnalysisAnalyzing AnalysisStatus = "analyzing"
	AnalysisError     AnalysisStatus = "error"
)

type NotificationLevel string

const (
	NotifySuccess NotificationLevel = "success"
	NotifyError   NotificationLevel = "error"
)

type Notification struct {
	Level   NotificationLevel `json:"level"`
	Message string            `json:"message"`
}
