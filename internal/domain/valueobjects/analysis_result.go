package valueobjects

// Reason explains why the gate rejected a photo.
type Reason string

const (
	ReasonLightingLow    Reason = Reason(MsgLightingLow)
	ReasonLightingHigh   Reason = Reason(MsgLightingHigh)
	ReasonNoPerson       Reason = Reason(MsgNoPerson)
	ReasonInvalidPose    Reason = Reason(MsgInvalidPose)
	ReasonAnalysisFailed Reason = Reason(MsgAnalysisFailed)
)

func (r Reason) Message(locale Locale) string {
	return Localize(locale, MessageKey(r))
}

type AnalysisResult struct {
	accepted bool
	reason   Reason
}

func Accepted() AnalysisResult {
	return AnalysisResult{accepted: true}
}

func Rejected(reason Reason) AnalysisResult {
	return AnalysisResult{reason: reason}
}

func (a AnalysisResult) IsAccepted() bool {
	return a.accepted
}

// Reason is empty for accepted results.
func (a AnalysisResult) Reason() Reason {
	return a.reason
}
