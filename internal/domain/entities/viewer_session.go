package entities

import (
	"fmt"
	"time"
)

type ViewerMode string

const (
	ViewerInline    ViewerMode = "inline"
	ViewerImmersive ViewerMode = "immersive"
)

// Panel geometry of the 3D scene, in metres. The result is shown on a
// 1 x 1.3 plane floating 1.5m ahead at eye height.
const (
	PanelWidth  = 1.0
	PanelHeight = 1.3
)

var PanelPosition = [3]float64{0, 1.5, -1.5}

// ViewerSession is owned by exactly one wizard session and discarded when
// the viewer closes or the wizard restarts.
type ViewerSession struct {
	imageURL string
	mode     ViewerMode
	openedAt time.Time
}

func NewViewerSession(imageURL string) (*ViewerSession, error) {
	if imageURL == "" {
		return nil, fmt.Errorf("viewer needs a result image")
	}
	return &ViewerSession{
		imageURL: imageURL,
		mode:     ViewerInline,
		openedAt: time.Now(),
	}, nil
}

func (v *ViewerSession) ImageURL() string {
	return v.imageURL
}

func (v *ViewerSession) Mode() ViewerMode {
	return v.mode
}

func (v *ViewerSession) OpenedAt() time.Time {
	return v.openedAt
}

func (v *ViewerSession) EnterImmersive() {
	v.mode = ViewerImmersive
}

type ViewerSnapshot struct {
	Mode          ViewerMode `json:"mode"`
	PanelWidth    float64    `json:"panelWidth"`
	PanelHeight   float64    `json:"panelHeight"`
	PanelPosition [3]float64 `json:"panelPosition"`
	OpenedAt      time.Time  `json:"openedAt"`
}

func (v *ViewerSession) snapshot() *ViewerSnapshot {
	return &ViewerSnapshot{
		Mode:          v.mode,
		PanelWidth:    PanelWidth,
		PanelHeight:   PanelHeight,
		PanelPosition: PanelPosition,
		OpenedAt:      v.openedAt,
	}
}
