package entities

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"vesteja/internal/domain/valueobjects"
)

type SessionID string

func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

// WizardSession holds the state of one fitting-room walk-through. All
// mutations go through the transition methods below, each guarded by the
// session's own mutex.
type WizardSession struct {
	mu sync.Mutex

	id     SessionID
	locale valueobjects.Locale
	step   valueobjects.Step

	gender         valueobjects.Gender
	activeCategory string
	photo          *valueobjects.ImageData
	photoURL       string
	garment        *Garment
	resultURL      string
	archiveURL     string

	analysis  valueobjects.AnalysisStatus
	rejection valueobjects.Reason

	progress      string
	notifications []valueobjects.Notification
	viewer        *ViewerSession

	createdAt time.Time
	updatedAt time.Time
}

func NewWizardSession(id SessionID, locale valueobjects.Locale) *WizardSession {
	now := time.Now()
	return &WizardSession{
		id:        id,
		locale:    locale,
		step:      valueobjects.StepIntro,
		analysis:  valueobjects.AnalysisIdle,
		createdAt: now,
		updatedAt: now,
	}
}

func (s *WizardSession) ID() SessionID {
	return s.id
}

func (s *WizardSession) Locale() valueobjects.Locale {
	return s.locale
}

func (s *WizardSession) Step() valueobjects.Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

func (s *WizardSession) Gender() valueobjects.Gender {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gender
}

func (s *WizardSession) ActiveCategory() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeCategory
}

func (s *WizardSession) Photo() *valueobjects.ImageData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.photo
}

func (s *WizardSession) Garment() *Garment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.garment
}

func (s *WizardSession) ResultURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resultURL
}

func (s *WizardSession) Viewer() *ViewerSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewer
}

func (s *WizardSession) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

func (s *WizardSession) touch() {
	s.updatedAt = time.Now()
}

func (s *WizardSession) expect(step valueobjects.Step) error {
	if s.step != step {
		return fmt.Errorf("%w: expected step %s, current step %s", ErrInvalidTransition, step, s.step)
	}
	return nil
}

func (s *WizardSession) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect(valueobjects.StepIntro); err != nil {
		return err
	}
	s.step = valueobjects.StepGender
	s.touch()
	return nil
}

// PickGender records the gender and opens the closet on firstCategory, the
// first catalog category offered to that gender.
func (s *WizardSession) PickGender(gender valueobjects.Gender, firstCategory string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect(valueobjects.StepGender); err != nil {
		return err
	}
	s.gender = gender
	s.activeCategory = firstCategory
	s.step = valueobjects.StepPhoto
	s.touch()
	return nil
}

// BeginAnalysis moves the gate from idle to analyzing. Only one analysis may
// run at a time and a rejected photo must be dismissed first.
func (s *WizardSession) BeginAnalysis() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect(valueobjects.StepPhoto); err != nil {
		return err
	}
	switch s.analysis {
	case valueobjects.AnalysisAnalyzing:
		return ErrAnalysisInProgress
	case valueobjects.AnalysisError:
		return ErrAnalysisRejected
	}
	s.analysis = valueobjects.AnalysisAnalyzing
	s.rejection = ""
	s.touch()
	return nil
}

func (s *WizardSession) AcceptPhoto(photo *valueobjects.ImageData, previewURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != valueobjects.StepPhoto || s.analysis != valueobjects.AnalysisAnalyzing {
		return fmt.Errorf("%w: no analysis running", ErrInvalidTransition)
	}
	s.photo = photo
	s.photoURL = previewURL
	s.analysis = valueobjects.AnalysisIdle
	s.step = valueobjects.StepCloset
	s.touch()
	return nil
}

func (s *WizardSession) RejectPhoto(reason valueobjects.Reason) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != valueobjects.StepPhoto || s.analysis != valueobjects.AnalysisAnalyzing {
		return fmt.Errorf("%w: no analysis running", ErrInvalidTransition)
	}
	s.analysis = valueobjects.AnalysisError
	s.rejection = reason
	s.touch()
	return nil
}

func (s *WizardSession) DismissAnalysisError() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.analysis != valueobjects.AnalysisError {
		return fmt.Errorf("%w: no rejected photo to dismiss", ErrInvalidTransition)
	}
	s.analysis = valueobjects.AnalysisIdle
	s.rejection = ""
	s.touch()
	return nil
}

// SelectCategory switches the closet filter. The caller checks the category
// against the catalog.
func (s *WizardSession) SelectCategory(category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect(valueobjects.StepCloset); err != nil {
		return err
	}
	s.activeCategory = category
	s.touch()
	return nil
}

func (s *WizardSession) PickGarment(g *Garment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect(valueobjects.StepCloset); err != nil {
		return err
	}
	if g == nil || !g.Matches(s.gender, s.activeCategory) {
		return ErrGarmentUnavailable
	}
	s.garment = g
	s.step = valueobjects.StepConfirm
	s.touch()
	return nil
}

func (s *WizardSession) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect(valueobjects.StepConfirm); err != nil {
		return err
	}
	s.step = valueobjects.StepCloset
	s.touch()
	return nil
}

// BeginTryOn leaves confirm for loading and hands back the inputs of the
// call. With a photo or garment missing the session stays on confirm and an
// error notification is queued.
func (s *WizardSession) BeginTryOn() (*valueobjects.ImageData, *Garment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect(valueobjects.StepConfirm); err != nil {
		return nil, nil, err
	}
	if s.photo == nil || s.garment == nil {
		s.notify(valueobjects.NotifyError, valueobjects.Localize(s.locale, valueobjects.MsgMissingSelection))
		return nil, nil, ErrMissingSelection
	}
	s.step = valueobjects.StepLoading
	s.touch()
	return s.photo, s.garment, nil
}

// SetProgress updates the loading message; it is a no-op once the call has
// settled.
func (s *WizardSession) SetProgress(message string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != valueobjects.StepLoading {
		return false
	}
	s.progress = message
	return true
}

func (s *WizardSession) CompleteTryOn(resultURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect(valueobjects.StepLoading); err != nil {
		return err
	}
	s.resultURL = resultURL
	s.progress = ""
	s.step = valueobjects.StepResult
	s.notify(valueobjects.NotifySuccess, valueobjects.Localize(s.locale, valueobjects.MsgTryOnSuccess))
	s.touch()
	return nil
}

// FailTryOn returns to confirm with photo and garment untouched.
func (s *WizardSession) FailTryOn(message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect(valueobjects.StepLoading); err != nil {
		return err
	}
	s.progress = ""
	s.step = valueobjects.StepConfirm
	s.notify(valueobjects.NotifyError, message)
	s.touch()
	return nil
}

func (s *WizardSession) SetArchiveURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archiveURL = url
}

// Restart wipes everything back to the intro screen.
func (s *WizardSession) Restart() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect(valueobjects.StepResult); err != nil {
		return err
	}
	s.step = valueobjects.StepIntro
	s.gender = ""
	s.activeCategory = ""
	s.photo = nil
	s.photoURL = ""
	s.garment = nil
	s.resultURL = ""
	s.archiveURL = ""
	s.analysis = valueobjects.AnalysisIdle
	s.rejection = ""
	s.progress = ""
	s.notifications = nil
	s.viewer = nil
	s.touch()
	return nil
}

func (s *WizardSession) OpenViewer() (*ViewerSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect(valueobjects.StepResult); err != nil {
		return nil, err
	}
	if s.viewer != nil {
		return s.viewer, nil
	}
	viewer, err := NewViewerSession(s.resultURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoResult, err)
	}
	s.viewer = viewer
	s.touch()
	return viewer, nil
}

func (s *WizardSession) EnterImmersive() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.viewer == nil {
		return ErrViewerClosed
	}
	s.viewer.EnterImmersive()
	s.touch()
	return nil
}

func (s *WizardSession) CloseViewer() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.viewer == nil {
		return ErrViewerClosed
	}
	s.viewer = nil
	s.touch()
	return nil
}

func (s *WizardSession) Notify(level valueobjects.NotificationLevel, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notify(level, message)
}

func (s *WizardSession) notify(level valueobjects.NotificationLevel, message string) {
	s.notifications = append(s.notifications, valueobjects.Notification{Level: level, Message: message})
}

// DrainNotifications returns pending toasts and forgets them.
func (s *WizardSession) DrainNotifications() []valueobjects.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.notifications
	s.notifications = nil
	return out
}

type AnalysisSnapshot struct {
	Status  valueobjects.AnalysisStatus `json:"status"`
	Reason  valueobjects.Reason         `json:"reason,omitempty"`
	Message string                      `json:"message,omitempty"`
}

type WizardSnapshot struct {
	ID             SessionID                   `json:"id"`
	Locale         valueobjects.Locale         `json:"locale"`
	Step           valueobjects.Step           `json:"step"`
	Gender         valueobjects.Gender         `json:"gender,omitempty"`
	ActiveCategory string                      `json:"activeCategory,omitempty"`
	PhotoURL       string                      `json:"photoUrl,omitempty"`
	GarmentID      GarmentID                   `json:"garmentId,omitempty"`
	Analysis       AnalysisSnapshot            `json:"analysis"`
	Progress       string                      `json:"progress,omitempty"`
	HasResult      bool                        `json:"hasResult"`
	ArchiveURL     string                      `json:"archiveUrl,omitempty"`
	Viewer         *ViewerSnapshot             `json:"viewer,omitempty"`
	Notifications  []valueobjects.Notification `json:"notifications,omitempty"`
	UpdatedAt      time.Time                   `json:"updatedAt"`
}

// Snapshot copies the current state without draining notifications.
func (s *WizardSession) Snapshot() WizardSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := WizardSnapshot{
		ID:             s.id,
		Locale:         s.locale,
		Step:           s.step,
		Gender:         s.gender,
		ActiveCategory: s.activeCategory,
		PhotoURL:       s.photoURL,
		Analysis:       AnalysisSnapshot{Status: s.analysis, Reason: s.rejection},
		Progress:       s.progress,
		HasResult:      s.resultURL != "",
		ArchiveURL:     s.archiveURL,
		UpdatedAt:      s.updatedAt,
	}
	if s.rejection != "" {
		snap.Analysis.Message = s.rejection.Message(s.locale)
	}
	if s.garment != nil {
		snap.GarmentID = s.garment.ID()
	}
	if s.viewer != nil {
		snap.Viewer = s.viewer.snapshot()
	}
	if len(s.notifications) > 0 {
		snap.Notifications = append([]valueobjects.Notification(nil), s.notifications...)
	}
	return snap
}
