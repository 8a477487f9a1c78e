package entities

import (
	"errors"
	"testing"

	"vesteja/internal/domain/valueobjects"
)

// walkToConfirm drives a fresh session up to the confirm step.
func walkToConfirm(t *testing.T) (*WizardSession, *Garment) {
	t.Helper()
	s := NewWizardSession(NewSessionID(), valueobjects.LocalePTBR)
	garment := mustGarment(t, 7, "Vestidos", "feminino")

	steps := []func() error{
		s.Start,
		func() error { return s.PickGender(valueobjects.Feminino, "Vestidos") },
		s.BeginAnalysis,
		func() error { return s.AcceptPhoto(createTestImageData(t), "/photo") },
		func() error { return s.PickGarment(garment) },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	if s.Step() != valueobjects.StepConfirm {
		t.Fatalf("expected confirm, got %s", s.Step())
	}
	return s, garment
}

func TestWizardSession_HappyPath(t *testing.T) {
	s, garment := walkToConfirm(t)

	photo, picked, err := s.BeginTryOn()
	if err != nil {
		t.Fatalf("BeginTryOn() error = %v", err)
	}
	if photo == nil || picked != garment {
		t.Fatalf("BeginTryOn() returned wrong inputs")
	}
	if s.Step() != valueobjects.StepLoading {
		t.Fatalf("expected loading, got %s", s.Step())
	}

	if !s.SetProgress("working") {
		t.Errorf("SetProgress() should apply while loading")
	}
	if err := s.CompleteTryOn("data:image/png;base64,AAAA"); err != nil {
		t.Fatalf("CompleteTryOn() error = %v", err)
	}
	if s.SetProgress("late") {
		t.Errorf("SetProgress() after settlement should be ignored")
	}

	snap := s.Snapshot()
	if snap.Step != valueobjects.StepResult || !snap.HasResult || snap.Progress != "" {
		t.Errorf("unexpected snapshot after completion: %+v", snap)
	}

	notes := s.DrainNotifications()
	if len(notes) != 1 || notes[0].Level != valueobjects.NotifySuccess || notes[0].Message != "Look gerado com sucesso!" {
		t.Errorf("unexpected notifications: %+v", notes)
	}
	if len(s.DrainNotifications()) != 0 {
		t.Errorf("notifications should be drained")
	}
}

func TestWizardSession_FailureKeepsSelections(t *testing.T) {
	s, garment := walkToConfirm(t)
	photo := s.Photo()

	if _, _, err := s.BeginTryOn(); err != nil {
		t.Fatalf("BeginTryOn() error = %v", err)
	}
	if err := s.FailTryOn("Ocorreu um erro no servidor."); err != nil {
		t.Fatalf("FailTryOn() error = %v", err)
	}

	if s.Step() != valueobjects.StepConfirm {
		t.Errorf("expected confirm after failure, got %s", s.Step())
	}
	if s.Photo() != photo || s.Garment() != garment {
		t.Errorf("selections must survive a failed try-on")
	}
	notes := s.DrainNotifications()
	if len(notes) != 1 || notes[0].Level != valueobjects.NotifyError {
		t.Errorf("expected one error notification, got %+v", notes)
	}

	// A retry is possible straight away.
	if _, _, err := s.BeginTryOn(); err != nil {
		t.Errorf("retry BeginTryOn() error = %v", err)
	}
}

func TestWizardSession_SecondTryOnRejected(t *testing.T) {
	s, _ := walkToConfirm(t)
	if _, _, err := s.BeginTryOn(); err != nil {
		t.Fatalf("BeginTryOn() error = %v", err)
	}
	if _, _, err := s.BeginTryOn(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second BeginTryOn() error = %v, want ErrInvalidTransition", err)
	}
}

func TestWizardSession_GarmentMustMatchFilter(t *testing.T) {
	s := NewWizardSession(NewSessionID(), valueobjects.LocalePTBR)
	_ = s.Start()
	_ = s.PickGender(valueobjects.Feminino, "Vestidos")
	_ = s.BeginAnalysis()
	_ = s.AcceptPhoto(createTestImageData(t), "/photo")

	menOnly := mustGarment(t, 1, "Vestidos", "masculino")
	if err := s.PickGarment(menOnly); !errors.Is(err, ErrGarmentUnavailable) {
		t.Errorf("PickGarment(other gender) error = %v", err)
	}
	otherCategory := mustGarment(t, 2, "Calças", "feminino")
	if err := s.PickGarment(otherCategory); !errors.Is(err, ErrGarmentUnavailable) {
		t.Errorf("PickGarment(other category) error = %v", err)
	}
	if s.Step() != valueobjects.StepCloset {
		t.Errorf("rejected picks must not leave the closet")
	}
}

func TestWizardSession_AnalysisStateMachine(t *testing.T) {
	s := NewWizardSession(NewSessionID(), valueobjects.LocaleEN)
	_ = s.Start()
	_ = s.PickGender(valueobjects.Masculino, "Camisetas")

	if err := s.BeginAnalysis(); err != nil {
		t.Fatalf("BeginAnalysis() error = %v", err)
	}
	if err := s.BeginAnalysis(); !errors.Is(err, ErrAnalysisInProgress) {
		t.Errorf("concurrent BeginAnalysis() error = %v", err)
	}
	if err := s.RejectPhoto(valueobjects.ReasonLightingLow); err != nil {
		t.Fatalf("RejectPhoto() error = %v", err)
	}

	snap := s.Snapshot()
	if snap.Analysis.Status != valueobjects.AnalysisError || snap.Analysis.Reason != valueobjects.ReasonLightingLow {
		t.Errorf("unexpected analysis snapshot: %+v", snap.Analysis)
	}
	if snap.Analysis.Message != "Lighting is too low. Please find a brighter spot." {
		t.Errorf("reason message not localized: %q", snap.Analysis.Message)
	}

	if err := s.BeginAnalysis(); !errors.Is(err, ErrAnalysisRejected) {
		t.Errorf("BeginAnalysis() from error = %v", err)
	}
	if err := s.DismissAnalysisError(); err != nil {
		t.Fatalf("DismissAnalysisError() error = %v", err)
	}
	if err := s.BeginAnalysis(); err != nil {
		t.Errorf("BeginAnalysis() after dismiss error = %v", err)
	}
	if s.Step() != valueobjects.StepPhoto {
		t.Errorf("rejection must keep the photo step, got %s", s.Step())
	}
}

func TestWizardSession_RestartResets(t *testing.T) {
	s, _ := walkToConfirm(t)
	_, _, _ = s.BeginTryOn()
	_ = s.CompleteTryOn("https://cdn.example/result.png")
	if _, err := s.OpenViewer(); err != nil {
		t.Fatalf("OpenViewer() error = %v", err)
	}

	if err := s.Restart(); err != nil {
		t.Fatalf("Restart() error = %v", err)
	}

	fresh := NewWizardSession(s.ID(), s.Locale()).Snapshot()
	got := s.Snapshot()
	if got.Step != fresh.Step || got.Gender != fresh.Gender || got.ActiveCategory != fresh.ActiveCategory ||
		got.PhotoURL != fresh.PhotoURL || got.GarmentID != fresh.GarmentID || got.HasResult != fresh.HasResult ||
		got.Viewer != nil || got.Analysis != fresh.Analysis || len(got.Notifications) != 0 {
		t.Errorf("restart did not reset state: %+v", got)
	}
	if s.Photo() != nil || s.Garment() != nil || s.ResultURL() != "" {
		t.Errorf("restart must drop photo, garment and result")
	}
}

func TestWizardSession_Viewer(t *testing.T) {
	s, _ := walkToConfirm(t)
	if _, err := s.OpenViewer(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("OpenViewer() before result error = %v", err)
	}
	_, _, _ = s.BeginTryOn()
	_ = s.CompleteTryOn("https://cdn.example/result.png")

	viewer, err := s.OpenViewer()
	if err != nil {
		t.Fatalf("OpenViewer() error = %v", err)
	}
	if viewer.Mode() != ViewerInline {
		t.Errorf("new viewer should be inline")
	}
	if err := s.EnterImmersive(); err != nil {
		t.Fatalf("EnterImmersive() error = %v", err)
	}
	if s.Snapshot().Viewer.Mode != ViewerImmersive {
		t.Errorf("viewer should be immersive")
	}
	if err := s.CloseViewer(); err != nil {
		t.Fatalf("CloseViewer() error = %v", err)
	}
	if err := s.CloseViewer(); !errors.Is(err, ErrViewerClosed) {
		t.Errorf("second CloseViewer() error = %v", err)
	}
}

func TestWizardSession_BackEdge(t *testing.T) {
	s, garment := walkToConfirm(t)
	if err := s.Back(); err != nil {
		t.Fatalf("Back() error = %v", err)
	}
	if s.Step() != valueobjects.StepCloset || s.Garment() != garment {
		t.Errorf("Back() should return to closet keeping the garment")
	}
	if err := s.Back(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Back() from closet error = %v", err)
	}
}
