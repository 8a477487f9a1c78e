package usecases

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"vesteja/internal/domain/entities"
	"vesteja/internal/domain/valueobjects"
)

type wizardFixture struct {
	uc       *WizardUseCase
	repo     *mockSessionRepository
	gate     *stubEvaluator
	tryOn    *mockTryOnClient
	progress *immediateProgress
	results  *mockResultStore
}

func newWizardFixture(t *testing.T) *wizardFixture {
	t.Helper()
	f := &wizardFixture{
		repo:     newMockSessionRepository(),
		gate:     &stubEvaluator{verdict: valueobjects.Accepted()},
		progress: &immediateProgress{},
		results:  &mockResultStore{url: "https://bucket.example/result.png"},
	}
	f.tryOn = &mockTryOnClient{url: grayImage(t, 128).DataURL()}

	uc, err := NewWizardUseCase(WizardDeps{
		Sessions:     f.repo,
		Catalog:      testCatalog(t),
		Gate:         f.gate,
		TryOn:        f.tryOn,
		Garments:     &mockFetcher{image: grayImage(t, 200)},
		Progress:     f.progress,
		Results:      f.results,
		TryOnTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("NewWizardUseCase() error = %v", err)
	}
	f.uc = uc
	return f
}

// toConfirm walks a new session up to the confirm step with garment 1.
func (f *wizardFixture) toConfirm(t *testing.T) entities.SessionID {
	t.Helper()
	ctx := context.Background()

	snap, err := f.uc.CreateSession(ctx, valueobjects.LocalePTBR)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	id := snap.ID

	steps := []func() (entities.WizardSnapshot, error){
		func() (entities.WizardSnapshot, error) { return f.uc.Start(ctx, id) },
		func() (entities.WizardSnapshot, error) { return f.uc.PickGender(ctx, id, "feminino") },
		func() (entities.WizardSnapshot, error) { return f.uc.SubmitPhoto(ctx, id, grayPNG(t, 128)) },
		func() (entities.WizardSnapshot, error) { return f.uc.PickGarment(ctx, id, 1) },
	}
	for i, step := range steps {
		if _, err := step(); err != nil {
			t.Fatalf("step %d error = %v", i, err)
		}
	}
	return id
}

func TestWizardUseCase_HappyPath(t *testing.T) {
	f := newWizardFixture(t)
	ctx := context.Background()
	id := f.toConfirm(t)

	snap, err := f.uc.Confirm(ctx, id)
	if err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if snap.Step != valueobjects.StepLoading && snap.Step != valueobjects.StepResult {
		t.Errorf("Confirm() step = %s, want loading", snap.Step)
	}

	f.uc.Wait()

	snap, err = f.uc.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if snap.Step != valueobjects.StepResult {
		t.Fatalf("step = %s, want result", snap.Step)
	}
	if !snap.HasResult {
		t.Errorf("snapshot should report a result")
	}
	if snap.ArchiveURL != f.results.url {
		t.Errorf("ArchiveURL = %q, want %q", snap.ArchiveURL, f.results.url)
	}
	if !f.progress.wasStopped() {
		t.Errorf("progress messages must be cancelled once the call settles")
	}

	if len(f.tryOn.submissions) != 1 {
		t.Fatalf("try-on calls = %d, want 1", len(f.tryOn.submissions))
	}
	sub := f.tryOn.submissions[0]
	if sub.GarmentFilename != GarmentFilename || !sub.Garment.IsJPEG() {
		t.Errorf("garment should be sent as JPEG %s, got %s (%s)", GarmentFilename, sub.GarmentFilename, sub.Garment.Format())
	}
	if sub.Description != "Vestido Floral description" {
		t.Errorf("Description = %q", sub.Description)
	}

	notes, err := f.uc.DrainNotifications(ctx, id)
	if err != nil {
		t.Fatalf("DrainNotifications() error = %v", err)
	}
	if len(notes) != 1 || notes[0].Level != valueobjects.NotifySuccess {
		t.Errorf("notifications = %+v, want one success", notes)
	}

	img, err := f.uc.Result(ctx, id)
	if err != nil || img == nil {
		t.Fatalf("Result() error = %v", err)
	}

	snap, err = f.uc.Restart(ctx, id)
	if err != nil {
		t.Fatalf("Restart() error = %v", err)
	}
	if snap.Step != valueobjects.StepIntro || snap.Gender != "" || snap.HasResult || snap.PhotoURL != "" {
		t.Errorf("Restart() left state behind: %+v", snap)
	}
}

func TestWizardUseCase_TryOnFailure(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{
			name:    "endpoint message is shown",
			err:     &entities.RemoteError{StatusCode: 500, Message: "Modelo indisponível"},
			message: "Modelo indisponível",
		},
		{
			name:    "endpoint without message",
			err:     &entities.RemoteError{StatusCode: 502},
			message: "Ocorreu um erro no servidor.",
		},
		{
			name:    "transport failure",
			err:     fmt.Errorf("%w: connection refused", entities.ErrTryOnUnreachable),
			message: "Não foi possível conectar à API.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newWizardFixture(t)
			f.tryOn.err = tt.err
			ctx := context.Background()
			id := f.toConfirm(t)

			if _, err := f.uc.Confirm(ctx, id); err != nil {
				t.Fatalf("Confirm() error = %v", err)
			}
			f.uc.Wait()

			snap, _ := f.uc.Get(ctx, id)
			if snap.Step != valueobjects.StepConfirm {
				t.Fatalf("step = %s, want confirm", snap.Step)
			}
			if snap.GarmentID != 1 || snap.PhotoURL == "" {
				t.Errorf("selections must survive a failure: %+v", snap)
			}
			if snap.HasResult {
				t.Errorf("failed call must not leave a result")
			}
			if f.results.archived != 0 {
				t.Errorf("nothing should be archived after a failure")
			}

			notes, _ := f.uc.DrainNotifications(ctx, id)
			if len(notes) != 1 || notes[0].Level != valueobjects.NotifyError || notes[0].Message != tt.message {
				t.Errorf("notifications = %+v, want error %q", notes, tt.message)
			}
		})
	}
}

func TestWizardUseCase_GarmentFetchFailure(t *testing.T) {
	f := newWizardFixture(t)
	f.uc.garments = &mockFetcher{err: errors.New("404")}
	ctx := context.Background()
	id := f.toConfirm(t)

	if _, err := f.uc.Confirm(ctx, id); err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	f.uc.Wait()

	if len(f.tryOn.submissions) != 0 {
		t.Errorf("try-on endpoint must not be called without a garment image")
	}
	notes, _ := f.uc.DrainNotifications(ctx, id)
	if len(notes) != 1 || notes[0].Message != "Não foi possível conectar à API." {
		t.Errorf("notifications = %+v", notes)
	}
}

func TestWizardUseCase_PhotoRejected(t *testing.T) {
	f := newWizardFixture(t)
	f.gate.verdict = valueobjects.Rejected(valueobjects.ReasonInvalidPose)
	ctx := context.Background()

	snap, _ := f.uc.CreateSession(ctx, valueobjects.LocaleEN)
	id := snap.ID
	f.uc.Start(ctx, id)
	f.uc.PickGender(ctx, id, "masculino")

	snap, err := f.uc.SubmitPhoto(ctx, id, grayPNG(t, 128))
	if err != nil {
		t.Fatalf("SubmitPhoto() error = %v", err)
	}
	if snap.Step != valueobjects.StepPhoto {
		t.Errorf("step = %s, want photo", snap.Step)
	}
	if snap.Analysis.Status != valueobjects.AnalysisError || snap.Analysis.Reason != valueobjects.ReasonInvalidPose {
		t.Errorf("analysis = %+v", snap.Analysis)
	}
	if snap.Analysis.Message != valueobjects.ReasonInvalidPose.Message(valueobjects.LocaleEN) {
		t.Errorf("message should be localized, got %q", snap.Analysis.Message)
	}

	if _, err := f.uc.SubmitPhoto(ctx, id, grayPNG(t, 128)); !errors.Is(err, entities.ErrAnalysisRejected) {
		t.Errorf("resubmitting before dismiss: error = %v, want ErrAnalysisRejected", err)
	}

	if _, err := f.uc.DismissAnalysisError(ctx, id); err != nil {
		t.Fatalf("DismissAnalysisError() error = %v", err)
	}
	f.gate.verdict = valueobjects.Accepted()
	snap, err = f.uc.SubmitPhoto(ctx, id, grayPNG(t, 128))
	if err != nil || snap.Step != valueobjects.StepCloset {
		t.Fatalf("SubmitPhoto() after dismiss = %s, %v", snap.Step, err)
	}
	if snap.ActiveCategory != "Camisetas" {
		t.Errorf("ActiveCategory = %q, want first masculino category", snap.ActiveCategory)
	}
}

func TestWizardUseCase_UndecodablePhoto(t *testing.T) {
	f := newWizardFixture(t)
	ctx := context.Background()

	snap, _ := f.uc.CreateSession(ctx, valueobjects.LocalePTBR)
	f.uc.Start(ctx, snap.ID)
	f.uc.PickGender(ctx, snap.ID, "feminino")

	snap, err := f.uc.SubmitPhoto(ctx, snap.ID, []byte("not an image"))
	if err != nil {
		t.Fatalf("SubmitPhoto() error = %v", err)
	}
	if snap.Analysis.Reason != valueobjects.ReasonAnalysisFailed {
		t.Errorf("Reason = %q, want analysis_failed", snap.Analysis.Reason)
	}
	if f.gate.calls != 0 {
		t.Errorf("gate should not run on undecodable bytes")
	}
}

func TestWizardUseCase_Closet(t *testing.T) {
	f := newWizardFixture(t)
	ctx := context.Background()

	snap, _ := f.uc.CreateSession(ctx, valueobjects.LocalePTBR)
	id := snap.ID
	f.uc.Start(ctx, id)
	f.uc.PickGender(ctx, id, "feminino")
	f.uc.SubmitPhoto(ctx, id, grayPNG(t, 128))

	view, err := f.uc.Closet(ctx, id)
	if err != nil {
		t.Fatalf("Closet() error = %v", err)
	}
	if want := []string{"Vestidos", "Camisetas"}; fmt.Sprint(view.Categories) != fmt.Sprint(want) {
		t.Errorf("Categories = %v, want %v", view.Categories, want)
	}
	if len(view.Garments) != 2 {
		t.Errorf("Garments = %d, want the two dresses", len(view.Garments))
	}

	if _, err := f.uc.SelectCategory(ctx, id, "Camisas"); !errors.Is(err, entities.ErrUnknownCategory) {
		t.Errorf("SelectCategory(Camisas) error = %v, want ErrUnknownCategory", err)
	}
	if _, err := f.uc.PickGarment(ctx, id, 2); !errors.Is(err, entities.ErrGarmentUnavailable) {
		t.Errorf("PickGarment outside active category: error = %v", err)
	}
	if _, err := f.uc.PickGarment(ctx, id, 99); !errors.Is(err, entities.ErrGarmentUnavailable) {
		t.Errorf("PickGarment(99) error = %v", err)
	}

	if _, err := f.uc.SelectCategory(ctx, id, "Camisetas"); err != nil {
		t.Fatalf("SelectCategory() error = %v", err)
	}
	view, _ = f.uc.Closet(ctx, id)
	if len(view.Garments) != 1 || view.Garments[0].ID() != 2 {
		t.Errorf("Garments after switching category = %v", view.Garments)
	}
}

func TestWizardUseCase_InvalidTransitions(t *testing.T) {
	f := newWizardFixture(t)
	ctx := context.Background()
	snap, _ := f.uc.CreateSession(ctx, valueobjects.LocalePTBR)

	if _, err := f.uc.Confirm(ctx, snap.ID); !errors.Is(err, entities.ErrInvalidTransition) {
		t.Errorf("Confirm() from intro: error = %v", err)
	}
	if _, err := f.uc.PickGender(ctx, snap.ID, "outro"); !errors.Is(err, entities.ErrInvalidInput) {
		t.Errorf("PickGender(outro) error = %v", err)
	}
	if _, err := f.uc.Get(ctx, "missing"); !errors.Is(err, entities.ErrSessionNotFound) {
		t.Errorf("Get(missing) error = %v", err)
	}
	if _, err := f.uc.Closet(ctx, snap.ID); !errors.Is(err, entities.ErrInvalidTransition) {
		t.Errorf("Closet() before gender: error = %v", err)
	}
}

func TestWizardUseCase_Viewer(t *testing.T) {
	f := newWizardFixture(t)
	ctx := context.Background()
	id := f.toConfirm(t)
	f.uc.Confirm(ctx, id)
	f.uc.Wait()

	viewer := NewViewerUseCase(f.repo, f.uc, smallLayout())
	if _, err := viewer.StereoPNG(ctx, id); !errors.Is(err, entities.ErrViewerClosed) {
		t.Errorf("StereoPNG() with closed viewer: error = %v", err)
	}

	snap, err := f.uc.ShowViewer(ctx, id, true)
	if err != nil {
		t.Fatalf("ShowViewer() error = %v", err)
	}
	if snap.Viewer == nil || snap.Viewer.Mode != entities.ViewerImmersive {
		t.Errorf("viewer = %+v, want immersive", snap.Viewer)
	}

	frame, err := viewer.StereoPNG(ctx, id)
	if err != nil {
		t.Fatalf("StereoPNG() error = %v", err)
	}
	if len(frame) == 0 {
		t.Errorf("StereoPNG() returned an empty frame")
	}

	snap, _ = f.uc.CloseViewer(ctx, id)
	if snap.Viewer != nil {
		t.Errorf("viewer should be gone after close")
	}
	if _, err := f.uc.CloseViewer(ctx, id); !errors.Is(err, entities.ErrViewerClosed) {
		t.Errorf("second CloseViewer() error = %v", err)
	}
}

func TestWizardUseCase_SweepIdle(t *testing.T) {
	f := newWizardFixture(t)
	ctx := context.Background()
	snap, _ := f.uc.CreateSession(ctx, valueobjects.LocalePTBR)

	if n, _ := f.uc.SweepIdle(ctx, time.Hour); n != 0 {
		t.Errorf("fresh session swept")
	}
	time.Sleep(5 * time.Millisecond)
	if n, _ := f.uc.SweepIdle(ctx, time.Millisecond); n != 1 {
		t.Errorf("SweepIdle() = %d, want 1", n)
	}
	if _, err := f.uc.Get(ctx, snap.ID); !errors.Is(err, entities.ErrSessionNotFound) {
		t.Errorf("swept session still reachable")
	}
}

func TestFailureMessage(t *testing.T) {
	tests := []struct {
		name   string
		locale valueobjects.Locale
		err    error
		want   string
	}{
		{"remote with message", valueobjects.LocaleEN, &entities.RemoteError{StatusCode: 400, Message: "bad garment"}, "bad garment"},
		{"remote without message", valueobjects.LocaleEN, &entities.RemoteError{StatusCode: 500}, "A server error occurred."},
		{"wrapped remote", valueobjects.LocalePTBR, fmt.Errorf("call: %w", &entities.RemoteError{StatusCode: 500}), "Ocorreu um erro no servidor."},
		{"anything else", valueobjects.LocalePTBR, errors.New("dial tcp: refused"), "Não foi possível conectar à API."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FailureMessage(tt.locale, tt.err); got != tt.want {
				t.Errorf("FailureMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
