package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"vesteja/internal/domain/entities"
	"vesteja/internal/domain/repositories"
	"vesteja/internal/domain/valueobjects"
)

// GarmentFilename is the part name the garment image is uploaded under.
const GarmentFilename = "garment.jpg"

const DefaultTryOnTimeout = 2 * time.Minute

// ProgressTracker schedules loading messages. The returned function cancels
// whatever has not been shown yet.
type ProgressTracker interface {
	Start(messages []string, emit func(string)) (stop func())
}

type WizardDeps struct {
	Sessions repositories.SessionRepository
	Catalog  *entities.Catalog
	Gate     PhotoEvaluator
	TryOn    repositories.TryOnClient
	Garments repositories.GarmentImageFetcher
	Progress ProgressTracker
	// Results is optional; without it results are kept in memory only.
	Results repositories.ResultStore
	// TryOnTimeout bounds the whole background try-on call.
	TryOnTimeout time.Duration
}

// WizardUseCase drives the fitting-room wizard for every session.
type WizardUseCase struct {
	sessions repositories.SessionRepository
	catalog  *entities.Catalog
	gate     PhotoEvaluator
	tryOn    repositories.TryOnClient
	garments repositories.GarmentImageFetcher
	progress ProgressTracker
	results  repositories.ResultStore
	timeout  time.Duration

	inflight sync.WaitGroup
}

func NewWizardUseCase(deps WizardDeps) (*WizardUseCase, error) {
	switch {
	case deps.Sessions == nil:
		return nil, fmt.Errorf("session repository is required")
	case deps.Catalog == nil:
		return nil, fmt.Errorf("catalog is required")
	case deps.Gate == nil:
		return nil, fmt.Errorf("photo gate is required")
	case deps.TryOn == nil:
		return nil, fmt.Errorf("try-on client is required")
	case deps.Garments == nil:
		return nil, fmt.Errorf("garment fetcher is required")
	case deps.Progress == nil:
		return nil, fmt.Errorf("progress tracker is required")
	}

	timeout := deps.TryOnTimeout
	if timeout <= 0 {
		timeout = DefaultTryOnTimeout
	}

	return &WizardUseCase{
		sessions: deps.Sessions,
		catalog:  deps.Catalog,
		gate:     deps.Gate,
		tryOn:    deps.TryOn,
		garments: deps.Garments,
		progress: deps.Progress,
		results:  deps.Results,
		timeout:  timeout,
	}, nil
}

func (uc *WizardUseCase) Catalog() *entities.Catalog {
	return uc.catalog
}

func (uc *WizardUseCase) CreateSession(ctx context.Context, locale valueobjects.Locale) (entities.WizardSnapshot, error) {
	session := entities.NewWizardSession(entities.NewSessionID(), locale)
	if err := uc.sessions.Save(ctx, session); err != nil {
		return entities.WizardSnapshot{}, fmt.Errorf("failed to save session: %w", err)
	}
	log.Info().Str("session", string(session.ID())).Str("locale", string(locale)).Msg("Session created")
	return session.Snapshot(), nil
}

func (uc *WizardUseCase) Get(ctx context.Context, id entities.SessionID) (entities.WizardSnapshot, error) {
	session, err := uc.sessions.FindByID(ctx, id)
	if err != nil {
		return entities.WizardSnapshot{}, err
	}
	return session.Snapshot(), nil
}

func (uc *WizardUseCase) Start(ctx context.Context, id entities.SessionID) (entities.WizardSnapshot, error) {
	return uc.apply(ctx, id, func(s *entities.WizardSession) error {
		return s.Start()
	})
}

// PickGender records the gender and opens the closet on the first catalog
// category offered to it.
func (uc *WizardUseCase) PickGender(ctx context.Context, id entities.SessionID, gender string) (entities.WizardSnapshot, error) {
	g, err := valueobjects.ParseGender(strings.ToLower(strings.TrimSpace(gender)))
	if err != nil {
		return entities.WizardSnapshot{}, fmt.Errorf("%w: %v", entities.ErrInvalidInput, err)
	}

	var first string
	if categories := uc.catalog.Categories(g); len(categories) > 0 {
		first = categories[0]
	}

	return uc.apply(ctx, id, func(s *entities.WizardSession) error {
		return s.PickGender(g, first)
	})
}

// SubmitPhoto runs the acceptance gate on data. An accepted photo moves the
// session to the closet; a rejected one leaves it on the photo step with the
// reason recorded. Bytes that are not a supported image count as a failed
// analysis.
func (uc *WizardUseCase) SubmitPhoto(ctx context.Context, id entities.SessionID, data []byte) (entities.WizardSnapshot, error) {
	if len(data) == 0 {
		return entities.WizardSnapshot{}, fmt.Errorf("%w: photo is empty", entities.ErrInvalidInput)
	}

	session, err := uc.sessions.FindByID(ctx, id)
	if err != nil {
		return entities.WizardSnapshot{}, err
	}

	if err := session.BeginAnalysis(); err != nil {
		return session.Snapshot(), err
	}

	verdict := valueobjects.Rejected(valueobjects.ReasonAnalysisFailed)
	photo, err := valueobjects.NewImageData(data)
	if err != nil {
		log.Warn().Err(err).Str("session", string(id)).Msg("Submitted photo is not a supported image")
	} else {
		verdict = uc.gate.Evaluate(ctx, photo)
	}

	if verdict.IsAccepted() {
		err = session.AcceptPhoto(photo, PhotoPath(id))
	} else {
		err = session.RejectPhoto(verdict.Reason())
	}
	if err != nil {
		return session.Snapshot(), err
	}

	log.Info().
		Str("session", string(id)).
		Bool("accepted", verdict.IsAccepted()).
		Str("reason", string(verdict.Reason())).
		Msg("Photo analysed")

	return uc.save(ctx, session)
}

func (uc *WizardUseCase) DismissAnalysisError(ctx context.Context, id entities.SessionID) (entities.WizardSnapshot, error) {
	return uc.apply(ctx, id, func(s *entities.WizardSession) error {
		return s.DismissAnalysisError()
	})
}

func (uc *WizardUseCase) SelectCategory(ctx context.Context, id entities.SessionID, category string) (entities.WizardSnapshot, error) {
	return uc.apply(ctx, id, func(s *entities.WizardSession) error {
		if !uc.catalog.HasCategory(s.Gender(), category) {
			return fmt.Errorf("%w: %q", entities.ErrUnknownCategory, category)
		}
		return s.SelectCategory(category)
	})
}

// ClosetView is what the closet screen shows.
type ClosetView struct {
	Gender         valueobjects.Gender
	ActiveCategory string
	Categories     []string
	Garments       []*entities.Garment
}

func (uc *WizardUseCase) Closet(ctx context.Context, id entities.SessionID) (*ClosetView, error) {
	session, err := uc.sessions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	gender := session.Gender()
	if gender == "" {
		return nil, fmt.Errorf("%w: gender not chosen yet", entities.ErrInvalidTransition)
	}
	category := session.ActiveCategory()

	return &ClosetView{
		Gender:         gender,
		ActiveCategory: category,
		Categories:     uc.catalog.Categories(gender),
		Garments:       uc.catalog.Filter(gender, category),
	}, nil
}

func (uc *WizardUseCase) PickGarment(ctx context.Context, id entities.SessionID, garmentID int) (entities.WizardSnapshot, error) {
	garment, ok := uc.catalog.ByID(entities.GarmentID(garmentID))
	if !ok {
		return entities.WizardSnapshot{}, fmt.Errorf("%w: no garment with id %d", entities.ErrGarmentUnavailable, garmentID)
	}
	return uc.apply(ctx, id, func(s *entities.WizardSession) error {
		return s.PickGarment(garment)
	})
}

func (uc *WizardUseCase) Back(ctx context.Context, id entities.SessionID) (entities.WizardSnapshot, error) {
	return uc.apply(ctx, id, func(s *entities.WizardSession) error {
		return s.Back()
	})
}

// Confirm moves the session to loading and starts the try-on call in the
// background. The returned snapshot already carries the first progress
// message; callers poll Get for the outcome.
func (uc *WizardUseCase) Confirm(ctx context.Context, id entities.SessionID) (entities.WizardSnapshot, error) {
	session, err := uc.sessions.FindByID(ctx, id)
	if err != nil {
		return entities.WizardSnapshot{}, err
	}

	photo, garment, err := session.BeginTryOn()
	if err != nil {
		return session.Snapshot(), err
	}

	locale := session.Locale()
	stop := uc.progress.Start([]string{
		valueobjects.Localize(locale, valueobjects.MsgProgressPreparing),
		valueobjects.Localize(locale, valueobjects.MsgProgressComposing),
		valueobjects.Localize(locale, valueobjects.MsgProgressFinishing),
	}, func(msg string) {
		session.SetProgress(msg)
	})

	log.Info().
		Str("session", string(id)).
		Int("garment", int(garment.ID())).
		Msg("Try-on started")

	uc.inflight.Add(1)
	go func() {
		defer uc.inflight.Done()
		uc.runTryOn(session, photo, garment, stop)
	}()

	return uc.save(ctx, session)
}

func (uc *WizardUseCase) runTryOn(session *entities.WizardSession, photo *valueobjects.ImageData, garment *entities.Garment, stop func()) {
	ctx, cancel := context.WithTimeout(context.Background(), uc.timeout)
	defer cancel()

	start := time.Now()
	resultURL, err := uc.callTryOn(ctx, photo, garment)
	stop()

	logger := log.With().Str("session", string(session.ID())).Dur("duration", time.Since(start)).Logger()

	if err != nil {
		logger.Error().Err(err).Msg("Try-on failed")
		if ferr := session.FailTryOn(FailureMessage(session.Locale(), err)); ferr != nil {
			logger.Warn().Err(ferr).Msg("Session left loading before the try-on settled")
		}
		uc.persist(context.WithoutCancel(ctx), session)
		return
	}

	if err := session.CompleteTryOn(resultURL); err != nil {
		logger.Warn().Err(err).Msg("Session left loading before the try-on settled")
		return
	}
	logger.Info().Msg("Try-on completed")
	uc.persist(context.WithoutCancel(ctx), session)

	if uc.results != nil {
		uc.archive(ctx, session, resultURL)
	}
}

func (uc *WizardUseCase) callTryOn(ctx context.Context, photo *valueobjects.ImageData, garment *entities.Garment) (string, error) {
	garmentImage, err := uc.garments.Fetch(ctx, garment.ImageURL())
	if err != nil {
		return "", fmt.Errorf("%w: garment image: %v", entities.ErrTryOnUnreachable, err)
	}
	garmentJPEG, err := garmentImage.ToJPEG()
	if err != nil {
		return "", fmt.Errorf("failed to package garment image: %w", err)
	}

	return uc.tryOn.TryOn(ctx, repositories.TryOnSubmission{
		Human:           photo,
		Garment:         garmentJPEG,
		GarmentFilename: GarmentFilename,
		Description:     garment.Description(),
	})
}

func (uc *WizardUseCase) archive(ctx context.Context, session *entities.WizardSession, resultURL string) {
	img, err := uc.resolveImage(ctx, resultURL)
	if err != nil {
		log.Warn().Err(err).Str("session", string(session.ID())).Msg("Result could not be archived")
		return
	}
	url, err := uc.results.Archive(ctx, session.ID(), img)
	if err != nil {
		log.Warn().Err(err).Str("session", string(session.ID())).Msg("Result could not be archived")
		return
	}
	session.SetArchiveURL(url)
	uc.persist(context.WithoutCancel(ctx), session)
}

// FailureMessage turns a try-on error into the notification the user sees.
// The endpoint's own message wins; other non-success answers get the generic
// server message and everything else is reported as unreachable.
func FailureMessage(locale valueobjects.Locale, err error) string {
	var remote *entities.RemoteError
	if errors.As(err, &remote) {
		if remote.Message != "" {
			return remote.Message
		}
		return valueobjects.Localize(locale, valueobjects.MsgServerError)
	}
	return valueobjects.Localize(locale, valueobjects.MsgUnreachable)
}

func (uc *WizardUseCase) Restart(ctx context.Context, id entities.SessionID) (entities.WizardSnapshot, error) {
	return uc.apply(ctx, id, func(s *entities.WizardSession) error {
		return s.Restart()
	})
}

// ShowViewer opens the result viewer, switching it to immersive mode when
// asked.
func (uc *WizardUseCase) ShowViewer(ctx context.Context, id entities.SessionID, immersive bool) (entities.WizardSnapshot, error) {
	return uc.apply(ctx, id, func(s *entities.WizardSession) error {
		if _, err := s.OpenViewer(); err != nil {
			return err
		}
		if immersive {
			return s.EnterImmersive()
		}
		return nil
	})
}

func (uc *WizardUseCase) CloseViewer(ctx context.Context, id entities.SessionID) (entities.WizardSnapshot, error) {
	return uc.apply(ctx, id, func(s *entities.WizardSession) error {
		return s.CloseViewer()
	})
}

func (uc *WizardUseCase) DrainNotifications(ctx context.Context, id entities.SessionID) ([]valueobjects.Notification, error) {
	session, err := uc.sessions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return session.DrainNotifications(), nil
}

// Photo returns the accepted human photo.
func (uc *WizardUseCase) Photo(ctx context.Context, id entities.SessionID) (*valueobjects.ImageData, error) {
	session, err := uc.sessions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	photo := session.Photo()
	if photo == nil {
		return nil, fmt.Errorf("%w: no photo accepted yet", entities.ErrInvalidTransition)
	}
	return photo, nil
}

// Result returns the try-on result image.
func (uc *WizardUseCase) Result(ctx context.Context, id entities.SessionID) (*valueobjects.ImageData, error) {
	session, err := uc.sessions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	url := session.ResultURL()
	if url == "" {
		return nil, entities.ErrNoResult
	}
	return uc.resolveImage(ctx, url)
}

func (uc *WizardUseCase) resolveImage(ctx context.Context, url string) (*valueobjects.ImageData, error) {
	if strings.HasPrefix(url, "data:") {
		return valueobjects.ParseDataURL(url)
	}
	return uc.garments.Fetch(ctx, url)
}

// Wait blocks until every background try-on has settled.
func (uc *WizardUseCase) Wait() {
	uc.inflight.Wait()
}

// SweepIdle drops sessions untouched for longer than ttl.
func (uc *WizardUseCase) SweepIdle(ctx context.Context, ttl time.Duration) (int, error) {
	return uc.sessions.DeleteIdle(ctx, time.Now().Add(-ttl))
}

// RunJanitor sweeps idle sessions every interval until ctx is done.
func (uc *WizardUseCase) RunJanitor(ctx context.Context, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := uc.SweepIdle(ctx, ttl)
			if err != nil {
				log.Warn().Err(err).Msg("Session sweep failed")
				continue
			}
			if n > 0 {
				log.Info().Int("removed", n).Msg("Idle sessions swept")
			}
		}
	}
}

// PhotoPath is where the accepted photo of a session is served.
func PhotoPath(id entities.SessionID) string {
	return "/api/sessions/" + string(id) + "/photo"
}

func (uc *WizardUseCase) apply(ctx context.Context, id entities.SessionID, fn func(*entities.WizardSession) error) (entities.WizardSnapshot, error) {
	session, err := uc.sessions.FindByID(ctx, id)
	if err != nil {
		return entities.WizardSnapshot{}, err
	}
	if err := fn(session); err != nil {
		return session.Snapshot(), err
	}
	return uc.save(ctx, session)
}

func (uc *WizardUseCase) save(ctx context.Context, session *entities.WizardSession) (entities.WizardSnapshot, error) {
	if err := uc.sessions.Save(ctx, session); err != nil {
		return session.Snapshot(), fmt.Errorf("failed to save session: %w", err)
	}
	return session.Snapshot(), nil
}

func (uc *WizardUseCase) persist(ctx context.Context, session *entities.WizardSession) {
	if err := uc.sessions.Save(ctx, session); err != nil {
		log.Warn().Err(err).Str("session", string(session.ID())).Msg("Failed to save session")
	}
}
