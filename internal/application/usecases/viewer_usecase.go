package usecases

import (
	"bytes"
	"context"
	"fmt"
	"image/png"

	"vesteja/internal/domain/entities"
	"vesteja/internal/domain/repositories"
	"vesteja/internal/domain/services"
	"vesteja/internal/domain/valueobjects"
)

// ResultSource hands out the try-on result of a session.
type ResultSource interface {
	Result(ctx context.Context, id entities.SessionID) (*valueobjects.ImageData, error)
}

// ViewerUseCase renders the stereo frame shown by the headset viewer.
type ViewerUseCase struct {
	sessions repositories.SessionRepository
	results  ResultSource
	layout   services.StereoLayout
}

func NewViewerUseCase(sessions repositories.SessionRepository, results ResultSource, layout services.StereoLayout) *ViewerUseCase {
	return &ViewerUseCase{
		sessions: sessions,
		results:  results,
		layout:   layout,
	}
}

// StereoPNG renders the result on the viewer panel once per eye. The viewer
// must be open.
func (uc *ViewerUseCase) StereoPNG(ctx context.Context, id entities.SessionID) ([]byte, error) {
	session, err := uc.sessions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Viewer() == nil {
		return nil, entities.ErrViewerClosed
	}

	result, err := uc.results.Result(ctx, id)
	if err != nil {
		return nil, err
	}
	img, err := result.Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode result image: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, services.RenderStereo(img, uc.layout)); err != nil {
		return nil, fmt.Errorf("failed to encode stereo frame: %w", err)
	}
	return buf.Bytes(), nil
}
