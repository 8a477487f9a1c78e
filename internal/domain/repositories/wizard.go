package repositories

import (
	"context"
	"image"
	"time"

	"vesteja/internal/domain/entities"
	"vesteja/internal/domain/valueobjects"
)

type SessionRepository interface {
	Save(ctx context.Context, session *entities.WizardSession) error
	FindByID(ctx context.Context, id entities.SessionID) (*entities.WizardSession, error)
	Delete(ctx context.Context, id entities.SessionID) error
	// DeleteIdle removes sessions untouched since cutoff and reports how many went.
	DeleteIdle(ctx context.Context, cutoff time.Time) (int, error)
}

type CatalogRepository interface {
	Load(ctx context.Context) (*entities.Catalog, error)
}

// TryOnSubmission is the multipart payload sent to the try-on endpoint.
type TryOnSubmission struct {
	Human           *valueobjects.ImageData
	Garment         *valueobjects.ImageData
	GarmentFilename string
	Description     string
}

// TryOnClient calls a remote try-on endpoint and returns the result image URL
// (usually a data URL). Transport failures wrap entities.ErrTryOnUnreachable;
// non-success answers are *entities.RemoteError.
type TryOnClient interface {
	TryOn(ctx context.Context, submission TryOnSubmission) (string, error)
}

type GarmentImageFetcher interface {
	Fetch(ctx context.Context, imageURL string) (*valueobjects.ImageData, error)
}

// VerdictCache remembers pose-stage verdicts. digest is the SHA-256 of the
// uploaded bytes; a verdict is only reused for the same digest.
type VerdictCache interface {
	Lookup(digest string, img image.Image) (valueobjects.AnalysisResult, bool)
	Store(digest string, img image.Image, verdict valueobjects.AnalysisResult)
}

// ResultStore archives result images and returns a shareable URL.
type ResultStore interface {
	Archive(ctx context.Context, sessionID entities.SessionID, img *valueobjects.ImageData) (string, error)
}
