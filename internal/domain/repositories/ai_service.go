package repositories

import (
	"context"
	"image"

	"vesteja/internal/domain/entities"
	"vesteja/internal/domain/valueobjects"
)

// AIService composes a garment onto a person photo.
type AIService interface {
	GenerateTryOn(ctx context.Context, request *entities.TryOnRequest) (*entities.TryOnResult, error)

	Close() error
}

// PoseEstimator detects human poses in an upright image. Implementations
// initialise their model lazily before the first estimate.
type PoseEstimator interface {
	EstimatePoses(ctx context.Context, img image.Image) ([]valueobjects.Pose, error)
}
