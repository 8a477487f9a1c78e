package external

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"vesteja/internal/domain/entities"
	"vesteja/internal/domain/repositories"
	"vesteja/internal/domain/valueobjects"
)

// ProxyTryOnService forwards /tryon calls to an upstream try-on endpoint.
type ProxyTryOnService struct {
	client repositories.TryOnClient
}

func NewProxyTryOnService(client repositories.TryOnClient) *ProxyTryOnService {
	return &ProxyTryOnService{client: client}
}

func (s *ProxyTryOnService) GenerateTryOn(ctx context.Context, request *entities.TryOnRequest) (*entities.TryOnResult, error) {
	output, err := s.client.TryOn(ctx, repositories.TryOnSubmission{
		Human:           request.PersonImage(),
		Garment:         request.GarmentImage(),
		GarmentFilename: "garment.jpg",
		Description:     request.Description(),
	})
	if err != nil {
		var remote *entities.RemoteError
		if errors.As(err, &remote) && remote.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("upstream quota exceeded: %w", err)
		}
		return nil, err
	}

	img, err := valueobjects.ParseDataURL(output)
	if err != nil {
		return nil, fmt.Errorf("upstream returned an unusable image: %w", err)
	}
	return entities.NewTryOnResult(request.ID(), []*valueobjects.ImageData{img}), nil
}

func (s *ProxyTryOnService) Close() error {
	return nil
}
