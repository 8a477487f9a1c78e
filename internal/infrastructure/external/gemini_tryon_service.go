package external

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"vesteja/internal/domain/entities"
	"vesteja/internal/domain/repositories"
	"vesteja/internal/domain/valueobjects"
)

const DefaultGeminiImageModel = "gemini-2.5-flash-image"

const composePrompt = "Dress the person in the first image with the garment in the second image (%s). " +
	"Keep the person's face, body shape, pose and background unchanged, fit the garment naturally " +
	"with realistic folds and lighting, and return a single photorealistic image."

// GeminiTryOnService composes the try-on with a Gemini image model.
type GeminiTryOnService struct {
	pool  repositories.GenAIClientPool
	model string
}

func NewGeminiTryOnService(pool repositories.GenAIClientPool, model string) *GeminiTryOnService {
	if model == "" {
		model = DefaultGeminiImageModel
	}
	return &GeminiTryOnService{pool: pool, model: model}
}

func (s *GeminiTryOnService) GenerateTryOn(ctx context.Context, request *entities.TryOnRequest) (*entities.TryOnResult, error) {
	client, err := s.pool.GetGenAIClient(ctx)
	if err != nil {
		return nil, err
	}

	log.Info().Str("model", s.model).Str("description", request.Description()).Msg("Gemini try-on")

	parts := []*genai.Part{
		genai.NewPartFromText(fmt.Sprintf(composePrompt, request.Description())),
		{InlineData: &genai.Blob{MIMEType: request.PersonImage().MimeType(), Data: request.PersonImage().Data()}},
		{InlineData: &genai.Blob{MIMEType: request.GarmentImage().MimeType(), Data: request.GarmentImage().Data()}},
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	// image models reject multiple candidates, so one call per sample
	var images []*valueobjects.ImageData
	for i := 0; i < request.Parameters().SampleCount(); i++ {
		resp, err := client.Models.GenerateContent(ctx, s.model, contents, &genai.GenerateContentConfig{})
		if err != nil {
			return nil, fmt.Errorf("failed to generate content: %w", err)
		}
		img, text := firstImage(resp)
		if img == nil {
			log.Warn().Str("text", text).Msg("No image data in Gemini response")
			continue
		}
		images = append(images, img)
	}

	if len(images) == 0 {
		return nil, fmt.Errorf("no image data received from Gemini API")
	}
	return entities.NewTryOnResult(request.ID(), images), nil
}

func firstImage(resp *genai.GenerateContentResponse) (*valueobjects.ImageData, string) {
	var text string
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, text
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			text = part.Text
			continue
		}
		if part.InlineData == nil {
			continue
		}
		img, err := valueobjects.NewImageData(part.InlineData.Data)
		if err != nil {
			log.Warn().Err(err).Str("mime", part.InlineData.MIMEType).Msg("Skipping undecodable Gemini image")
			continue
		}
		return img, text
	}
	return nil, text
}

func (s *GeminiTryOnService) Close() error {
	return nil
}
