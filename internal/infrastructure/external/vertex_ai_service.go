package external

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2/google"

	"vesteja/internal/domain/entities"
	"vesteja/internal/domain/repositories"
	"vesteja/internal/domain/valueobjects"
	"vesteja/model"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// VertexAIService calls the Virtual Try-On model, either through the predict
// REST endpoint or through the Vertex AI SDK.
type VertexAIService struct {
	pools      repositories.ClientPoolService
	vtoModel   string
	useSDK     bool
	httpClient *http.Client
	// endpoint overrides the regional predict URL; tests point it at httptest.
	endpoint string
	token    func(ctx context.Context) (string, error)
}

func NewVertexAIService(pools repositories.ClientPoolService, vtoModel string, useSDK bool) *VertexAIService {
	s := &VertexAIService{
		pools:      pools,
		vtoModel:   vtoModel,
		useSDK:     useSDK,
		httpClient: &http.Client{Timeout: 300 * time.Second},
	}
	s.token = s.accessToken
	return s
}

func (s *VertexAIService) GenerateTryOn(ctx context.Context, request *entities.TryOnRequest) (*entities.TryOnResult, error) {
	if s.useSDK {
		return s.generateWithSDK(ctx, request)
	}
	return s.generateWithREST(ctx, request)
}

func (s *VertexAIService) generateWithSDK(ctx context.Context, request *entities.TryOnRequest) (*entities.TryOnResult, error) {
	client, err := s.pools.VertexAIPool().GetVertexAIClient(ctx)
	if err != nil {
		return nil, err
	}

	params := request.Parameters()
	gm := client.GenerativeModel(s.vtoModel)
	gm.SetTemperature(0.4)
	gm.SetTopK(32)
	gm.SetTopP(1)
	gm.SetCandidateCount(int32(params.SampleCount()))
	gm.ResponseMIMEType = string(params.OutputMimeType())

	resp, err := gm.GenerateContent(ctx,
		genai.Text("person:"),
		genai.ImageData("jpeg", request.PersonImage().Data()),
		genai.Text("garment ("+request.Description()+"):"),
		genai.ImageData("jpeg", request.GarmentImage().Data()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	var images []*valueobjects.ImageData
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			blob, ok := part.(genai.Blob)
			if !ok {
				continue
			}
			img, err := valueobjects.NewImageData(blob.Data)
			if err != nil {
				log.Warn().Err(err).Str("mime", blob.MIMEType).Msg("Skipping undecodable candidate image")
				continue
			}
			images = append(images, img)
		}
	}

	if len(images) == 0 {
		return nil, fmt.Errorf("no image found in response")
	}
	return entities.NewTryOnResult(request.ID(), images), nil
}

func (s *VertexAIService) generateWithREST(ctx context.Context, request *entities.TryOnRequest) (*entities.TryOnResult, error) {
	accessToken, err := s.token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}

	params := request.Parameters()
	parameters := map[string]any{
		"baseSteps":        params.DenoiseSteps(),
		"personGeneration": string(params.PersonGeneration()),
		"safetySetting":    string(params.SafetySetting()),
		"sampleCount":      params.SampleCount(),
		"outputOptions": map[string]any{
			"mimeType": string(params.OutputMimeType()),
		},
	}

	// the model only honours a seed with the watermark disabled
	if params.Seed() > 0 {
		parameters["addWatermark"] = false
		parameters["seed"] = params.Seed()
	}

	apiRequest := map[string]any{
		"instances": []map[string]any{
			{
				"personImage": map[string]any{
					"image": map[string]any{
						"bytesBase64Encoded": request.PersonImage().ToBase64(),
					},
				},
				"productImages": []map[string]any{
					{
						"image": map[string]any{
							"bytesBase64Encoded": request.GarmentImage().ToBase64(),
						},
						"productConfig": map[string]any{
							"productDescription": request.Description(),
						},
					},
				},
			},
		},
		"parameters": parameters,
	}

	reqBody, err := json.Marshal(apiRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	log.Debug().
		Str("model", s.vtoModel).
		Interface("parameters", parameters).
		Str("description", request.Description()).
		Msg("Vertex AI predict request")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.predictURL(), bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var predResp model.VirtualTryOnResponse
	if err := json.Unmarshal(respBody, &predResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	var images []*valueobjects.ImageData
	for i, prediction := range predResp.Predictions {
		if prediction.BytesBase64Encoded == "" {
			continue
		}
		imageBytes, err := base64.StdEncoding.DecodeString(prediction.BytesBase64Encoded)
		if err != nil {
			log.Warn().Err(err).Int("prediction", i).Msg("Skipping prediction with bad base64")
			continue
		}
		imageData, err := valueobjects.NewImageData(imageBytes)
		if err != nil {
			log.Warn().Err(err).Int("prediction", i).Msg("Skipping undecodable prediction")
			continue
		}
		images = append(images, imageData)
	}

	if len(images) == 0 {
		return nil, fmt.Errorf("no valid image data found in response")
	}

	return entities.NewTryOnResult(request.ID(), images), nil
}

func (s *VertexAIService) predictURL() string {
	if s.endpoint != "" {
		return s.endpoint
	}
	cfg := s.pools.Config()
	return fmt.Sprintf("https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/publishers/google/models/%s:predict",
		cfg.Location, cfg.ProjectID, cfg.Location, s.vtoModel)
}

func (s *VertexAIService) accessToken(ctx context.Context) (string, error) {
	creds, err := google.FindDefaultCredentials(ctx, cloudPlatformScope)
	if err != nil {
		return "", fmt.Errorf("failed to find default credentials: %w", err)
	}

	token, err := creds.TokenSource.Token()
	if err != nil {
		return "", fmt.Errorf("failed to get access token: %w", err)
	}

	return token.AccessToken, nil
}

// Close is a no-op; the shared clients belong to the pool.
func (s *VertexAIService) Close() error {
	return nil
}
