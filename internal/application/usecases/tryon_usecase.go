package usecases

import (
	"context"
	"fmt"

	"vesteja/internal/domain/entities"
	"vesteja/internal/domain/repositories"
	"vesteja/internal/domain/services"
	"vesteja/internal/domain/valueobjects"
)

type TryOnUseCase struct {
	tryOnRepo     repositories.TryOnRepository
	domainService *services.TryOnDomainService
}

func NewTryOnUseCase(
	tryOnRepo repositories.TryOnRepository,
	domainService *services.TryOnDomainService,
) *TryOnUseCase {
	return &TryOnUseCase{
		tryOnRepo:     tryOnRepo,
		domainService: domainService,
	}
}

type TryOnInput struct {
	PersonImageData  []byte
	GarmentImageData []byte
	Description      string
	Parameters       *TryOnParametersInput
}

type TryOnParametersInput struct {
	DenoiseSteps     int
	Seed             int
	AutoMask         bool
	AutoCrop         bool
	SampleCount      int
	PersonGeneration string
	SafetySetting    string
	OutputMimeType   string
}

type TryOnOutput struct {
	RequestID entities.TryOnRequestID
	Images    []ImageOutput
	Masked    *ImageOutput
}

type ImageOutput struct {
	Data []byte
	Type string
}

// DataURL renders the image the way the /tryon endpoint returns it.
func (o ImageOutput) DataURL() string {
	img, err := valueobjects.NewImageData(o.Data)
	if err != nil {
		return ""
	}
	return img.DataURL()
}

func (uc *TryOnUseCase) Execute(ctx context.Context, input TryOnInput) (*TryOnOutput, error) {
	personImage, err := valueobjects.NewImageData(input.PersonImageData)
	if err != nil {
		return nil, fmt.Errorf("%w: person image: %v", entities.ErrInvalidInput, err)
	}

	garmentImage, err := valueobjects.NewImageData(input.GarmentImageData)
	if err != nil {
		return nil, fmt.Errorf("%w: garment image: %v", entities.ErrInvalidInput, err)
	}

	parameters, err := uc.convertParameters(input.Parameters)
	if err != nil {
		return nil, fmt.Errorf("%w: parameters: %v", entities.ErrInvalidInput, err)
	}

	request, err := entities.NewTryOnRequest(personImage, garmentImage, input.Description, parameters)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if err := uc.tryOnRepo.Save(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to save request: %w", err)
	}

	result, err := uc.domainService.ProcessTryOn(ctx, request)
	if err != nil {
		return nil, err
	}

	if err := uc.tryOnRepo.SaveResult(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to save result: %w", err)
	}

	output := &TryOnOutput{RequestID: result.RequestID()}
	for _, img := range result.Images() {
		output.Images = append(output.Images, ImageOutput{
			Data: img.Data(),
			Type: img.MimeType(),
		})
	}
	if masked := result.Masked(); masked != nil {
		output.Masked = &ImageOutput{Data: masked.Data(), Type: masked.MimeType()}
	}

	return output, nil
}

func (uc *TryOnUseCase) convertParameters(input *TryOnParametersInput) (*valueobjects.TryOnParameters, error) {
	if input == nil {
		return valueobjects.DefaultTryOnParameters(), nil
	}

	return valueobjects.NewTryOnParameters(
		input.DenoiseSteps,
		input.Seed,
		input.AutoMask,
		input.AutoCrop,
		input.SampleCount,
		valueobjects.PersonGeneration(input.PersonGeneration),
		valueobjects.SafetySetting(input.SafetySetting),
		valueobjects.MimeType(input.OutputMimeType),
	)
}
