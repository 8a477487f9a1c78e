package valueobjects

import (
	"fmt"
)

type PersonGeneration string
type SafetySetting string
type MimeType string

const (
	AllowAdult PersonGeneration = "allow_adult"
	AllowAll   PersonGeneration = "allow_all"
	DontAllow  PersonGeneration = "dont_allow"
)

const (
	BlockMediumAndAbove SafetySetting = "block_medium_and_above"
	BlockLowAndAbove    SafetySetting = "block_low_and_above"
	BlockOnlyHigh       SafetySetting = "block_only_high"
	BlockNone           SafetySetting = "block_none"
)

const (
	MimeTypePNG  MimeType = "image/png"
	MimeTypeJPEG MimeType = "image/jpeg"
)

const (
	DefaultDenoiseSteps = 30
	DefaultSeed         = 42
)

type TryOnParameters struct {
	denoiseSteps     int
	seed             int
	autoMask         bool
	autoCrop         bool
	sampleCount      int
	personGeneration PersonGeneration
	safetySetting    SafetySetting
	outputMimeType   MimeType
}

func NewTryOnParameters(
	denoiseSteps int,
	seed int,
	autoMask bool,
	autoCrop bool,
	sampleCount int,
	personGeneration PersonGeneration,
	safetySetting SafetySetting,
	outputMimeType MimeType,
) (*TryOnParameters, error) {
	if denoiseSteps < 1 || denoiseSteps > 100 {
		return nil, fmt.Errorf("denoiseSteps must be between 1 and 100, got %d", denoiseSteps)
	}

	if sampleCount < 1 || sampleCount > 4 {
		return nil, fmt.Errorf("sampleCount must be between 1 and 4, got %d", sampleCount)
	}

	if seed < 0 {
		return nil, fmt.Errorf("seed must not be negative, got %d", seed)
	}

	switch outputMimeType {
	case MimeTypePNG, MimeTypeJPEG:
	default:
		return nil, fmt.Errorf("unsupported output mime type %q", outputMimeType)
	}

	return &TryOnParameters{
		denoiseSteps:     denoiseSteps,
		seed:             seed,
		autoMask:         autoMask,
		autoCrop:         autoCrop,
		sampleCount:      sampleCount,
		personGeneration: personGeneration,
		safetySetting:    safetySetting,
		outputMimeType:   outputMimeType,
	}, nil
}

// DefaultTryOnParameters mirrors the settings the fitting room has always
// used: 30 denoising steps, seed 42, automatic masking and no auto-crop.
func DefaultTryOnParameters() *TryOnParameters {
	params, _ := NewTryOnParameters(
		DefaultDenoiseSteps,
		DefaultSeed,
		true,
		false,
		1,
		AllowAdult,
		BlockMediumAndAbove,
		MimeTypePNG,
	)
	return params
}

func (p *TryOnParameters) DenoiseSteps() int {
	return p.denoiseSteps
}

func (p *TryOnParameters) Seed() int {
	return p.seed
}

func (p *TryOnParameters) AutoMask() bool {
	return p.autoMask
}

func (p *TryOnParameters) AutoCrop() bool {
	return p.autoCrop
}

func (p *TryOnParameters) SampleCount() int {
	return p.sampleCount
}

func (p *TryOnParameters) PersonGeneration() PersonGeneration {
	return p.personGeneration
}

func (p *TryOnParameters) SafetySetting() SafetySetting {
	return p.safetySetting
}

func (p *TryOnParameters) OutputMimeType() MimeType {
	return p.outputMimeType
}
