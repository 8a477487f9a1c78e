package services

import (
	"net/http"
	"strconv"

	"vesteja/internal/application/usecases"
	"vesteja/internal/domain/valueobjects"
)

type ParameterService struct{}

func NewParameterService() *ParameterService {
	return &ParameterService{}
}

func (s *ParameterService) ParseFromRequest(r *http.Request) *usecases.TryOnParametersInput {
	params := &usecases.TryOnParametersInput{
		DenoiseSteps:     s.getInt(r, "denoise_steps", valueobjects.DefaultDenoiseSteps, 1, 100),
		Seed:             s.getInt(r, "seed", valueobjects.DefaultSeed, 0, 0),
		AutoMask:         s.getBool(r, "auto_mask", true),
		AutoCrop:         s.getBool(r, "auto_crop", false),
		SampleCount:      s.getInt(r, "sample_count", 1, 1, 4),
		PersonGeneration: s.getString(r, "person_generation", string(valueobjects.AllowAdult)),
		SafetySetting:    s.getString(r, "safety_setting", string(valueobjects.BlockMediumAndAbove)),
		OutputMimeType:   s.getString(r, "output_mime_type", string(valueobjects.MimeTypePNG)),
	}

	if params.OutputMimeType != string(valueobjects.MimeTypeJPEG) {
		params.OutputMimeType = string(valueobjects.MimeTypePNG)
	}

	return params
}

func (s *ParameterService) getBool(r *http.Request, key string, defaultValue bool) bool {
	value := r.FormValue(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

// getInt falls back to defaultValue when the field is absent, malformed or
// outside [min, max]. max <= 0 leaves the upper end open.
func (s *ParameterService) getInt(r *http.Request, key string, defaultValue, min, max int) int {
	value := r.FormValue(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	if intVal < min || (max > 0 && intVal > max) {
		return defaultValue
	}

	return intVal
}

func (s *ParameterService) getString(r *http.Request, key, defaultValue string) string {
	value := r.FormValue(key)
	if value == "" {
		return defaultValue
	}
	return value
}
