package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"strings"
	"testing"

	"vesteja/internal/domain/entities"
	"vesteja/internal/domain/valueobjects"
)

type mockAIService struct {
	result *entities.TryOnResult
	err    error
	calls  int
}

func (m *mockAIService) GenerateTryOn(ctx context.Context, request *entities.TryOnRequest) (*entities.TryOnResult, error) {
	m.calls++
	return m.result, m.err
}

func (m *mockAIService) Close() error {
	return nil
}

func TestTryOnDomainService_ProcessTryOn(t *testing.T) {
	personImage := createTestImageData(t)
	garmentImage := createTestImageData(t)

	validRequest, err := entities.NewTryOnRequest(personImage, garmentImage, "Vestido floral", nil)
	if err != nil {
		t.Fatalf("Failed to create valid request: %v", err)
	}

	t.Run("successful processing", func(t *testing.T) {
		mockAI := &mockAIService{
			result: entities.NewTryOnResult(validRequest.ID(), []*valueobjects.ImageData{personImage}),
		}

		service := NewTryOnDomainService(mockAI)
		result, err := service.ProcessTryOn(context.Background(), validRequest)

		if err != nil {
			t.Fatalf("ProcessTryOn() error = %v", err)
		}
		if !result.HasImages() {
			t.Errorf("Result should have images")
		}
	})

	t.Run("AI service error", func(t *testing.T) {
		mockAI := &mockAIService{
			err: errors.New("AI service failed"),
		}

		service := NewTryOnDomainService(mockAI)
		result, err := service.ProcessTryOn(context.Background(), validRequest)

		if err == nil {
			t.Errorf("Expected error, got nil")
		}
		if result != nil {
			t.Errorf("Expected nil result on error")
		}
		if errors.Is(err, ErrServiceBusy) {
			t.Errorf("Plain failures must not be reported as quota errors")
		}
	})

	t.Run("quota error handling", func(t *testing.T) {
		mockAI := &mockAIService{
			err: errors.New("rpc error: code = ResourceExhausted desc = Quota exceeded"),
		}

		service := NewTryOnDomainService(mockAI)
		_, err := service.ProcessTryOn(context.Background(), validRequest)

		if !errors.Is(err, ErrServiceBusy) {
			t.Fatalf("Expected ErrServiceBusy, got %v", err)
		}
		if !strings.Contains(err.Error(), "service temporarily unavailable due to high demand") {
			t.Errorf("Expected quota error message, got %v", err.Error())
		}
	})

	t.Run("no images generated", func(t *testing.T) {
		mockAI := &mockAIService{
			result: entities.NewTryOnResult(validRequest.ID(), []*valueobjects.ImageData{}),
		}

		service := NewTryOnDomainService(mockAI)
		result, err := service.ProcessTryOn(context.Background(), validRequest)

		if err == nil {
			t.Errorf("Expected error for no images")
		}
		if result != nil {
			t.Errorf("Expected nil result when no images generated")
		}
	})

	t.Run("nil request", func(t *testing.T) {
		mockAI := &mockAIService{}
		service := NewTryOnDomainService(mockAI)
		if _, err := service.ProcessTryOn(context.Background(), nil); err == nil {
			t.Errorf("Expected validation error for nil request")
		}
		if mockAI.calls != 0 {
			t.Errorf("AI service must not be called for invalid requests")
		}
	})
}

func createTestImageData(t *testing.T) *valueobjects.ImageData {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	imageData, err := valueobjects.NewImageData(buf.Bytes())
	if err != nil {
		t.Fatalf("Failed to create test image data: %v", err)
	}
	return imageData
}
