package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"vesteja/internal/application/services"
	"vesteja/internal/application/usecases"
	"vesteja/internal/domain/entities"
	domainservices "vesteja/internal/domain/services"
	"vesteja/model"
)

const maxFileSize = 10 * 1024 * 1024 // 10MB

const msgMissingFiles = "Envie os arquivos 'human' e 'garment'"

// TryOnHandler serves the /tryon backend endpoint.
type TryOnHandler struct {
	tryOnUseCase     *usecases.TryOnUseCase
	parameterService *services.ParameterService
}

func NewTryOnHandler(
	tryOnUseCase *usecases.TryOnUseCase,
	parameterService *services.ParameterService,
) *TryOnHandler {
	return &TryOnHandler{
		tryOnUseCase:     tryOnUseCase,
		parameterService: parameterService,
	}
}

func (h *TryOnHandler) HandleTryOn(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFileSize)
	if err := r.ParseMultipartForm(maxFileSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			sendError(w, "Imagem muito grande (limite de 10MB)", http.StatusRequestEntityTooLarge)
			return
		}
		sendError(w, msgMissingFiles, http.StatusBadRequest)
		return
	}

	humanData, err := readFormFile(r, "human")
	if err != nil {
		sendError(w, msgMissingFiles, http.StatusBadRequest)
		return
	}
	garmentData, err := readFormFile(r, "garment")
	if err != nil {
		sendError(w, msgMissingFiles, http.StatusBadRequest)
		return
	}

	input := usecases.TryOnInput{
		PersonImageData:  humanData,
		GarmentImageData: garmentData,
		Description:      r.FormValue("description"),
		Parameters:       h.parameterService.ParseFromRequest(r),
	}

	output, err := h.tryOnUseCase.Execute(r.Context(), input)
	if err != nil {
		log.Error().Err(err).Msg("Virtual try-on failed")

		switch {
		case errors.Is(err, entities.ErrInvalidInput):
			sendError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, domainservices.ErrServiceBusy):
			sendError(w, "Servidor ocupado, tente novamente em instantes.", http.StatusTooManyRequests)
		default:
			sendError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	if len(output.Images) == 0 {
		sendError(w, "Nenhuma imagem gerada", http.StatusInternalServerError)
		return
	}

	response := model.TryOnResponse{Output: output.Images[0].DataURL()}
	if output.Masked != nil {
		masked := output.Masked.DataURL()
		response.Masked = &masked
	}

	log.Info().
		Str("request", string(output.RequestID)).
		Int("images", len(output.Images)).
		Msg("Virtual try-on served")

	w.Header().Set("Cache-Control", "no-store, max-age=0")
	respondJSON(w, http.StatusOK, response)
}

func readFormFile(r *http.Request, field string) ([]byte, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", field, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s is empty", field)
	}
	return data, nil
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Err(err).Msg("Failed to encode JSON response")
	}
}

func sendError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, statusCode, map[string]string{"error": message})
}

// statusFor maps wizard errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, entities.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, entities.ErrInvalidInput),
		errors.Is(err, entities.ErrUnknownCategory),
		errors.Is(err, entities.ErrGarmentUnavailable):
		return http.StatusBadRequest
	case errors.Is(err, entities.ErrInvalidTransition),
		errors.Is(err, entities.ErrAnalysisInProgress),
		errors.Is(err, entities.ErrAnalysisRejected),
		errors.Is(err, entities.ErrMissingSelection),
		errors.Is(err, entities.ErrViewerClosed),
		errors.Is(err, entities.ErrNoResult):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
