package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"vesteja/internal/application/services"
	"vesteja/internal/application/usecases"
	"vesteja/internal/domain/entities"
	"vesteja/internal/domain/valueobjects"
	"vesteja/internal/infrastructure/repositories"
	"vesteja/internal/infrastructure/storage"
	"vesteja/model"
)

const maxBodySize = 64 << 10

// WizardHandler exposes the fitting-room wizard as a session API.
type WizardHandler struct {
	wizard  *usecases.WizardUseCase
	viewer  *usecases.ViewerUseCase
	locales *services.LocaleService
}

func NewWizardHandler(
	wizard *usecases.WizardUseCase,
	viewer *usecases.ViewerUseCase,
	locales *services.LocaleService,
) *WizardHandler {
	return &WizardHandler{
		wizard:  wizard,
		viewer:  viewer,
		locales: locales,
	}
}

type genderRequest struct {
	Gender string `json:"gender"`
}

type categoryRequest struct {
	Category string `json:"category"`
}

type garmentRequest struct {
	GarmentID int `json:"garmentId"`
}

type viewerRequest struct {
	Immersive bool `json:"immersive"`
}

type closetResponse struct {
	Gender         valueobjects.Gender  `json:"gender"`
	ActiveCategory string               `json:"activeCategory"`
	Categories     []string             `json:"categories"`
	Garments       []model.GarmentEntry `json:"garments"`
}

type notificationsResponse struct {
	Notifications []valueobjects.Notification `json:"notifications"`
}

func sessionID(r *http.Request) entities.SessionID {
	return entities.SessionID(mux.Vars(r)["id"])
}

// HandleCreate opens a session. The locale comes from ?locale= when it names
// a supported one, otherwise from Accept-Language.
func (h *WizardHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	locale, ok := h.locales.Parse(r.URL.Query().Get("locale"))
	if !ok {
		locale = h.locales.Match(r.Header.Get("Accept-Language"))
	}

	snap, err := h.wizard.CreateSession(r.Context(), locale)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/sessions/"+string(snap.ID))
	respondJSON(w, http.StatusCreated, snap)
}

func (h *WizardHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	snap, err := h.wizard.Get(r.Context(), sessionID(r))
	h.reply(w, r, http.StatusOK, snap, err)
}

func (h *WizardHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	snap, err := h.wizard.Start(r.Context(), sessionID(r))
	h.reply(w, r, http.StatusOK, snap, err)
}

func (h *WizardHandler) HandleGender(w http.ResponseWriter, r *http.Request) {
	var req genderRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	snap, err := h.wizard.PickGender(r.Context(), sessionID(r), req.Gender)
	h.reply(w, r, http.StatusOK, snap, err)
}

func (h *WizardHandler) HandlePhoto(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFileSize)
	if err := r.ParseMultipartForm(maxFileSize); err != nil {
		h.fail(w, r, fmt.Errorf("%w: %v", entities.ErrInvalidInput, err))
		return
	}

	file, _, err := r.FormFile("photo")
	if err != nil {
		h.fail(w, r, fmt.Errorf("%w: photo file is required", entities.ErrInvalidInput))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.fail(w, r, fmt.Errorf("%w: %v", entities.ErrInvalidInput, err))
		return
	}

	snap, err := h.wizard.SubmitPhoto(r.Context(), sessionID(r), data)
	h.reply(w, r, http.StatusOK, snap, err)
}

func (h *WizardHandler) HandleDismissAnalysis(w http.ResponseWriter, r *http.Request) {
	snap, err := h.wizard.DismissAnalysisError(r.Context(), sessionID(r))
	h.reply(w, r, http.StatusOK, snap, err)
}

func (h *WizardHandler) HandleCloset(w http.ResponseWriter, r *http.Request) {
	view, err := h.wizard.Closet(r.Context(), sessionID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, closetResponse{
		Gender:         view.Gender,
		ActiveCategory: view.ActiveCategory,
		Categories:     view.Categories,
		Garments:       repositories.CatalogEntries(view.Garments),
	})
}

func (h *WizardHandler) HandleCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	snap, err := h.wizard.SelectCategory(r.Context(), sessionID(r), req.Category)
	h.reply(w, r, http.StatusOK, snap, err)
}

func (h *WizardHandler) HandleGarment(w http.ResponseWriter, r *http.Request) {
	var req garmentRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	snap, err := h.wizard.PickGarment(r.Context(), sessionID(r), req.GarmentID)
	h.reply(w, r, http.StatusOK, snap, err)
}

func (h *WizardHandler) HandleBack(w http.ResponseWriter, r *http.Request) {
	snap, err := h.wizard.Back(r.Context(), sessionID(r))
	h.reply(w, r, http.StatusOK, snap, err)
}

// HandleConfirm starts the try-on and answers 202 with the loading snapshot.
func (h *WizardHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	snap, err := h.wizard.Confirm(r.Context(), sessionID(r))
	h.reply(w, r, http.StatusAccepted, snap, err)
}

func (h *WizardHandler) HandleRestart(w http.ResponseWriter, r *http.Request) {
	snap, err := h.wizard.Restart(r.Context(), sessionID(r))
	h.reply(w, r, http.StatusOK, snap, err)
}

func (h *WizardHandler) HandleOpenViewer(w http.ResponseWriter, r *http.Request) {
	var req viewerRequest
	if r.ContentLength != 0 {
		if err := decodeBody(w, r, &req); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	snap, err := h.wizard.ShowViewer(r.Context(), sessionID(r), req.Immersive)
	h.reply(w, r, http.StatusOK, snap, err)
}

func (h *WizardHandler) HandleCloseViewer(w http.ResponseWriter, r *http.Request) {
	snap, err := h.wizard.CloseViewer(r.Context(), sessionID(r))
	h.reply(w, r, http.StatusOK, snap, err)
}

func (h *WizardHandler) HandleDrainNotifications(w http.ResponseWriter, r *http.Request) {
	notes, err := h.wizard.DrainNotifications(r.Context(), sessionID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if notes == nil {
		notes = []valueobjects.Notification{}
	}
	respondJSON(w, http.StatusOK, notificationsResponse{Notifications: notes})
}

func (h *WizardHandler) HandlePhotoImage(w http.ResponseWriter, r *http.Request) {
	img, err := h.wizard.Photo(r.Context(), sessionID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeImage(w, img.MimeType(), img.Data(), "")
}

func (h *WizardHandler) HandleResultImage(w http.ResponseWriter, r *http.Request) {
	img, err := h.wizard.Result(r.Context(), sessionID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	disposition := "inline"
	if r.URL.Query().Get("download") != "" {
		disposition = "attachment"
	}
	writeImage(w, img.MimeType(), img.Data(), fmt.Sprintf(`%s; filename="%s"`, disposition, storage.ResultFilename))
}

func (h *WizardHandler) HandleStereo(w http.ResponseWriter, r *http.Request) {
	data, err := h.viewer.StereoPNG(r.Context(), sessionID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeImage(w, "image/png", data, "")
}

func (h *WizardHandler) reply(w http.ResponseWriter, r *http.Request, status int, snap entities.WizardSnapshot, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, status, snap)
}

func (h *WizardHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	event := log.Debug()
	if status >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).
		Str("session", string(sessionID(r))).
		Str("path", r.URL.Path).
		Int("status", status).
		Msg("Wizard request failed")
	sendError(w, err.Error(), status)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed body: %v", entities.ErrInvalidInput, err)
	}
	return nil
}

func writeImage(w http.ResponseWriter, contentType string, data []byte, disposition string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store, max-age=0")
	if disposition != "" {
		w.Header().Set("Content-Disposition", disposition)
	}
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
