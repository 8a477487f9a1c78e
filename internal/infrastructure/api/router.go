package api

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

type RouterOptions struct {
	// AllowedOrigins lists the origins granted CORS access; "*" allows any.
	AllowedOrigins []string
	// AssetDir, when set, is served under /img/ for garment pictures.
	AssetDir string
}

// NewRouter wires every endpoint. A nil TryOnHandler leaves /tryon out.
func NewRouter(tryOn *TryOnHandler, wizard *WizardHandler, catalog *CatalogHandler, opts RouterOptions) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)

	if tryOn != nil {
		r.HandleFunc("/tryon", tryOn.HandleTryOn).Methods(http.MethodPost)
	}

	r.HandleFunc("/data/clothes.json", catalog.HandleClothes).Methods(http.MethodGet)
	r.HandleFunc("/api/catalog", catalog.HandleQuery).Methods(http.MethodGet)

	r.HandleFunc("/api/sessions", wizard.HandleCreate).Methods(http.MethodPost)

	s := r.PathPrefix("/api/sessions/{id}").Subrouter()
	s.HandleFunc("", wizard.HandleGet).Methods(http.MethodGet)
	s.HandleFunc("/start", wizard.HandleStart).Methods(http.MethodPost)
	s.HandleFunc("/gender", wizard.HandleGender).Methods(http.MethodPost)
	s.HandleFunc("/photo", wizard.HandlePhoto).Methods(http.MethodPost)
	s.HandleFunc("/photo", wizard.HandlePhotoImage).Methods(http.MethodGet)
	s.HandleFunc("/analysis/dismiss", wizard.HandleDismissAnalysis).Methods(http.MethodPost)
	s.HandleFunc("/closet", wizard.HandleCloset).Methods(http.MethodGet)
	s.HandleFunc("/category", wizard.HandleCategory).Methods(http.MethodPost)
	s.HandleFunc("/garment", wizard.HandleGarment).Methods(http.MethodPost)
	s.HandleFunc("/back", wizard.HandleBack).Methods(http.MethodPost)
	s.HandleFunc("/confirm", wizard.HandleConfirm).Methods(http.MethodPost)
	s.HandleFunc("/restart", wizard.HandleRestart).Methods(http.MethodPost)
	s.HandleFunc("/result", wizard.HandleResultImage).Methods(http.MethodGet)
	s.HandleFunc("/viewer", wizard.HandleOpenViewer).Methods(http.MethodPost)
	s.HandleFunc("/viewer", wizard.HandleCloseViewer).Methods(http.MethodDelete)
	s.HandleFunc("/viewer/stereo.png", wizard.HandleStereo).Methods(http.MethodGet)
	s.HandleFunc("/notifications/drain", wizard.HandleDrainNotifications).Methods(http.MethodPost)

	if opts.AssetDir != "" {
		r.PathPrefix("/img/").Handler(http.StripPrefix("/img/", http.FileServer(http.Dir(opts.AssetDir))))
	}

	return withLogging(withCORS(opts.AllowedOrigins, r))
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(sr, r)

		if r.URL.Path == "/healthz" {
			return
		}
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sr.statusCode).
			Dur("duration", time.Since(start)).
			Msg("API request")
	})
}

func withCORS(origins []string, next http.Handler) http.Handler {
	anyOrigin := slices.Contains(origins, "*")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (anyOrigin || slices.Contains(origins, strings.TrimRight(origin, "/"))) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept-Language")
			w.Header().Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
