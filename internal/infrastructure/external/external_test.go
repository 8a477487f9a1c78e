package external

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"vesteja/internal/domain/entities"
	"vesteja/internal/domain/repositories"
	"vesteja/internal/domain/valueobjects"
)

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func testImageData(t *testing.T) *valueobjects.ImageData {
	t.Helper()
	img, err := valueobjects.NewImageData(testPNG(t))
	if err != nil {
		t.Fatal(err)
	}
	return img
}

func TestHTTPPoseEstimator(t *testing.T) {
	var health, estimates int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/healthz":
			atomic.AddInt32(&health, 1)
			w.WriteHeader(http.StatusOK)
		case "/estimate":
			atomic.AddInt32(&estimates, 1)
			if r.Header.Get("Content-Type") != "image/jpeg" {
				http.Error(w, "want jpeg", http.StatusUnsupportedMediaType)
				return
			}
			w.Write([]byte(`{"poses":[{"score":0.8,"keypoints":[{"name":"nose","x":10,"y":5,"score":0.9},{"name":"left_hip","x":9,"y":30,"score":0.4}]}]}`))
		}
	}))
	defer server.Close()

	estimator := NewHTTPPoseEstimator(server.URL, 0)
	img := image.NewRGBA(image.Rect(0, 0, 20, 40))

	for i := 0; i < 2; i++ {
		poses, err := estimator.EstimatePoses(context.Background(), img)
		if err != nil {
			t.Fatalf("EstimatePoses() error = %v", err)
		}
		if len(poses) != 1 || poses[0].ScoreOf(valueobjects.Nose) != 0.9 {
			t.Errorf("poses = %+v", poses)
		}
		if got := poses[0].Keypoints()[0].Position(); got.X != 10 || got.Y != 5 {
			t.Errorf("nose position = %v", got)
		}
	}

	if health != 1 {
		t.Errorf("health checks = %d, want exactly one", health)
	}
	if estimates != 2 {
		t.Errorf("estimates = %d, want 2", estimates)
	}
}

func TestHTTPPoseEstimator_Failures(t *testing.T) {
	tests := []struct {
		name     string
		healthz  int
		body     string
		status   int
		notReady bool
	}{
		{name: "not ready", healthz: http.StatusServiceUnavailable, notReady: true},
		{name: "unknown keypoint", healthz: 200, status: 200, body: `{"poses":[{"score":1,"keypoints":[{"name":"tail","x":0,"y":0,"score":1}]}]}`},
		{name: "score out of range", healthz: 200, status: 200, body: `{"poses":[{"score":1,"keypoints":[{"name":"nose","x":0,"y":0,"score":1.5}]}]}`},
		{name: "malformed json", healthz: 200, status: 200, body: `{"poses":`},
		{name: "server error", healthz: 200, status: 500, body: `oops`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/healthz" {
					w.WriteHeader(tt.healthz)
					return
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewHTTPPoseEstimator(server.URL, 0).EstimatePoses(context.Background(), image.NewRGBA(image.Rect(0, 0, 4, 4)))
			if err == nil {
				t.Fatalf("EstimatePoses() should fail")
			}
			if errors.Is(err, ErrPoseModelNotReady) != tt.notReady {
				t.Errorf("ErrPoseModelNotReady = %v, want %v (err: %v)", !tt.notReady, tt.notReady, err)
			}
		})
	}
}

func TestHTTPTryOnClient(t *testing.T) {
	human := testImageData(t)
	garment, _ := testImageData(t).ToJPEG()
	sub := repositories.TryOnSubmission{Human: human, Garment: garment, GarmentFilename: "garment.jpg", Description: "Vestido azul"}

	tests := []struct {
		name        string
		status      int
		body        string
		wantOutput  string
		wantStatus  int
		wantMessage string
	}{
		{name: "success", status: 200, body: `{"output":"data:image/png;base64,AAAA"}`, wantOutput: "data:image/png;base64,AAAA"},
		{name: "error with message", status: 500, body: `{"error":"Modelo sobrecarregado"}`, wantStatus: 500, wantMessage: "Modelo sobrecarregado"},
		{name: "error without body", status: 502, body: `<html>bad gateway</html>`, wantStatus: 502},
		{name: "malformed success", status: 200, body: `not json`, wantStatus: 200},
		{name: "success without output", status: 200, body: `{}`, wantStatus: 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/tryon" {
					http.NotFound(w, r)
					return
				}
				if err := r.ParseMultipartForm(10 << 20); err != nil {
					http.Error(w, err.Error(), http.StatusBadRequest)
					return
				}
				_, gh, err := r.FormFile("garment")
				if err != nil || gh.Filename != "garment.jpg" || gh.Header.Get("Content-Type") != "image/jpeg" {
					http.Error(w, `{"error":"bad garment part"}`, http.StatusBadRequest)
					return
				}
				if _, _, err := r.FormFile("human"); err != nil || r.FormValue("description") != "Vestido azul" {
					http.Error(w, `{"error":"bad form"}`, http.StatusBadRequest)
					return
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			out, err := NewHTTPTryOnClient(server.URL+"/", 0).TryOn(context.Background(), sub)
			if tt.wantOutput != "" {
				if err != nil || out != tt.wantOutput {
					t.Fatalf("TryOn() = %q, %v", out, err)
				}
				return
			}
			var remote *entities.RemoteError
			if !errors.As(err, &remote) {
				t.Fatalf("TryOn() error = %v, want RemoteError", err)
			}
			if remote.StatusCode != tt.wantStatus || remote.Message != tt.wantMessage {
				t.Errorf("RemoteError = %+v", remote)
			}
		})
	}

	t.Run("unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		_, err := NewHTTPTryOnClient(url, 0).TryOn(context.Background(), sub)
		if !errors.Is(err, entities.ErrTryOnUnreachable) {
			t.Errorf("TryOn() error = %v, want ErrTryOnUnreachable", err)
		}
	})
}

func TestGarmentFetcher(t *testing.T) {
	data := testPNG(t)

	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "img"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "img", "vestido.png"), data, 0o644); err != nil {
		t.Fatal(err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/img/vestido.png":
			w.Header().Set("Content-Type", "image/png")
			w.Write(data)
		case "/page.html":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	tests := []struct {
		name    string
		fetcher *GarmentFetcher
		url     string
		wantErr bool
	}{
		{name: "asset dir", fetcher: &GarmentFetcher{AssetDir: dir}, url: "/img/vestido.png"},
		{name: "asset traversal stays inside", fetcher: &GarmentFetcher{AssetDir: dir}, url: "/../img/vestido.png"},
		{name: "missing asset", fetcher: &GarmentFetcher{AssetDir: dir}, url: "/img/none.png", wantErr: true},
		{name: "absolute url", fetcher: &GarmentFetcher{}, url: server.URL + "/img/vestido.png"},
		{name: "relative against base", fetcher: &GarmentFetcher{BaseURL: server.URL + "/"}, url: "/img/vestido.png"},
		{name: "not an image", fetcher: &GarmentFetcher{}, url: server.URL + "/page.html", wantErr: true},
		{name: "not found", fetcher: &GarmentFetcher{}, url: server.URL + "/nope.png", wantErr: true},
		{name: "too large", fetcher: &GarmentFetcher{MaxBytes: 8}, url: server.URL + "/img/vestido.png", wantErr: true},
		{name: "unresolvable", fetcher: &GarmentFetcher{}, url: "/img/vestido.png", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := tt.fetcher.Fetch(context.Background(), tt.url)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Fetch() should fail")
				}
				return
			}
			if err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}
			if img.Format() != valueobjects.PNG {
				t.Errorf("Format() = %s", img.Format())
			}
		})
	}
}

type stubPools struct {
	repositories.ClientPoolService
	cfg *repositories.AIClientConfig
}

func (s stubPools) Config() *repositories.AIClientConfig { return s.cfg }

func TestVertexAIService_REST(t *testing.T) {
	output := testPNG(t)
	var got map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		json.NewEncoder(w).Encode(map[string]any{
			"predictions": []map[string]any{
				{"mimeType": "image/png", "bytesBase64Encoded": base64.StdEncoding.EncodeToString(output)},
				{"mimeType": "image/png", "bytesBase64Encoded": "!!!"},
			},
		})
	}))
	defer server.Close()

	svc := NewVertexAIService(stubPools{cfg: &repositories.AIClientConfig{ProjectID: "p", Location: "us-central1"}}, "virtual-try-on-001", false)
	svc.endpoint = server.URL
	svc.token = func(ctx context.Context) (string, error) { return "test-token", nil }

	params, _ := valueobjects.NewTryOnParameters(40, 7, true, false, 1, valueobjects.AllowAdult, valueobjects.BlockOnlyHigh, valueobjects.MimeTypePNG)
	req, _ := entities.NewTryOnRequest(testImageData(t), testImageData(t), "Jaqueta jeans", params)
	if err := req.PrepareImages(); err != nil {
		t.Fatal(err)
	}

	result, err := svc.GenerateTryOn(context.Background(), req)
	if err != nil {
		t.Fatalf("GenerateTryOn() error = %v", err)
	}
	if len(result.Images()) != 1 {
		t.Errorf("images = %d, want the one valid prediction", len(result.Images()))
	}

	parameters := got["parameters"].(map[string]any)
	if parameters["baseSteps"] != float64(40) || parameters["seed"] != float64(7) || parameters["addWatermark"] != false {
		t.Errorf("parameters = %v", parameters)
	}
	if !strings.Contains(string(mustJSON(t, got["instances"])), "Jaqueta jeans") {
		t.Errorf("garment description missing from request")
	}

	if want := "https://us-central1-aiplatform.googleapis.com/v1/projects/p/locations/us-central1/publishers/google/models/virtual-try-on-001:predict"; (&VertexAIService{pools: svc.pools, vtoModel: svc.vtoModel}).predictURL() != want {
		t.Errorf("predictURL() mismatch")
	}
}

func TestVertexAIService_RESTError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"status":"RESOURCE_EXHAUSTED"}}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	svc := NewVertexAIService(stubPools{cfg: &repositories.AIClientConfig{}}, "m", false)
	svc.endpoint = server.URL
	svc.token = func(ctx context.Context) (string, error) { return "t", nil }

	req, _ := entities.NewTryOnRequest(testImageData(t), testImageData(t), "", nil)
	_, err := svc.GenerateTryOn(context.Background(), req)
	if err == nil || !strings.Contains(err.Error(), "RESOURCE_EXHAUSTED") {
		t.Errorf("GenerateTryOn() error = %v", err)
	}
}

type stubTryOnClient struct {
	output string
	err    error
	got    repositories.TryOnSubmission
}

func (s *stubTryOnClient) TryOn(ctx context.Context, sub repositories.TryOnSubmission) (string, error) {
	s.got = sub
	return s.output, s.err
}

func TestProxyTryOnService(t *testing.T) {
	client := &stubTryOnClient{output: testImageData(t).DataURL()}
	svc := NewProxyTryOnService(client)
	req, _ := entities.NewTryOnRequest(testImageData(t), testImageData(t), "Saia", nil)

	result, err := svc.GenerateTryOn(context.Background(), req)
	if err != nil || !result.HasImages() {
		t.Fatalf("GenerateTryOn() = %v, %v", result, err)
	}
	if client.got.Description != "Saia" {
		t.Errorf("description not forwarded")
	}

	client.err = &entities.RemoteError{StatusCode: http.StatusTooManyRequests}
	_, err = svc.GenerateTryOn(context.Background(), req)
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("429 upstream should read as quota error, got %v", err)
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return b
}
