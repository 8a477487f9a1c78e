package tui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vesteja/internal/domain/entities"
	"vesteja/internal/domain/valueobjects"
	"vesteja/model"
)

// WizardAPI is the slice of the session API the terminal wizard drives.
type WizardAPI interface {
	Create(ctx context.Context, locale string) (entities.WizardSnapshot, error)
	Get(ctx context.Context, id entities.SessionID) (entities.WizardSnapshot, error)
	Action(ctx context.Context, id entities.SessionID, action string, body any) (entities.WizardSnapshot, error)
	UploadPhoto(ctx context.Context, id entities.SessionID, path string) (entities.WizardSnapshot, error)
	Closet(ctx context.Context, id entities.SessionID) (*Closet, error)
	Drain(ctx context.Context, id entities.SessionID) ([]valueobjects.Notification, error)
	DownloadResult(ctx context.Context, id entities.SessionID) ([]byte, error)
}

type Closet struct {
	Gender         string               `json:"gender"`
	ActiveCategory string               `json:"activeCategory"`
	Categories     []string             `json:"categories"`
	Garments       []model.GarmentEntry `json:"garments"`
}

// APIError is a non-success answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return e.Message
}

// Client talks to a running vesteja server over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) Create(ctx context.Context, locale string) (entities.WizardSnapshot, error) {
	var snap entities.WizardSnapshot
	path := "/api/sessions"
	if locale != "" {
		path += "?locale=" + locale
	}
	err := c.do(ctx, http.MethodPost, path, nil, "", &snap)
	return snap, err
}

func (c *Client) Get(ctx context.Context, id entities.SessionID) (entities.WizardSnapshot, error) {
	var snap entities.WizardSnapshot
	err := c.do(ctx, http.MethodGet, sessionPath(id, ""), nil, "", &snap)
	return snap, err
}

// Action posts to /api/sessions/{id}/{action}. "viewer-close" maps to
// DELETE .../viewer.
func (c *Client) Action(ctx context.Context, id entities.SessionID, action string, body any) (entities.WizardSnapshot, error) {
	var snap entities.WizardSnapshot
	method := http.MethodPost
	if action == "viewer-close" {
		method, action = http.MethodDelete, "viewer"
	}

	var reader io.Reader
	contentType := ""
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return snap, err
		}
		reader, contentType = bytes.NewReader(raw), "application/json"
	}
	err := c.do(ctx, method, sessionPath(id, action), reader, contentType, &snap)
	return snap, err
}

func (c *Client) UploadPhoto(ctx context.Context, id entities.SessionID, path string) (entities.WizardSnapshot, error) {
	var snap entities.WizardSnapshot

	data, err := os.ReadFile(path)
	if err != nil {
		return snap, err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("photo", filepath.Base(path))
	if err != nil {
		return snap, err
	}
	if _, err := part.Write(data); err != nil {
		return snap, err
	}
	if err := w.Close(); err != nil {
		return snap, err
	}

	err = c.do(ctx, http.MethodPost, sessionPath(id, "photo"), &buf, w.FormDataContentType(), &snap)
	return snap, err
}

func (c *Client) Closet(ctx context.Context, id entities.SessionID) (*Closet, error) {
	var closet Closet
	if err := c.do(ctx, http.MethodGet, sessionPath(id, "closet"), nil, "", &closet); err != nil {
		return nil, err
	}
	return &closet, nil
}

func (c *Client) Drain(ctx context.Context, id entities.SessionID) ([]valueobjects.Notification, error) {
	var out struct {
		Notifications []valueobjects.Notification `json:"notifications"`
	}
	err := c.do(ctx, http.MethodPost, sessionPath(id, "notifications/drain"), nil, "", &out)
	return out.Notifications, err
}

func (c *Client) DownloadResult(ctx context.Context, id entities.SessionID) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+sessionPath(id, "result")+"?download=1", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, readAPIError(resp)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("malformed response from %s: %w", path, err)
	}
	return nil
}

func readAPIError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body)
	return &APIError{Status: resp.StatusCode, Message: body.Error}
}

func sessionPath(id entities.SessionID, action string) string {
	p := "/api/sessions/" + string(id)
	if action != "" {
		p += "/" + action
	}
	return p
}
