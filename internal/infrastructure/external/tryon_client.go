package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"vesteja/internal/domain/entities"
	"vesteja/internal/domain/repositories"
	"vesteja/model"
)

const maxTryOnResponseBytes = 64 << 20

// HTTPTryOnClient posts the multipart try-on form to <endpoint>/tryon.
type HTTPTryOnClient struct {
	endpoint   string
	httpClient *http.Client
}

func NewHTTPTryOnClient(endpoint string, timeout time.Duration) *HTTPTryOnClient {
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	return &HTTPTryOnClient{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *HTTPTryOnClient) TryOn(ctx context.Context, sub repositories.TryOnSubmission) (string, error) {
	if sub.Human == nil || sub.Garment == nil {
		return "", fmt.Errorf("human and garment images are required")
	}

	body, contentType, err := encodeSubmission(sub)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/tryon", body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", entities.ErrTryOnUnreachable, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", entities.ErrTryOnUnreachable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxTryOnResponseBytes))
	if err != nil {
		return "", fmt.Errorf("%w: %v", entities.ErrTryOnUnreachable, err)
	}

	var parsed model.TryOnResponse
	decodeErr := json.Unmarshal(raw, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		remote := &entities.RemoteError{StatusCode: resp.StatusCode}
		if decodeErr == nil {
			remote.Message = parsed.Error
		}
		return "", remote
	}
	if decodeErr != nil || parsed.Output == "" {
		return "", &entities.RemoteError{StatusCode: resp.StatusCode}
	}
	return parsed.Output, nil
}

func encodeSubmission(sub repositories.TryOnSubmission) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	garmentName := sub.GarmentFilename
	if garmentName == "" {
		garmentName = "garment." + string(sub.Garment.Format())
	}

	files := []struct {
		field, filename, mime string
		data                  []byte
	}{
		{"human", "human." + string(sub.Human.Format()), sub.Human.MimeType(), sub.Human.Data()},
		{"garment", garmentName, sub.Garment.MimeType(), sub.Garment.Data()},
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, f.field, f.filename))
		h.Set("Content-Type", f.mime)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create %s part: %w", f.field, err)
		}
		if _, err := part.Write(f.data); err != nil {
			return nil, "", fmt.Errorf("failed to write %s part: %w", f.field, err)
		}
	}

	if err := w.WriteField("description", sub.Description); err != nil {
		return nil, "", fmt.Errorf("failed to write description: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
