package external

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"vesteja/internal/domain/valueobjects"
	"vesteja/model"
)

var ErrPoseModelNotReady = errors.New("pose model not ready")

const maxPoseResponseBytes = 4 << 20

// HTTPPoseEstimator talks to a pose-estimation service. Readiness is
// checked once, on the first estimate; a failed check is retried on the
// next call.
type HTTPPoseEstimator struct {
	endpoint   string
	httpClient *http.Client

	mu    sync.RWMutex
	ready bool
}

func NewHTTPPoseEstimator(endpoint string, timeout time.Duration) *HTTPPoseEstimator {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &HTTPPoseEstimator{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (e *HTTPPoseEstimator) EstimatePoses(ctx context.Context, img image.Image) ([]valueobjects.Pose, error) {
	if err := e.ensureReady(ctx); err != nil {
		return nil, err
	}

	var body bytes.Buffer
	if err := jpeg.Encode(&body, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("failed to encode pose input: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"/estimate", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")

	start := time.Now()
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pose request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pose service returned status %d", resp.StatusCode)
	}

	var parsed model.PoseResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxPoseResponseBytes)).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("malformed pose response: %w", err)
	}

	poses, err := toPoses(parsed)
	if err != nil {
		return nil, fmt.Errorf("malformed pose response: %w", err)
	}

	log.Debug().Int("poses", len(poses)).Dur("duration", time.Since(start)).Msg("Pose estimation done")
	return poses, nil
}

func (e *HTTPPoseEstimator) ensureReady(ctx context.Context) error {
	e.mu.RLock()
	if e.ready {
		e.mu.RUnlock()
		return nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ready {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.endpoint+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPoseModelNotReady, err)
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPoseModelNotReady, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health check returned %d", ErrPoseModelNotReady, resp.StatusCode)
	}

	log.Info().Str("endpoint", e.endpoint).Msg("Pose model ready")
	e.ready = true
	return nil
}

func toPoses(resp model.PoseResponse) ([]valueobjects.Pose, error) {
	poses := make([]valueobjects.Pose, 0, len(resp.Poses))
	for i, p := range resp.Poses {
		keypoints := make([]valueobjects.Keypoint, 0, len(p.Keypoints))
		for _, k := range p.Keypoints {
			kp, err := valueobjects.NewKeypoint(k.Name, k.X, k.Y, k.Score)
			if err != nil {
				return nil, fmt.Errorf("pose %d: %w", i, err)
			}
			keypoints = append(keypoints, kp)
		}
		pose, err := valueobjects.NewPose(p.Score, keypoints)
		if err != nil {
			return nil, fmt.Errorf("pose %d: %w", i, err)
		}
		poses = append(poses, pose)
	}
	return poses, nil
}
