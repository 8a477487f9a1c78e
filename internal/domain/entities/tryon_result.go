package entities

import (
	"time"

	"github.com/google/uuid"

	"vesteja/internal/domain/valueobjects"
)

type TryOnResultID string

type TryOnResult struct {
	id        TryOnResultID
	requestID TryOnRequestID
	images    []*valueobjects.ImageData
	masked    *valueobjects.ImageData
	createdAt time.Time
}

func NewTryOnResult(requestID TryOnRequestID, images []*valueobjects.ImageData) *TryOnResult {
	return &TryOnResult{
		id:        TryOnResultID("result_" + uuid.NewString()),
		requestID: requestID,
		images:    images,
		createdAt: time.Now(),
	}
}

func (r *TryOnResult) ID() TryOnResultID {
	return r.id
}

func (r *TryOnResult) RequestID() TryOnRequestID {
	return r.requestID
}

func (r *TryOnResult) Images() []*valueobjects.ImageData {
	return r.images
}

// Masked is the garment mask some backends return alongside the output; nil
// when the backend does not produce one.
func (r *TryOnResult) Masked() *valueobjects.ImageData {
	return r.masked
}

func (r *TryOnResult) SetMasked(masked *valueobjects.ImageData) {
	r.masked = masked
}

func (r *TryOnResult) CreatedAt() time.Time {
	return r.createdAt
}

func (r *TryOnResult) HasImages() bool {
	return len(r.images) > 0
}
