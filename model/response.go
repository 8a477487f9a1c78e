package model

// VirtualTryOnResponse is the predict response of the Vertex AI Virtual
// Try-On model.
type VirtualTryOnResponse struct {
	Predictions []Prediction `json:"predictions"`
}

// Prediction is one generated image.
type Prediction struct {
	MimeType           string `json:"mimeType"`
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	// set instead of the bytes when the request named a storage URI
	StorageURI       string         `json:"storageUri,omitempty"`
	SafetyAttributes map[string]any `json:"safetyAttributes,omitempty"`
}

// TryOnResponse is the body of POST /tryon. On success Output holds a data
// URL and Masked the optional garment mask; on failure only Error is set.
type TryOnResponse struct {
	Output string  `json:"output,omitempty"`
	Masked *string `json:"masked"`
	Error  string  `json:"error,omitempty"`
}

// PoseResponse is the body returned by the pose service's /estimate.
type PoseResponse struct {
	Poses []PoseEntry `json:"poses"`
}

type PoseEntry struct {
	Score     float64         `json:"score"`
	Keypoints []KeypointEntry `json:"keypoints"`
}

type KeypointEntry struct {
	Name  string  `json:"name"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Score float64 `json:"score"`
}

// GarmentEntry is one element of the catalog file and of /data/clothes.json.
type GarmentEntry struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Gender      []string `json:"gender"`
	Description string   `json:"description"`
	ImageURL    string   `json:"imageUrl"`
}
