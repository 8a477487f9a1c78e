package repositories

import (
	"image"
	"sync"

	"github.com/corona10/goimagehash"

	"vesteja/internal/domain/valueobjects"
)

// DefaultVerdictThreshold is the dHash Hamming distance used to bucket
// candidate entries before their digests are compared.
const DefaultVerdictThreshold = 5

const DefaultVerdictCapacity = 512

type hashedVerdict struct {
	hash    *goimagehash.ImageHash
	digest  string
	verdict valueobjects.AnalysisResult
}

// HashVerdictCache remembers pose verdicts. Entries are found by perceptual
// difference hash and only returned when the upload digest matches too, so
// an edited photo always goes back to the pose model. A threshold of zero
// or less disables the cache. It is safe for concurrent use; hashing
// failures turn into cache misses.
type HashVerdictCache struct {
	mu        sync.Mutex
	entries   []hashedVerdict
	threshold int
	capacity  int
}

func NewHashVerdictCache(threshold, capacity int) *HashVerdictCache {
	if capacity <= 0 {
		capacity = DefaultVerdictCapacity
	}
	return &HashVerdictCache{threshold: threshold, capacity: capacity}
}

func (c *HashVerdictCache) Enabled() bool {
	return c.threshold > 0
}

func (c *HashVerdictCache) Lookup(digest string, img image.Image) (valueobjects.AnalysisResult, bool) {
	if !c.Enabled() || digest == "" {
		return valueobjects.AnalysisResult{}, false
	}
	hash, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return valueobjects.AnalysisResult{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := len(c.entries) - 1; i >= 0; i-- {
		e := c.entries[i]
		if e.digest != digest {
			continue
		}
		if dist, err := hash.Distance(e.hash); err == nil && dist < c.threshold {
			return e.verdict, true
		}
	}
	return valueobjects.AnalysisResult{}, false
}

// Store records verdict for the photo. analysis_failed is transient and
// never stored.
func (c *HashVerdictCache) Store(digest string, img image.Image, verdict valueobjects.AnalysisResult) {
	if !c.Enabled() || digest == "" || verdict.Reason() == valueobjects.ReasonAnalysisFailed {
		return
	}
	hash, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i, e := range c.entries {
		if e.digest == digest {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			break
		}
	}
	c.entries = append(c.entries, hashedVerdict{hash: hash, digest: digest, verdict: verdict})
	if over := len(c.entries) - c.capacity; over > 0 {
		c.entries = append([]hashedVerdict(nil), c.entries[over:]...)
	}
}

func (c *HashVerdictCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
