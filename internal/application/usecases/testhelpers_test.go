package usecases

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"vesteja/internal/domain/entities"
	"vesteja/internal/domain/repositories"
	"vesteja/internal/domain/valueobjects"
)

type mockSessionRepository struct {
	mu       sync.Mutex
	sessions map[entities.SessionID]*entities.WizardSession
}

func newMockSessionRepository() *mockSessionRepository {
	return &mockSessionRepository{sessions: make(map[entities.SessionID]*entities.WizardSession)}
}

func (m *mockSessionRepository) Save(ctx context.Context, session *entities.WizardSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID()] = session
	return nil
}

func (m *mockSessionRepository) FindByID(ctx context.Context, id entities.SessionID) (*entities.WizardSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, entities.ErrSessionNotFound
	}
	return s, nil
}

func (m *mockSessionRepository) Delete(ctx context.Context, id entities.SessionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *mockSessionRepository) DeleteIdle(ctx context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.UpdatedAt().Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

type stubEvaluator struct {
	verdict valueobjects.AnalysisResult
	calls   int
}

func (s *stubEvaluator) Evaluate(ctx context.Context, photo *valueobjects.ImageData) valueobjects.AnalysisResult {
	s.calls++
	return s.verdict
}

type mockTryOnClient struct {
	mu          sync.Mutex
	url         string
	err         error
	submissions []repositories.TryOnSubmission
}

func (m *mockTryOnClient) TryOn(ctx context.Context, submission repositories.TryOnSubmission) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submissions = append(m.submissions, submission)
	return m.url, m.err
}

type mockFetcher struct {
	image *valueobjects.ImageData
	err   error
}

func (m *mockFetcher) Fetch(ctx context.Context, imageURL string) (*valueobjects.ImageData, error) {
	return m.image, m.err
}

// immediateProgress shows only the first message and records cancellation.
type immediateProgress struct {
	mu      sync.Mutex
	stopped bool
}

func (p *immediateProgress) Start(messages []string, emit func(string)) func() {
	if len(messages) > 0 {
		emit(messages[0])
	}
	return func() {
		p.mu.Lock()
		p.stopped = true
		p.mu.Unlock()
	}
}

func (p *immediateProgress) wasStopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}

type mockResultStore struct {
	mu       sync.Mutex
	archived int
	url      string
	err      error
}

func (m *mockResultStore) Archive(ctx context.Context, id entities.SessionID, img *valueobjects.ImageData) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.archived++
	return m.url, m.err
}

func grayPNG(t *testing.T, level uint8) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 16; x++ {
			img.SetRGBA(x, y, color.RGBA{R: level, G: level, B: level, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func grayImage(t *testing.T, level uint8) *valueobjects.ImageData {
	t.Helper()
	img, err := valueobjects.NewImageData(grayPNG(t, level))
	if err != nil {
		t.Fatalf("NewImageData() error = %v", err)
	}
	return img
}

func testCatalog(t *testing.T) *entities.Catalog {
	t.Helper()
	specs := []struct {
		id       int
		name     string
		category string
		genders  []string
	}{
		{1, "Vestido Floral", "Vestidos", []string{"feminino"}},
		{2, "Camiseta Básica", "Camisetas", []string{"feminino", "masculino"}},
		{3, "Camisa Social", "Camisas", []string{"masculino"}},
		{4, "Vestido Longo", "Vestidos", []string{"feminino"}},
	}
	var garments []*entities.Garment
	for _, s := range specs {
		g, err := entities.NewGarment(s.id, s.name, s.category, s.genders, s.name+" description", "/img/"+s.name+".png")
		if err != nil {
			t.Fatalf("NewGarment() error = %v", err)
		}
		garments = append(garments, g)
	}
	catalog, err := entities.NewCatalog(garments)
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}
	return catalog
}
