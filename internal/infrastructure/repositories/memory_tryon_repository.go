package repositories

import (
	"context"
	"fmt"
	"sync"

	"vesteja/internal/domain/entities"
	domainrepos "vesteja/internal/domain/repositories"
)

// DefaultTryOnHistory is how many requests the memory repository keeps.
const DefaultTryOnHistory = 256

// MemoryTryOnRepository keeps the most recent try-on requests and their
// results. The oldest request and its result are dropped once the limit is
// reached.
type MemoryTryOnRepository struct {
	requests map[entities.TryOnRequestID]*entities.TryOnRequest
	results  map[entities.TryOnRequestID]*entities.TryOnResult
	order    []entities.TryOnRequestID
	limit    int
	mu       sync.RWMutex
}

func NewMemoryTryOnRepository(limit int) domainrepos.TryOnRepository {
	if limit <= 0 {
		limit = DefaultTryOnHistory
	}
	return &MemoryTryOnRepository{
		requests: make(map[entities.TryOnRequestID]*entities.TryOnRequest),
		results:  make(map[entities.TryOnRequestID]*entities.TryOnResult),
		limit:    limit,
	}
}

func (r *MemoryTryOnRepository) Save(ctx context.Context, request *entities.TryOnRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.requests[request.ID()]; !exists {
		r.order = append(r.order, request.ID())
	}
	r.requests[request.ID()] = request

	for len(r.order) > r.limit {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.requests, oldest)
		delete(r.results, oldest)
	}
	return nil
}

func (r *MemoryTryOnRepository) FindByID(ctx context.Context, id entities.TryOnRequestID) (*entities.TryOnRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	request, exists := r.requests[id]
	if !exists {
		return nil, fmt.Errorf("request not found: %s", id)
	}

	return request, nil
}

func (r *MemoryTryOnRepository) SaveResult(ctx context.Context, result *entities.TryOnResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.requests[result.RequestID()]; !exists {
		return fmt.Errorf("request not found: %s", result.RequestID())
	}
	r.results[result.RequestID()] = result
	return nil
}

func (r *MemoryTryOnRepository) FindResultByRequestID(ctx context.Context, requestID entities.TryOnRequestID) (*entities.TryOnResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result, exists := r.results[requestID]
	if !exists {
		return nil, fmt.Errorf("result not found for request: %s", requestID)
	}

	return result, nil
}
