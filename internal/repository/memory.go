package repository

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/atinyakov/formrelay/internal/models"
)

// MemoryDeliveryRepository keeps deliveries in process memory. It is used
// when the stub runs without a database.
type MemoryDeliveryRepository struct {
	mu         sync.Mutex
	deliveries []models.Delivery
}

// NewMemoryDeliveryRepository returns an empty in-memory repository.
func NewMemoryDeliveryRepository() *MemoryDeliveryRepository {
	return &MemoryDeliveryRepository{}
}

// Record appends d.
func (r *MemoryDeliveryRepository) Record(_ context.Context, d models.Delivery) error {
	d.Fields = maps.Clone(d.Fields)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = append(r.deliveries, d)
	return nil
}

// List mirrors PostgresDeliveryRepository.List.
func (r *MemoryDeliveryRepository) List(_ context.Context, submissionID string) ([]models.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Delivery
	if submissionID != "" {
		for _, d := range r.deliveries {
			if d.SubmissionID == submissionID {
				out = append(out, d)
			}
		}
		return out, nil
	}

	for i := len(r.deliveries) - 1; i >= 0 && len(out) < recentLimit; i-- {
		out = append(out, r.deliveries[i])
	}
	return out, nil
}

// Forget deletes every delivery of the given submissions.
func (r *MemoryDeliveryRepository) Forget(_ context.Context, submissionIDs []string) (int64, error) {
	return r.removeIf(func(d models.Delivery) bool {
		return slices.Contains(submissionIDs, d.SubmissionID)
	}), nil
}

// PurgeBefore deletes deliveries received before cutoff.
func (r *MemoryDeliveryRepository) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	return r.removeIf(func(d models.Delivery) bool {
		return d.ReceivedAt.Before(cutoff)
	}), nil
}

func (r *MemoryDeliveryRepository) removeIf(drop func(models.Delivery) bool) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	before := len(r.deliveries)
	r.deliveries = slices.DeleteFunc(r.deliveries, drop)
	return int64(before - len(r.deliveries))
}
