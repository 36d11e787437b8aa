package usecase

import (
	"context"
	"time"

	"github.com/physai/textbook-rag/internal/core/domain"
)

const probeTimeout = 2 * time.Second

// Health reports per-dependency liveness with cheap probes only; it never
// runs a search or touches the corpus.
func (uc *QueryUseCase) Health(ctx context.Context) domain.HealthStatus {
	status := domain.HealthStatus{
		VectorIndex: domain.ServiceDown,
		Catalog:     domain.ServiceDown,
		Encoder:     domain.ServiceDown,
	}

	if err := uc.encoder.Ready(); err == nil {
		status.Encoder = domain.ServiceUp
	}

	indexCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	if err := uc.index.Ping(indexCtx); err == nil {
		status.VectorIndex = domain.ServiceUp
	}
	cancel()

	catalogCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	if err := uc.catalog.Ping(catalogCtx); err == nil {
		status.Catalog = domain.ServiceUp
	}
	cancel()

	return status
}
