package llm

import (
	"context"

	"go.uber.org/zap"
)

// Resilient wraps a Provider with the retry policy. The session turn loop
// always talks to providers through this wrapper so transient failures are
// absorbed at the call boundary instead of surfacing as turn failures.
type Resilient struct {
	inner   Provider
	retryer *Retryer
}

// NewResilient wraps the given provider.
func NewResilient(inner Provider, policy *RetryPolicy, logger *zap.Logger) *Resilient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resilient{
		inner:   inner,
		retryer: NewRetryer(policy, logger.With(zap.String("provider", inner.Name()))),
	}
}

// Generate implements Provider.
func (r *Resilient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	var resp *GenerateResponse
	err := r.retryer.Do(ctx, func() error {
		var callErr error
		resp, callErr = r.inner.Generate(ctx, req)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Name implements Provider.
func (r *Resilient) Name() string {
	return r.inner.Name()
}
