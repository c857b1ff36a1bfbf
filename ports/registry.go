// Package ports declares the interfaces the application layer depends on.
package ports

import (
	"context"

	"trialmetrics/domain/trial"
)

// TrialRegistryPort looks up trials in a public registry.
type TrialRegistryPort interface {
	Search(ctx context.Context, condition string, status trial.Status, pageSize int) (trial.SearchPage, error)
	Get(ctx context.Context, nctID string) (trial.Summary, error)
}
