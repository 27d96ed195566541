package location

import (
	"context"
	"errors"

	"github.com/benmeehan/route-sentinel/internal/models"
)

// ErrNoFix is returned when the provider has no usable position yet.
var ErrNoFix = errors.New("no position fix")

// Provider interface defines the methods for location providers
type Provider interface {
	GetLocation(ctx context.Context) (models.Position, error)
	Close() error
}
