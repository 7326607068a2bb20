package featureflags

import (
	"context"
	"errors"
)

// ErrFlagNotFound is returned when a flag key has no stored value.
var ErrFlagNotFound = errors.New("feature flag not found")

// Repository is the flag storage contract.
type Repository interface {
	GetFlag(ctx context.Context, key string) (*Flag, error)
	GetAllFlags(ctx context.Context) (map[string]*Flag, error)
	SetFlag(ctx context.Context, flag *Flag) error
	SetFlags(ctx context.Context, flags []*Flag) error
	DeleteFlag(ctx context.Context, key string) error
}
