package oracle

import (
	"context"

	"github.com/pkg/errors"

	"github.com/NamanSrivas/precious-metals-app/internal/model"
)

var (
	ErrUnknownMetal    = errors.New("unknown metal code")
	ErrTransient       = errors.New("network timeout")
	ErrInvalidResponse = errors.New("invalid API response")
)

// Source fetches one price snapshot. Implementations return errors;
// Oracle turns them into fallback data.
type Source interface {
	FetchPrice(ctx context.Context, code string) (model.PriceSnapshot, error)
	Name() string
}
