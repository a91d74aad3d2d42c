package executor

import (
	"fmt"
	"log/slog"
	"sync"

	apperrors "github.com/Adithya-Monish-Kumar-K/static-search/pkg/errors"
)

// Holder loads the process's engine on first use. Every later call returns
// the same engine, or the same error if loading failed; there is no reload.
type Holder struct {
	engine func() (*Engine, error)
}

func NewHolder(load func() ([]byte, error)) *Holder {
	logger := slog.Default().With("component", "index-holder")
	return &Holder{
		engine: sync.OnceValues(func() (*Engine, error) {
			data, err := load()
			if err != nil {
				logger.Error("loading index artifact failed", "error", err)
				return nil, fmt.Errorf("%w: loading artifact: %w", apperrors.ErrIndexNotLoaded, err)
			}
			e, err := Load(data)
			if err != nil {
				logger.Error("decoding index artifact failed", "error", err)
				return nil, fmt.Errorf("%w: decoding artifact: %w", apperrors.ErrIndexNotLoaded, err)
			}
			info := e.Info()
			logger.Info("index loaded",
				"entries", info.Entries,
				"filter_kind", info.FilterKind,
				"compression", info.Compression,
				"checksum", fmt.Sprintf("%08x", info.Checksum),
			)
			return e, nil
		}),
	}
}

func (h *Holder) Engine() (*Engine, error) {
	return h.engine()
}
