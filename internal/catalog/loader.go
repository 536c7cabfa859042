package catalog

import (
	"context"

	"printstore/internal/domain"
	"printstore/internal/log"
)

// Result is what a page render works with. Degraded means the catalog could
// not be loaded and Catalog is empty.
type Result struct {
	Catalog  domain.Catalog
	Degraded bool
	Err      error
}

type Loader struct {
	src Source
}

func NewLoader(src Source) *Loader { return &Loader{src: src} }

func (l *Loader) Source() Source { return l.src }

// Load fetches and decodes the catalog. It never fails: on error it returns
// an empty, degraded result and logs the cause. Nothing is cached between calls.
func (l *Loader) Load(ctx context.Context) Result {
	data, err := l.src.Fetch(ctx)
	if err != nil {
		log.Warn(nil, "catalog.load.fail", err, map[string]any{"source": l.src.String()})
		return Result{Catalog: domain.Empty(), Degraded: true, Err: err}
	}
	c, rejected, err := Decode(data)
	if err != nil {
		log.Warn(nil, "catalog.load.fail", err, map[string]any{"source": l.src.String()})
		return Result{Catalog: domain.Empty(), Degraded: true, Err: err}
	}
	for _, r := range rejected {
		log.Warn(nil, "catalog.product.reject", r.Err, map[string]any{"index": r.Index, "product_id": r.ID})
	}
	return Result{Catalog: c}
}
