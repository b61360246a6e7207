// Package period derives a document's representative fiscal period from its
// registry metadata or, one level up, from its parent document.
package period

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/edinet-cli/internal/model"
	"github.com/sells-group/edinet-cli/internal/store"
)

// DocumentLookup reads a stored document by id. store.Store satisfies it.
type DocumentLookup interface {
	GetDocument(ctx context.Context, documentID string) (*model.Document, error)
}

// Options configures a Resolver.
type Options struct {
	// TargetTypeCodes are the document types whose period is resolved at
	// all. Other types keep an absent period.
	TargetTypeCodes []model.DocumentTypeCode
	// CacheTTL bounds how long a parent's resolved period is reused.
	CacheTTL time.Duration
}

// Resolver resolves document periods.
type Resolver struct {
	docs    DocumentLookup
	targets []model.DocumentTypeCode
	parents *cache.Cache
	log     *zap.Logger
}

// New creates a Resolver.
func New(docs DocumentLookup, opts Options) *Resolver {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Resolver{
		docs:    docs,
		targets: opts.TargetTypeCodes,
		parents: cache.New(ttl, 2*ttl),
		log:     zap.L().With(zap.String("component", "period")),
	}
}

// Resolve returns the period for a document with the given raw period end
// and parent id. A present period end yields January 1st of its year. Without
// one, a stored parent's resolved period is inherited. Only the direct parent
// is consulted. Otherwise the result is model.PeriodSentinel.
func (r *Resolver) Resolve(ctx context.Context, periodEndRaw, parentID string) (time.Time, error) {
	if periodEndRaw = strings.TrimSpace(periodEndRaw); periodEndRaw != "" {
		if p, ok := yearStart(periodEndRaw); ok {
			return p, nil
		}
		r.log.Warn("unparseable period end, falling back to parent",
			zap.String("period_end", periodEndRaw),
			zap.String("parent_document_id", parentID),
		)
	}

	if parentID = strings.TrimSpace(parentID); parentID == "" {
		return model.PeriodSentinel, nil
	}

	if v, ok := r.parents.Get(parentID); ok {
		return v.(time.Time), nil
	}

	parent, err := r.docs.GetDocument(ctx, parentID)
	if errors.Is(err, store.ErrNotFound) {
		return model.PeriodSentinel, nil
	}
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "period: lookup parent %s", parentID)
	}
	if !parent.HasResolvedPeriod() {
		return model.PeriodSentinel, nil
	}

	p := parent.DocumentPeriod.UTC()
	r.parents.Set(parentID, p, cache.DefaultExpiration)
	return p, nil
}

// ResolveFor resolves the period for a registry result of the given type.
// Types outside the target set return nil: the period stays absent and is
// never forced to the sentinel.
func (r *Resolver) ResolveFor(ctx context.Context, typeCode model.DocumentTypeCode, periodEndRaw, parentID string) (*time.Time, error) {
	if !r.InScope(typeCode) {
		return nil, nil
	}
	p, err := r.Resolve(ctx, periodEndRaw, parentID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// InScope reports whether periods are resolved for the type code.
func (r *Resolver) InScope(typeCode model.DocumentTypeCode) bool {
	return model.ContainsDocumentType(r.targets, typeCode)
}

// yearStart parses the leading four-digit year of a raw period end.
func yearStart(raw string) (time.Time, bool) {
	if len(raw) < 4 {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(raw[:4])
	if err != nil || year <= 0 {
		return time.Time{}, false
	}
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), true
}
