package document

import (
	"context"
	"errors"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rotisserie/eris"

	"github.com/sells-group/edinet-cli/internal/model"
	"github.com/sells-group/edinet-cli/internal/store"
)

// Eligibility decides whether a filer's industry is in scope.
type Eligibility interface {
	IsInScopeIndustry(ctx context.Context, edinetCode string) (bool, error)
}

// AnalysisChecker reports whether a document already has a valuation.
type AnalysisChecker interface {
	IsAnalyzed(ctx context.Context, d model.Document) (bool, error)
}

// CompanyReader reads a filer by EDINET code.
type CompanyReader interface {
	GetCompany(ctx context.Context, edinetCode string) (*model.Company, error)
}

// IndustryFilter is the store-backed Eligibility. A filer is in scope when
// it is registered, listed (has a securities code) and its industry is not
// excluded. Verdicts are cached.
type IndustryFilter struct {
	companies CompanyReader
	excluded  map[string]struct{}
	cache     *cache.Cache
}

// NewIndustryFilter creates an IndustryFilter excluding the given industries.
func NewIndustryFilter(companies CompanyReader, excludedIndustries []string, ttl time.Duration) *IndustryFilter {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	excluded := make(map[string]struct{}, len(excludedIndustries))
	for _, ind := range excludedIndustries {
		excluded[ind] = struct{}{}
	}
	return &IndustryFilter{
		companies: companies,
		excluded:  excluded,
		cache:     cache.New(ttl, 2*ttl),
	}
}

// IsInScopeIndustry implements Eligibility.
func (f *IndustryFilter) IsInScopeIndustry(ctx context.Context, edinetCode string) (bool, error) {
	if v, ok := f.cache.Get(edinetCode); ok {
		return v.(bool), nil
	}

	c, err := f.companies.GetCompany(ctx, edinetCode)
	if errors.Is(err, store.ErrNotFound) {
		// Unknown filers are not cached; they may be imported later.
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "eligibility: company %s", edinetCode)
	}

	_, isExcluded := f.excluded[c.Industry]
	ok := c.IsListed() && !c.Removed && !isExcluded
	f.cache.Set(edinetCode, ok, cache.DefaultExpiration)
	return ok, nil
}

// Flush drops cached verdicts, e.g. after a company import.
func (f *IndustryFilter) Flush() {
	f.cache.Flush()
}

// AnalysisLookup is the store query behind StoreAnalysisChecker.
type AnalysisLookup interface {
	IsAnalyzed(ctx context.Context, documentID string) (bool, error)
}

// StoreAnalysisChecker treats a document as analyzed when an analysis
// result row exists for it.
type StoreAnalysisChecker struct {
	lookup AnalysisLookup
}

// NewStoreAnalysisChecker creates a StoreAnalysisChecker.
func NewStoreAnalysisChecker(lookup AnalysisLookup) *StoreAnalysisChecker {
	return &StoreAnalysisChecker{lookup: lookup}
}

// IsAnalyzed implements AnalysisChecker.
func (c *StoreAnalysisChecker) IsAnalyzed(ctx context.Context, d model.Document) (bool, error) {
	ok, err := c.lookup.IsAnalyzed(ctx, d.DocumentID)
	if err != nil {
		return false, eris.Wrapf(err, "analysis: lookup %s", d.DocumentID)
	}
	return ok, nil
}
