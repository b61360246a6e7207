package document

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/edinet-cli/internal/model"
)

// IsFullyScraped reports whether all three scrape substages are DONE.
func IsFullyScraped(d model.Document) bool {
	return d.IsFullyScraped()
}

// PartitionByScraped splits docs into fully scraped and the rest, keeping
// input order within each half.
func PartitionByScraped(docs []model.Document) (scraped, notScraped []model.Document) {
	for _, d := range docs {
		if IsFullyScraped(d) {
			scraped = append(scraped, d)
		} else {
			notScraped = append(notScraped, d)
		}
	}
	return scraped, notScraped
}

// PartitionByAnalyzed splits docs by the checker's verdict, keeping input
// order within each half.
func PartitionByAnalyzed(ctx context.Context, docs []model.Document, checker AnalysisChecker) (analyzed, notAnalyzed []model.Document, err error) {
	for _, d := range docs {
		ok, err := checker.IsAnalyzed(ctx, d)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "partition: analyzed %s", d.DocumentID)
		}
		if ok {
			analyzed = append(analyzed, d)
		} else {
			notAnalyzed = append(notAnalyzed, d)
		}
	}
	return analyzed, notAnalyzed, nil
}
