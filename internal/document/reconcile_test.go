package document

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/edinet-cli/internal/model"
)

type mockAnalysisChecker struct {
	mock.Mock
}

func (m *mockAnalysisChecker) IsAnalyzed(ctx context.Context, d model.Document) (bool, error) {
	args := m.Called(ctx, d.DocumentID)
	return args.Bool(0), args.Error(1)
}

func scrapeDoc(id string, bs, pl, ns model.Status) model.Document {
	return model.Document{DocumentID: id, ScrapedBS: bs, ScrapedPL: pl, ScrapedNumberOfShares: ns}
}

func TestIsFullyScraped(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		doc  model.Document
		want bool
	}{
		{"all done", scrapeDoc("a", model.StatusDone, model.StatusDone, model.StatusDone), true},
		{"one half way", scrapeDoc("b", model.StatusDone, model.StatusHalfWay, model.StatusDone), false},
		{"one error", scrapeDoc("c", model.StatusError, model.StatusDone, model.StatusDone), false},
		{"not yet", scrapeDoc("d", model.StatusNotYet, model.StatusNotYet, model.StatusNotYet), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsFullyScraped(tt.doc))
		})
	}
}

func TestPartitionByScraped_StableAndCovering(t *testing.T) {
	docs := []model.Document{
		scrapeDoc("1", model.StatusDone, model.StatusDone, model.StatusDone),
		scrapeDoc("2", model.StatusError, model.StatusDone, model.StatusDone),
		scrapeDoc("3", model.StatusDone, model.StatusDone, model.StatusDone),
		scrapeDoc("4", model.StatusNotYet, model.StatusNotYet, model.StatusNotYet),
		scrapeDoc("5", model.StatusDone, model.StatusDone, model.StatusDone),
	}

	scraped, notScraped := PartitionByScraped(docs)
	assert.Equal(t, []string{"1", "3", "5"}, ids(scraped))
	assert.Equal(t, []string{"2", "4"}, ids(notScraped))
	assert.Len(t, append(scraped, notScraped...), len(docs))
}

func TestPartitionByScraped_Empty(t *testing.T) {
	scraped, notScraped := PartitionByScraped(nil)
	assert.Empty(t, scraped)
	assert.Empty(t, notScraped)
}

func TestPartitionByAnalyzed_StableAndCovering(t *testing.T) {
	checker := &mockAnalysisChecker{}
	checker.On("IsAnalyzed", mock.Anything, "1").Return(false, nil)
	checker.On("IsAnalyzed", mock.Anything, "2").Return(true, nil)
	checker.On("IsAnalyzed", mock.Anything, "3").Return(false, nil)
	checker.On("IsAnalyzed", mock.Anything, "4").Return(true, nil)

	docs := []model.Document{{DocumentID: "1"}, {DocumentID: "2"}, {DocumentID: "3"}, {DocumentID: "4"}}
	analyzed, notAnalyzed, err := PartitionByAnalyzed(context.Background(), docs, checker)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "4"}, ids(analyzed))
	assert.Equal(t, []string{"1", "3"}, ids(notAnalyzed))
	checker.AssertExpectations(t)
}

func TestPartitionByAnalyzed_CheckerError(t *testing.T) {
	checker := &mockAnalysisChecker{}
	checker.On("IsAnalyzed", mock.Anything, "1").Return(false, eris.New("db down"))

	_, _, err := PartitionByAnalyzed(context.Background(), []model.Document{{DocumentID: "1"}}, checker)
	assert.Error(t, err)
}
