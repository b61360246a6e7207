package period

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/edinet-cli/internal/model"
	"github.com/sells-group/edinet-cli/internal/store"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type mockLookup struct {
	mock.Mock
}

func (m *mockLookup) GetDocument(ctx context.Context, documentID string) (*model.Document, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newResolver(lookup DocumentLookup) *Resolver {
	return New(lookup, Options{TargetTypeCodes: []model.DocumentTypeCode{
		model.DocumentType120, model.DocumentType130, model.DocumentType140, model.DocumentType150,
	}})
}

func TestResolve_PeriodEndPresent(t *testing.T) {
	lookup := &mockLookup{}
	r := newResolver(lookup)

	got, err := r.Resolve(context.Background(), "2020-12-31", "S100PARENT")
	require.NoError(t, err)
	assert.Equal(t, date(2020, 1, 1), got)
	lookup.AssertNotCalled(t, "GetDocument", mock.Anything, mock.Anything)
}

func TestResolve_InheritsParentPeriod(t *testing.T) {
	lookup := &mockLookup{}
	parentPeriod := date(2019, 1, 1)
	lookup.On("GetDocument", mock.Anything, "S100PARENT").
		Return(&model.Document{DocumentID: "S100PARENT", DocumentPeriod: &parentPeriod}, nil).Once()
	r := newResolver(lookup)

	got, err := r.Resolve(context.Background(), "", "S100PARENT")
	require.NoError(t, err)
	assert.Equal(t, parentPeriod, got)

	// Second call is served from the cache.
	got, err = r.Resolve(context.Background(), "", "S100PARENT")
	require.NoError(t, err)
	assert.Equal(t, parentPeriod, got)
	lookup.AssertExpectations(t)
}

func TestResolve_ParentWithoutResolvedPeriod(t *testing.T) {
	sentinel := model.PeriodSentinel
	tests := []struct {
		name   string
		parent *model.Document
		err    error
	}{
		{name: "parent missing", err: eris.Wrap(store.ErrNotFound, "document S100PARENT")},
		{name: "parent period absent", parent: &model.Document{DocumentID: "S100PARENT"}},
		{name: "parent period sentinel", parent: &model.Document{DocumentID: "S100PARENT", DocumentPeriod: &sentinel}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := &mockLookup{}
			if tt.parent != nil {
				lookup.On("GetDocument", mock.Anything, "S100PARENT").Return(tt.parent, nil)
			} else {
				lookup.On("GetDocument", mock.Anything, "S100PARENT").Return(nil, tt.err)
			}
			r := newResolver(lookup)

			got, err := r.Resolve(context.Background(), "", "S100PARENT")
			require.NoError(t, err)
			assert.Equal(t, model.PeriodSentinel, got)
		})
	}
}

func TestResolve_NeitherPresent(t *testing.T) {
	r := newResolver(&mockLookup{})
	got, err := r.Resolve(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, model.PeriodSentinel, got)
}

func TestResolve_UnparseablePeriodEndFallsBack(t *testing.T) {
	r := newResolver(&mockLookup{})
	got, err := r.Resolve(context.Background(), "n/a", "")
	require.NoError(t, err)
	assert.Equal(t, model.PeriodSentinel, got)
}

func TestResolve_LookupFailure(t *testing.T) {
	lookup := &mockLookup{}
	lookup.On("GetDocument", mock.Anything, "S100PARENT").Return(nil, eris.New("connection reset"))
	r := newResolver(lookup)

	_, err := r.Resolve(context.Background(), "", "S100PARENT")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lookup parent")
}

func TestResolveFor_OutOfScopeTypeIsAbsent(t *testing.T) {
	r := newResolver(&mockLookup{})

	got, err := r.ResolveFor(context.Background(), model.DocumentType160, "", "")
	require.NoError(t, err)
	assert.Nil(t, got, "out-of-scope types keep an absent period")

	got, err = r.ResolveFor(context.Background(), model.DocumentType120, "", "")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.PeriodSentinel, *got)

	got, err = r.ResolveFor(context.Background(), model.DocumentType140, "2021-06-30", "")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, date(2021, 1, 1), *got)
}
