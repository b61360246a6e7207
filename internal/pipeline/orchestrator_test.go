package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/edinet-cli/internal/document"
	"github.com/sells-group/edinet-cli/internal/files"
	"github.com/sells-group/edinet-cli/internal/master"
	"github.com/sells-group/edinet-cli/internal/model"
	"github.com/sells-group/edinet-cli/internal/period"
	"github.com/sells-group/edinet-cli/internal/scrape"
	"github.com/sells-group/edinet-cli/internal/store"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

const docID = "S100TEST"

var (
	submitDate  = time.Date(2021, 6, 25, 0, 0, 0, 0, time.UTC)
	targetTypes = []model.DocumentTypeCode{
		model.DocumentType120, model.DocumentType130, model.DocumentType140, model.DocumentType150,
	}
)

type mockFiles struct {
	mock.Mock
	dir string
}

func (m *mockFiles) Download(ctx context.Context, date time.Time, id string) error {
	return m.Called(ctx, date, id).Error(0)
}

func (m *mockFiles) Decode(ctx context.Context, date time.Time, id string) error {
	return m.Called(ctx, date, id).Error(0)
}

func (m *mockFiles) FindDecodedIDs(date time.Time) ([]string, error) {
	args := m.Called(date)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

func (m *mockFiles) ScrapeDir(time.Time, string) string { return m.dir }

type fixture struct {
	store    *store.SQLiteStore
	registry *document.Registry
	files    *mockFiles
	orch     *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(ctx))

	require.NoError(t, st.InsertCompany(ctx, model.Company{
		EdinetCode: "E02144", Code: "72030", Name: "トヨタ自動車株式会社", Industry: "輸送用機器",
	}))

	reg := document.NewRegistry(st,
		period.New(st, period.Options{TargetTypeCodes: targetTypes}),
		document.NewIndustryFilter(st, []string{"銀行業"}, time.Minute),
		document.NewStoreAnalysisChecker(st),
		document.Options{TargetTypeCodes: targetTypes, RemoveTypeCodes: targetTypes},
	)

	src := model.PeriodSource{
		DocumentID: docID, EdinetCode: "E02144", DocTypeCode: "120",
		PeriodStart: "2020-04-01", PeriodEnd: "2021-03-31",
	}
	_, err = st.SavePeriodSources(ctx, []model.PeriodSource{src})
	require.NoError(t, err)
	n, err := reg.InsertDiscovered(ctx, submitDate, []model.PeriodSource{src})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	m, err := master.Load("")
	require.NoError(t, err)

	fs := &mockFiles{dir: t.TempDir()}
	return &fixture{
		store:    st,
		registry: reg,
		files:    fs,
		orch:     New(reg, fs, scrape.NewLocator(), scrape.NewScraper(), m, st),
	}
}

func (f *fixture) writeBody(t *testing.T, name, keyword, table string) {
	t.Helper()
	body := `<html><body><ix:nonNumeric name="` + keyword + `">` + table + `</ix:nonNumeric></body></html>`
	require.NoError(t, os.WriteFile(filepath.Join(f.files.dir, name), []byte(body), 0o644))
}

func (f *fixture) writeAllStatements(t *testing.T) {
	t.Helper()
	f.writeBody(t, "0105010_honbun.htm", "jpcrp_cor:BalanceSheetTextBlock", `<table>
<tr><td>（単位：百万円）</td></tr>
<tr><td></td><td>前事業年度</td><td>当事業年度</td></tr>
<tr><td>流動資産合計</td><td>1,000</td><td>※1 1,200</td></tr>
<tr><td>流動負債合計</td><td>250</td><td>300</td></tr>
<tr><td>負債合計</td><td>250</td><td>300</td></tr>
</table>`)
	f.writeBody(t, "0105020_honbun.htm", "jpcrp_cor:StatementOfIncomeTextBlock", `<table>
<tr><td>（単位：千円）</td></tr>
<tr><td>当事業年度</td></tr>
<tr><td>売上高</td><td>500</td></tr>
<tr><td>営業利益</td><td>△20</td></tr>
</table>`)
	f.writeBody(t, "0104010_honbun.htm", "jpcrp_cor:IssuedSharesTotalNumberOfSharesEtcTextBlock", `<table>
<tr><td>種類</td><td>事業年度末現在発行数(株)</td></tr>
<tr><td>普通株式</td><td>3,262,997,492</td></tr>
<tr><td>計</td><td>3,262,997,492</td></tr>
</table>`)
}

func (f *fixture) doc(t *testing.T) *model.Document {
	t.Helper()
	d, err := f.registry.Find(context.Background(), docID)
	require.NoError(t, err)
	return d
}

func (f *fixture) values(t *testing.T) map[string]*int64 {
	t.Helper()
	vals, err := f.store.ListFinancialValues(context.Background(), docID)
	require.NoError(t, err)
	out := make(map[string]*int64, len(vals))
	for _, v := range vals {
		assert.Equal(t, "72030", v.CompanyCode)
		assert.Equal(t, "2021-03-31", v.PeriodEnd)
		assert.Equal(t, model.CreatedAuto, v.CreatedType)
		out[string(v.Stage)+"/"+v.SubjectID] = v.Value
	}
	return out
}

func ptr(v int64) *int64 { return &v }

func TestProcess_DownloadsDecodesAndScrapes(t *testing.T) {
	f := newFixture(t)
	f.writeAllStatements(t)
	f.files.On("FindDecodedIDs", submitDate).Return([]string{"S100OTHR"}, nil)
	f.files.On("Download", mock.Anything, submitDate, docID).Return(nil)
	f.files.On("Decode", mock.Anything, submitDate, docID).Return(nil)

	require.NoError(t, f.orch.Process(context.Background(), docID))

	d := f.doc(t)
	assert.Equal(t, model.StatusDone, d.Downloaded)
	assert.Equal(t, model.StatusDone, d.Decoded)
	assert.True(t, d.IsFullyScraped())
	assert.Equal(t, filepath.Join(f.files.dir, "0105010_honbun.htm"), d.BSDocumentPath)
	assert.Equal(t, filepath.Join(f.files.dir, "0105020_honbun.htm"), d.PLDocumentPath)
	assert.Equal(t, filepath.Join(f.files.dir, "0104010_honbun.htm"), d.NSDocumentPath)
	assert.False(t, d.Removed)

	assert.Equal(t, map[string]*int64{
		"bs/1":  ptr(1_200_000_000),
		"bs/8":  ptr(300_000_000),
		"bs/10": ptr(300_000_000),
		"bs/9":  ptr(0),
		"pl/1":  ptr(500_000),
		"pl/3":  ptr(-20_000),
		"ns/0":  ptr(3_262_997_492),
	}, f.values(t))
	f.files.AssertExpectations(t)
}

func TestProcess_AlreadyDecodedSkipsDownload(t *testing.T) {
	f := newFixture(t)
	f.writeAllStatements(t)
	f.files.On("FindDecodedIDs", submitDate).Return([]string{docID}, nil)

	require.NoError(t, f.orch.Process(context.Background(), docID))

	d := f.doc(t)
	assert.Equal(t, model.StatusDone, d.Downloaded)
	assert.Equal(t, model.StatusDone, d.Decoded)
	assert.True(t, d.IsFullyScraped())
	f.files.AssertNotCalled(t, "Download", mock.Anything, mock.Anything, mock.Anything)
	f.files.AssertNotCalled(t, "Decode", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcess_DownloadFailureSkipsDecodeAndScrape(t *testing.T) {
	f := newFixture(t)
	f.writeAllStatements(t)
	f.files.On("FindDecodedIDs", submitDate).Return(nil, nil)
	f.files.On("Download", mock.Anything, submitDate, docID).
		Return(eris.Wrap(files.ErrDownload, "connection reset"))

	require.NoError(t, f.orch.Process(context.Background(), docID))

	d := f.doc(t)
	assert.Equal(t, model.StatusError, d.Downloaded)
	assert.Equal(t, model.StatusNotYet, d.Decoded)
	for _, s := range model.ScrapeStages {
		assert.Equal(t, model.StatusNotYet, d.StageStatus(s), s)
	}
	assert.False(t, d.Removed)
	f.files.AssertNotCalled(t, "Decode", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcess_DecodeFailureGatesScrape(t *testing.T) {
	f := newFixture(t)
	f.writeAllStatements(t)
	f.files.On("FindDecodedIDs", submitDate).Return(nil, nil)
	f.files.On("Download", mock.Anything, submitDate, docID).Return(nil)
	f.files.On("Decode", mock.Anything, submitDate, docID).Return(eris.Wrap(files.ErrDecode, "zip: not a valid zip file"))

	require.NoError(t, f.orch.Process(context.Background(), docID))

	d := f.doc(t)
	assert.Equal(t, model.StatusDone, d.Downloaded)
	assert.Equal(t, model.StatusError, d.Decoded)
	for _, s := range model.ScrapeStages {
		assert.Equal(t, model.StatusNotYet, d.StageStatus(s), s)
	}
	assert.Empty(t, f.values(t))
}

func TestProcess_AllScrapesFailedRemovesDocument(t *testing.T) {
	f := newFixture(t)
	f.files.On("FindDecodedIDs", submitDate).Return([]string{docID}, nil)

	require.NoError(t, f.orch.Process(context.Background(), docID))

	d := f.doc(t)
	assert.True(t, d.AllScrapesFailed())
	assert.True(t, d.Removed)
}

func TestProcess_PartialFailureKeepsDocument(t *testing.T) {
	f := newFixture(t)
	f.writeBody(t, "0104010_honbun.htm", "jpcrp_cor:IssuedSharesTotalNumberOfSharesEtcTextBlock", `<table>
<tr><td>種類</td><td>事業年度末現在発行数(株)</td></tr>
<tr><td>計</td><td>1,000</td></tr>
</table>`)
	f.files.On("FindDecodedIDs", submitDate).Return([]string{docID}, nil)

	require.NoError(t, f.orch.Process(context.Background(), docID))

	d := f.doc(t)
	assert.Equal(t, model.StatusError, d.ScrapedBS)
	assert.Equal(t, model.StatusError, d.ScrapedPL)
	assert.Equal(t, model.StatusDone, d.ScrapedNumberOfShares)
	assert.False(t, d.Removed)
}

func TestProcess_MalformedTableIsStageError(t *testing.T) {
	f := newFixture(t)
	f.writeAllStatements(t)
	f.writeBody(t, "0105010_honbun.htm", "jpcrp_cor:BalanceSheetTextBlock",
		`<table><tr><td>no unit</td></tr><tr><td>a</td><td>b</td></tr></table>`)
	f.files.On("FindDecodedIDs", submitDate).Return([]string{docID}, nil)

	require.NoError(t, f.orch.Process(context.Background(), docID))

	d := f.doc(t)
	assert.Equal(t, model.StatusError, d.ScrapedBS)
	assert.Equal(t, model.StatusDone, d.ScrapedPL)
	assert.Equal(t, model.StatusDone, d.ScrapedNumberOfShares)
}

func TestProcess_OnlyNotYetStagesRun(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.SetStageStatus(ctx, docID, model.StageDownload, model.StatusDone, ""))
	require.NoError(t, f.store.SetStageStatus(ctx, docID, model.StageDecode, model.StatusDone, ""))
	require.NoError(t, f.store.SetStageStatus(ctx, docID, model.StageBS, model.StatusDone, "/earlier/bs.htm"))
	require.NoError(t, f.store.SetStageStatus(ctx, docID, model.StagePL, model.StatusHalfWay, ""))

	require.NoError(t, f.orch.Process(ctx, docID))

	d := f.doc(t)
	assert.Equal(t, model.StatusDone, d.ScrapedBS)
	assert.Equal(t, "/earlier/bs.htm", d.BSDocumentPath)
	assert.Equal(t, model.StatusHalfWay, d.ScrapedPL)
	assert.Equal(t, model.StatusError, d.ScrapedNumberOfShares)
	assert.False(t, d.Removed)
	f.files.AssertNotCalled(t, "FindDecodedIDs", mock.Anything)
}

func TestProcess_ResumesDecodeAfterDownload(t *testing.T) {
	f := newFixture(t)
	f.writeAllStatements(t)
	ctx := context.Background()
	require.NoError(t, f.store.SetStageStatus(ctx, docID, model.StageDownload, model.StatusDone, ""))
	f.files.On("Decode", mock.Anything, submitDate, docID).Return(nil)

	require.NoError(t, f.orch.Process(ctx, docID))

	d := f.doc(t)
	assert.Equal(t, model.StatusDone, d.Decoded)
	assert.True(t, d.IsFullyScraped())
	f.files.AssertNotCalled(t, "Download", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcess_SecondPassIsNoop(t *testing.T) {
	f := newFixture(t)
	f.writeAllStatements(t)
	f.files.On("FindDecodedIDs", submitDate).Return([]string{docID}, nil).Once()

	ctx := context.Background()
	require.NoError(t, f.orch.Process(ctx, docID))
	before := f.values(t)
	require.NoError(t, f.orch.Process(ctx, docID))

	assert.Equal(t, before, f.values(t))
	f.files.AssertExpectations(t)
}

// concurrentWriter is a Registry whose stored state is changed by another
// writer right after the orchestrator records a decode outcome.
type concurrentWriter struct {
	*document.Registry
	afterDecode func(ctx context.Context)
}

func (w *concurrentWriter) MarkDecoded(ctx context.Context, id string, status model.Status) error {
	if err := w.Registry.MarkDecoded(ctx, id, status); err != nil {
		return err
	}
	w.afterDecode(ctx)
	return nil
}

func TestProcess_ScrapeFollowsStoredStatus(t *testing.T) {
	f := newFixture(t)
	f.writeAllStatements(t)
	f.files.On("FindDecodedIDs", submitDate).Return([]string{docID}, nil)

	w := &concurrentWriter{Registry: f.registry, afterDecode: func(ctx context.Context) {
		require.NoError(t, f.store.SetStageStatus(ctx, docID, model.StagePL, model.StatusHalfWay, ""))
	}}
	orch := New(w, f.files, scrape.NewLocator(), scrape.NewScraper(), f.orch.master, f.store)

	require.NoError(t, orch.Process(context.Background(), docID))

	d := f.doc(t)
	assert.Equal(t, model.StatusDone, d.ScrapedBS)
	assert.Equal(t, model.StatusHalfWay, d.ScrapedPL)
	assert.Empty(t, d.PLDocumentPath)
	assert.Equal(t, model.StatusDone, d.ScrapedNumberOfShares)

	vals := f.values(t)
	assert.Contains(t, vals, "bs/1")
	assert.NotContains(t, vals, "pl/1")
}

func TestProcess_DecodeOverwrittenBeforeScrape(t *testing.T) {
	f := newFixture(t)
	f.writeAllStatements(t)
	f.files.On("FindDecodedIDs", submitDate).Return([]string{docID}, nil)

	w := &concurrentWriter{Registry: f.registry, afterDecode: func(ctx context.Context) {
		require.NoError(t, f.store.SetStageStatus(ctx, docID, model.StageDecode, model.StatusError, ""))
	}}
	orch := New(w, f.files, scrape.NewLocator(), scrape.NewScraper(), f.orch.master, f.store)

	require.NoError(t, orch.Process(context.Background(), docID))

	d := f.doc(t)
	assert.Equal(t, model.StatusError, d.Decoded)
	for _, s := range model.ScrapeStages {
		assert.Equal(t, model.StatusNotYet, d.StageStatus(s), s)
	}
	assert.Empty(t, f.values(t))
}

func TestProcess_UnknownDocument(t *testing.T) {
	f := newFixture(t)
	err := f.orch.Process(context.Background(), "S100NONE")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCompleteBalanceSheet_Quarterly(t *testing.T) {
	x := &extraction{
		doc: model.Document{DocumentID: docID, DocumentTypeCode: model.DocumentType140},
		log: zap.NewNop(),
	}
	values := []model.FinancialValue{
		x.value(model.StageBS, master.SubjectTotalCurrentLiabilities, ptr(10)),
		x.value(model.StageBS, master.SubjectTotalLiabilities, ptr(15)),
	}

	got := completeBalanceSheet(x, values)

	require.Len(t, got, 3)
	assert.Equal(t, master.SubjectTotalInvestmentsAndOtherAssets, got[2].SubjectID)
	assert.Equal(t, ptr(0), got[2].Value)
}

func TestCompleteBalanceSheet_UnknownValuesLeftAlone(t *testing.T) {
	x := &extraction{doc: model.Document{DocumentTypeCode: model.DocumentType120}, log: zap.NewNop()}
	values := []model.FinancialValue{
		x.value(model.StageBS, master.SubjectTotalCurrentLiabilities, nil),
		x.value(model.StageBS, master.SubjectTotalLiabilities, nil),
	}
	assert.Len(t, completeBalanceSheet(x, values), 2)
}

func TestStatements_Closed(t *testing.T) {
	var stages []model.Stage
	for _, s := range Statements {
		stages = append(stages, s.Stage())
	}
	assert.Equal(t, model.ScrapeStages, stages)
}
