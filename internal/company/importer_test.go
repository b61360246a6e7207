package company

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/japanese"

	"github.com/sells-group/edinet-cli/internal/model"
	"github.com/sells-group/edinet-cli/internal/store"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

const codeList = `ダウンロード実行日,2021年06月25日現在,件数,3件
ＥＤＩＮＥＴコード,提出者種別,上場区分,連結の有無,資本金,決算日,提出者名,提出者名（英字）,提出者名（ヨミ）,所在地,提出者業種,証券コード,提出者法人番号
E02144,内国法人・組合,上場,有,635401,3月31日,トヨタ自動車株式会社,TOYOTA MOTOR CORPORATION,トヨタジドウシャカブシキガイシャ,愛知県豊田市トヨタ町１番地,輸送用機器,72030,1180301018771
E03606,内国法人・組合,上場,有,1711953,3月31日,株式会社三菱ＵＦＪフィナンシャル・グループ,"Mitsubishi UFJ Financial Group, Inc.",カブシキガイシャミツビシユーエフジェイフィナンシャル・グループ,東京都千代田区丸の内二丁目７番１号,銀行業,83060,6010001073486
,内国法人・組合,非上場,無,0,3月31日,,,,,,,
`

func shiftJIS(t *testing.T, s string) []byte {
	t.Helper()
	b, err := japanese.ShiftJIS.NewEncoder().String(s)
	require.NoError(t, err)
	return []byte(b)
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "company.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(ctx))

	res, err := NewImporter(st).Import(ctx, bytes.NewReader(shiftJIS(t, codeList)))
	require.NoError(t, err)
	assert.Equal(t, &Result{Rows: 3, Upserted: 2, Skipped: 1}, res)

	c, err := st.GetCompany(ctx, "E02144")
	require.NoError(t, err)
	assert.Equal(t, "トヨタ自動車株式会社", c.Name)
	assert.Equal(t, "輸送用機器", c.Industry)
	assert.Equal(t, "72030", c.Code)

	bank, err := st.GetCompany(ctx, "E03606")
	require.NoError(t, err)
	assert.Equal(t, "銀行業", bank.Industry)
}

func TestImport_UpdatesExisting(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "company.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(ctx))
	require.NoError(t, st.InsertCompany(ctx, model.Company{EdinetCode: "E02144", Name: "stub"}))

	path := filepath.Join(t.TempDir(), "EdinetcodeDlInfo.csv")
	require.NoError(t, os.WriteFile(path, shiftJIS(t, codeList), 0o644))

	_, err = NewImporter(st).ImportFile(ctx, path)
	require.NoError(t, err)

	c, err := st.GetCompany(ctx, "E02144")
	require.NoError(t, err)
	assert.Equal(t, "トヨタ自動車株式会社", c.Name)
	assert.True(t, c.IsListed())
}

type failingUpserter struct{}

func (failingUpserter) UpsertCompany(context.Context, model.Company) error {
	return eris.New("db down")
}

func TestImport_UpsertError(t *testing.T) {
	_, err := NewImporter(failingUpserter{}).Import(context.Background(), bytes.NewReader(shiftJIS(t, codeList)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "company: upsert E02144")
}

func TestImport_MissingColumn(t *testing.T) {
	data := "banner\nＥＤＩＮＥＴコード,提出者名\nE02144,トヨタ\n"
	_, err := NewImporter(failingUpserter{}).Import(context.Background(), bytes.NewReader(shiftJIS(t, data)))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestImportFile_Missing(t *testing.T) {
	_, err := NewImporter(failingUpserter{}).ImportFile(context.Background(), filepath.Join(t.TempDir(), "none.csv"))
	assert.Error(t, err)
}
