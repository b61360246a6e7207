package fetcher

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"
)

func collect(t *testing.T, rows <-chan []string, errs <-chan error) [][]string {
	t.Helper()
	var out [][]string
	for r := range rows {
		out = append(out, r)
	}
	require.NoError(t, <-errs)
	return out
}

func TestStreamCSV_Basic(t *testing.T) {
	rows, errs := StreamCSV(context.Background(), strings.NewReader("a,b\n c , d \n"), CSVOptions{TrimSpace: true})
	got := collect(t, rows, errs)
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}}, got)
}

func TestStreamCSV_ShiftJISWithPreambleAndHeader(t *testing.T) {
	src := "ダウンロード実行日,2021年06月25日現在,件数,2件\n" +
		"ＥＤＩＮＥＴコード,提出者種別,上場区分\n" +
		"E02144,内国法人・組合,上場\n" +
		"E03606,内国法人・組合,上場\n"
	encoded, err := japanese.ShiftJIS.NewEncoder().String(src)
	require.NoError(t, err)

	header := make(chan []string, 1)
	rows, errs := StreamCSV(context.Background(), bytes.NewReader([]byte(encoded)), CSVOptions{
		Encoding:  japanese.ShiftJIS,
		SkipLines: 1,
		HasHeader: true,
		HeaderCh:  header,
	})
	got := collect(t, rows, errs)
	assert.Equal(t, []string{"ＥＤＩＮＥＴコード", "提出者種別", "上場区分"}, <-header)
	require.Len(t, got, 2)
	assert.Equal(t, "E03606", got[1][0])
	assert.Equal(t, "上場", got[1][2])
}

func TestStreamCSV_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rows, errs := StreamCSV(ctx, strings.NewReader("a\nb\n"), CSVOptions{})
	for range rows {
	}
	assert.Error(t, <-errs)
}
