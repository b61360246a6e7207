package fetcher

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"
)

func createTestZIP(t *testing.T, entries []*zip.FileHeader, contents []string) string {
	t.Helper()
	zipPath := filepath.Join(t.TempDir(), "test.zip")
	f, err := os.Create(zipPath)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	w := zip.NewWriter(f)
	for i, h := range entries {
		fw, err := w.CreateHeader(h)
		require.NoError(t, err)
		_, err = fw.Write([]byte(contents[i]))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return zipPath
}

func TestExtractZIP_NestedEntries(t *testing.T) {
	zipPath := createTestZIP(t,
		[]*zip.FileHeader{
			{Name: "XBRL/PublicDoc/0101010_honbun_jpcrp030000-asr-001.htm", Method: zip.Deflate},
			{Name: "XBRL/PublicDoc/0105010_honbun_jpcrp030000-asr-001.htm", Method: zip.Deflate},
		},
		[]string{"<html>1</html>", "<html>2</html>"},
	)

	dest := t.TempDir()
	paths, err := ExtractZIP(zipPath, dest)
	require.NoError(t, err)
	assert.Len(t, paths, 2)

	data, err := os.ReadFile(filepath.Join(dest, "XBRL", "PublicDoc", "0105010_honbun_jpcrp030000-asr-001.htm"))
	require.NoError(t, err)
	assert.Equal(t, "<html>2</html>", string(data))
}

func TestExtractZIP_ShiftJISNames(t *testing.T) {
	sjis, err := japanese.ShiftJIS.NewEncoder().String("監査報告書.htm")
	require.NoError(t, err)
	zipPath := createTestZIP(t,
		[]*zip.FileHeader{{Name: "XBRL/AuditDoc/" + sjis, NonUTF8: true}},
		[]string{"audit"},
	)

	dest := t.TempDir()
	paths, err := ExtractZIP(zipPath, dest)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, filepath.Join(dest, "XBRL", "AuditDoc", "監査報告書.htm"), paths[0])
}

func TestExtractZIP_ZipSlip(t *testing.T) {
	zipPath := createTestZIP(t, []*zip.FileHeader{{Name: "../evil.txt"}}, []string{"x"})
	_, err := ExtractZIP(zipPath, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zip slip")
}

func TestExtractZIP_NotAnArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.zip")
	require.NoError(t, os.WriteFile(path, []byte(`{"metadata":{"status":"404"}}`), 0o644))
	_, err := ExtractZIP(path, t.TempDir())
	assert.Error(t, err)
}
