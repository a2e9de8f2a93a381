package content

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storekit/mediator/domain"
)

func writeDownloadBundle(t *testing.T, root string, files map[string]string) string {
	t.Helper()
	contents := filepath.Join(root, "Contents")
	require.NoError(t, os.MkdirAll(contents, 0o755))
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(contents, name), []byte(body), 0o644))
	}
	return root
}

func TestFinalizeDownloadMovesContentIntoPurchasesDir(t *testing.T) {
	purchases := t.TempDir()
	bundle := writeDownloadBundle(t, filepath.Join(t.TempDir(), "dl"), map[string]string{
		"level1.pack": "data",
		"level2.pack": "more data",
	})

	relocator := NewRelocator(purchases, nil)
	path, err := relocator.FinalizeDownload(domain.DownloadRecord{
		ID:          "d1",
		ProductID:   "com.example.artpack",
		State:       domain.DownloadFinished,
		ContentPath: bundle,
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(purchases, "com.example.artpack"), path)

	moved, err := os.ReadFile(filepath.Join(path, "level1.pack"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(moved))

	_, err = os.Stat(bundle)
	assert.True(t, os.IsNotExist(err), "temporary download location should be removed")
}

func TestFinalizeDownloadReplacesExistingFiles(t *testing.T) {
	purchases := t.TempDir()
	dest := filepath.Join(purchases, "com.example.artpack")
	require.NoError(t, os.MkdirAll(dest, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dest, "level1.pack"), []byte("stale"), 0o644))

	bundle := writeDownloadBundle(t, filepath.Join(t.TempDir(), "dl"), map[string]string{
		"level1.pack": "fresh",
	})

	relocator := NewRelocator(purchases, nil)
	path, err := relocator.FinalizeDownload(domain.DownloadRecord{
		ID:          "d1",
		ProductID:   "com.example.artpack",
		ContentPath: bundle,
	})
	require.NoError(t, err)

	moved, err := os.ReadFile(filepath.Join(path, "level1.pack"))
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(moved))
}

func TestFinalizeDownloadWithoutContentsWrapper(t *testing.T) {
	purchases := t.TempDir()
	bundle := filepath.Join(t.TempDir(), "dl")
	require.NoError(t, os.MkdirAll(bundle, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(bundle, "raw.bin"), []byte("data"), 0o644))

	relocator := NewRelocator(purchases, nil)
	path, err := relocator.FinalizeDownload(domain.DownloadRecord{
		ID:          "d1",
		ProductID:   "com.example.artpack",
		ContentPath: bundle,
	})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(path, "raw.bin"))
	assert.NoError(t, err)
}

func TestFinalizeDownloadMissingContentPath(t *testing.T) {
	relocator := NewRelocator(t.TempDir(), nil)
	_, err := relocator.FinalizeDownload(domain.DownloadRecord{ID: "d1", ProductID: "p1"})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeRelocation))
}

func TestFinalizeDownloadUnreadableContent(t *testing.T) {
	relocator := NewRelocator(t.TempDir(), nil)
	path, err := relocator.FinalizeDownload(domain.DownloadRecord{
		ID:          "d1",
		ProductID:   "p1",
		ContentPath: filepath.Join(t.TempDir(), "does-not-exist"),
	})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeRelocation))
	assert.NotEmpty(t, path, "best-effort destination is still returned")
}
