package content

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/storekit/mediator/domain"
	"github.com/storekit/mediator/usecase"
)

// Relocator moves a finished download's content into a per-product
// directory under the purchases root and removes the temporary download
// location.
type Relocator struct {
	purchasesDir string
	logger       *zap.Logger
}

var _ usecase.ContentRelocator = (*Relocator)(nil)

// NewRelocator creates a relocator rooted at purchasesDir.
func NewRelocator(purchasesDir string, logger *zap.Logger) *Relocator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relocator{
		purchasesDir: purchasesDir,
		logger:       logger,
	}
}

// FinalizeDownload moves every file under the download's Contents
// directory into <purchasesDir>/<productID>, replacing files already
// there, then removes the temporary content directory. The destination
// path is returned even when cleanup partially fails.
func (r *Relocator) FinalizeDownload(download domain.DownloadRecord) (string, error) {
	if download.ContentPath == "" {
		return "", domain.NewError(domain.ErrCodeRelocation, "download has no content path")
	}

	dest := filepath.Join(r.purchasesDir, download.ProductID)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return dest, domain.WrapError(domain.ErrCodeRelocation, "unable to create purchase directory", err)
	}

	contents := filepath.Join(download.ContentPath, "Contents")
	entries, err := os.ReadDir(contents)
	if err != nil {
		// Content may ship without a Contents wrapper; move the root.
		contents = download.ContentPath
		entries, err = os.ReadDir(contents)
		if err != nil {
			return dest, domain.WrapError(domain.ErrCodeRelocation, "unable to read download contents", err)
		}
	}

	var moveErr error
	for _, entry := range entries {
		src := filepath.Join(contents, entry.Name())
		dst := filepath.Join(dest, entry.Name())
		if err := replace(src, dst); err != nil {
			r.logger.Error("unable to move downloaded file",
				zap.String("file", entry.Name()),
				zap.Error(err))
			moveErr = err
		}
	}
	if moveErr != nil {
		return dest, domain.WrapError(domain.ErrCodeRelocation, "unable to move downloaded content", moveErr)
	}

	if err := os.RemoveAll(download.ContentPath); err != nil {
		r.logger.Warn("unable to clean up download location",
			zap.String("path", download.ContentPath),
			zap.Error(err))
	}

	r.logger.Debug("download content finalized",
		zap.String("product_id", download.ProductID),
		zap.String("path", dest))
	return dest, nil
}

func replace(src, dst string) error {
	if _, err := os.Stat(dst); err == nil {
		if err := os.RemoveAll(dst); err != nil {
			return fmt.Errorf("unable to remove existing file: %w", err)
		}
	}
	return os.Rename(src, dst)
}
