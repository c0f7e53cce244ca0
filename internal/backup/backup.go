// Package backup creates timestamped, write-once copies of files that are
// about to be mutated: the save file before every launch and the
// configuration store before every overwrite.
package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const stampLayout = "20060102-150405"

// Create copies src into destDir as <base>-<timestamp><ext>. The copy is
// opened with O_EXCL so an existing artifact is never overwritten; when two
// copies land in the same second a numeric suffix disambiguates.
func Create(src, destDir string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return "", fmt.Errorf("creating %s: %w", destDir, err)
	}

	base := filepath.Base(src)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	stamp := time.Now().Format(stampLayout)

	for i := 0; ; i++ {
		name := fmt.Sprintf("%s-%s%s", stem, stamp, ext)
		if i > 0 {
			name = fmt.Sprintf("%s-%s.%d%s", stem, stamp, i, ext)
		}
		dest := filepath.Join(destDir, name)
		out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("creating %s: %w", dest, err)
		}
		if _, err := io.Copy(out, in); err != nil {
			_ = out.Close()
			_ = os.Remove(dest)
			return "", fmt.Errorf("copying to %s: %w", dest, err)
		}
		if err := out.Close(); err != nil {
			_ = os.Remove(dest)
			return "", fmt.Errorf("closing %s: %w", dest, err)
		}
		return dest, nil
	}
}
