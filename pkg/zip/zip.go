// Package zip bundles generated artifacts into a single archive.
package zip

import (
	"archive/zip"
	"bytes"
	"fmt"
	"sort"
	"time"
)

type Asset struct {
	Filename string
	MIME     string
	Data     []byte
	Modified time.Time
}

// ArchiveAssets writes assets into a zip archive sorted by file name. Media
// payloads are already compressed, so entries are stored rather than
// deflated. Duplicate names are rejected.
func ArchiveAssets(assets []Asset) ([]byte, error) {
	sorted := make([]Asset, len(assets))
	copy(sorted, assets)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Filename < sorted[j].Filename })

	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	seen := make(map[string]struct{}, len(sorted))
	for _, asset := range sorted {
		if asset.Filename == "" {
			return nil, fmt.Errorf("zip: asset without file name")
		}
		if _, dup := seen[asset.Filename]; dup {
			return nil, fmt.Errorf("zip: duplicate file name %q", asset.Filename)
		}
		seen[asset.Filename] = struct{}{}

		header := &zip.FileHeader{Name: asset.Filename, Method: zip.Store, Modified: asset.Modified}
		if asset.MIME != "" {
			header.Comment = asset.MIME
		}
		w, err := zw.CreateHeader(header)
		if err != nil {
			return nil, fmt.Errorf("zip: create %s: %w", asset.Filename, err)
		}
		if _, err := w.Write(asset.Data); err != nil {
			return nil, fmt.Errorf("zip: write %s: %w", asset.Filename, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: close: %w", err)
	}
	return buf.Bytes(), nil
}
