package gateway

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/prismassets/core/container"
	"github.com/prismassets/core/internal/errkind"
)

// maxPreviewBytes caps get_asset_preview payloads (spec §4.7).
const maxPreviewBytes = 16 * 1024 * 1024

var mimeByExtension = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"webp": "image/webp",
	"tga":  "image/x-tga",
	"ogg":  "audio/ogg",
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"flac": "audio/flac",
	"json": "application/json",
}

// AssetPreview is the response to get_asset_preview.
type AssetPreview struct {
	MIME   string
	Base64 string
}

// GetAssetPreview implements get_asset_preview (spec §4.7): images and
// audio are read verbatim; JSON/.mcmeta bytes are returned as-is, with
// pretty-printing left to the client.
func (s *Session) GetAssetPreview(ctx context.Context, scanID, assetID string) (AssetPreview, error) {
	snap, err := s.snapshotFor(scanID)
	if err != nil {
		return AssetPreview{}, err
	}
	rec, ok := snap.Get(assetID)
	if !ok {
		return AssetPreview{}, fmt.Errorf("%w: unknown assetId %q", errkind.ErrState, assetID)
	}

	mime := mimeOf(rec.Extension)

	r, err := container.NewReader(&container.Container{Path: rec.ContainerPath, Type: rec.ContainerType})
	if err != nil {
		return AssetPreview{}, fmt.Errorf("%w: %v", errkind.ErrRead, err)
	}
	defer r.Close()

	data, err := r.Read(ctx, rec.EntryPath)
	if err != nil {
		return AssetPreview{}, fmt.Errorf("%w: %v", errkind.ErrRead, err)
	}
	if len(data) > maxPreviewBytes {
		return AssetPreview{}, fmt.Errorf("%w: asset %q is %d bytes, exceeds %d byte preview cap", errkind.ErrPreviewTooLarge, assetID, len(data), maxPreviewBytes)
	}

	return AssetPreview{MIME: mime, Base64: base64.StdEncoding.EncodeToString(data)}, nil
}

func mimeOf(extension string) string {
	if extension == "mcmeta" {
		return "application/json"
	}
	if mime, ok := mimeByExtension[extension]; ok {
		return mime
	}
	return "application/octet-stream"
}
