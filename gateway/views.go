package gateway

import (
	"github.com/prismassets/core/asset"
	"github.com/prismassets/core/container"
)

// indexRecordView is the wire-shaped projection of asset.Record returned by
// the command surface; it exists so gateway response types don't leak
// asset.Record's field set verbatim.
type indexRecordView struct {
	AssetID           string
	Key               string
	SourceType        string
	SourceName        string
	Namespace         string
	RelativeAssetPath string
	Extension         string
	IsImage           bool
	IsAudio           bool
	ContainerPath     string
	ContainerType     string
	EntryPath         string
	SizeBytes         int64
}

func viewRecord(r asset.Record) indexRecordView {
	return indexRecordView{
		AssetID:           r.AssetID,
		Key:               r.Key,
		SourceType:        string(r.SourceType),
		SourceName:        r.SourceName,
		Namespace:         r.Namespace,
		RelativeAssetPath: r.RelativeAssetPath,
		Extension:         r.Extension,
		IsImage:           r.IsImage,
		IsAudio:           r.IsAudio,
		ContainerPath:     r.ContainerPath,
		ContainerType:     string(r.ContainerType),
		EntryPath:         r.EntryPath,
		SizeBytes:         r.SizeBytes,
	}
}

func viewRecords(records []asset.Record) []indexRecordView {
	out := make([]indexRecordView, len(records))
	for i, r := range records {
		out[i] = viewRecord(r)
	}
	return out
}

// oldRecordsToAssetRecords reconstructs the asset.Record fields Reconcile
// needs for structural matching from the caller-supplied prior view.
func oldRecordsToAssetRecords(views map[string]indexRecordView) map[string]asset.Record {
	out := make(map[string]asset.Record, len(views))
	for id, v := range views {
		out[id] = asset.Record{
			AssetID:           v.AssetID,
			SourceType:        container.SourceType(v.SourceType),
			SourceName:        v.SourceName,
			Namespace:         v.Namespace,
			RelativeAssetPath: v.RelativeAssetPath,
			Extension:         v.Extension,
		}
	}
	return out
}
