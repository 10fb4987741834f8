package search

import (
	"github.com/crossgaze/crossgaze/pkg/edition"
	"github.com/crossgaze/crossgaze/pkg/profile"
)

// UploadCandidate is a profile row resolved to a concrete uploadable torrent.
type UploadCandidate struct {
	TorrentID int64
	GroupID   int64
	Meta      edition.Metadata
}

// ExtractUploadCandidate resolves a row to an upload candidate. Rows without
// a torrent id do not correspond to a real uploadable torrent (collage
// remnants, deleted torrents) and yield no candidate.
func ExtractUploadCandidate(r profile.Row) (*UploadCandidate, bool) {
	if r.TorrentID <= 0 {
		return nil, false
	}

	return &UploadCandidate{
		TorrentID: r.TorrentID,
		GroupID:   r.GroupID,
		Meta:      r.ReleaseMeta(),
	}, true
}
