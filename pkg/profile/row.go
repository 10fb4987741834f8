package profile

import "github.com/crossgaze/crossgaze/pkg/edition"

// Row is one tracker profile list item. Rows are immutable once fetched.
type Row struct {
	TorrentID int64 `json:"TorrentID"`
	GroupID   int64 `json:"GroupID"`
	ArtistID  int64 `json:"ArtistID"`

	GroupName  string `json:"GroupName"`
	ArtistName string `json:"ArtistName"`

	// release metadata, as far as the list payload carried it
	Media    string `json:"Media"`
	Format   string `json:"Format"`
	Encoding string `json:"Encoding"`

	RemasterYear            int    `json:"RemasterYear"`
	RemasterTitle           string `json:"RemasterTitle"`
	RemasterRecordLabel     string `json:"RemasterRecordLabel"`
	RemasterCatalogueNumber string `json:"RemasterCatalogueNumber"`
}

// ReleaseMeta exposes the row's release metadata for edition parsing.
func (r Row) ReleaseMeta() edition.Metadata {
	return edition.Metadata{
		Media:                   r.Media,
		Format:                  r.Format,
		Encoding:                r.Encoding,
		RemasterYear:            r.RemasterYear,
		RemasterTitle:           r.RemasterTitle,
		RemasterRecordLabel:     r.RemasterRecordLabel,
		RemasterCatalogueNumber: r.RemasterCatalogueNumber,
	}
}
