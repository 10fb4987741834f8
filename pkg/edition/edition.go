package edition

import (
	"fmt"
	"strings"
)

// Metadata is the raw release metadata attached to a profile row or a source
// torrent before parsing.
type Metadata struct {
	Media    string
	Format   string
	Encoding string

	RemasterYear            int
	RemasterTitle           string
	RemasterRecordLabel     string
	RemasterCatalogueNumber string
}

// Descriptor is the parsed, normalized edition of a release: the technical
// presentation (media/format/encoding) plus the remaster identity that
// distinguishes one pressing from another.
type Descriptor struct {
	Media    string
	Format   string
	Encoding string

	Year    int
	Title   string
	Label   string
	Catalog string
}

// UnparsableEditionError indicates release metadata too sparse to build an
// edition descriptor from.
type UnparsableEditionError struct {
	Reason string
}

func (e *UnparsableEditionError) Error() string {
	return fmt.Sprintf("unparsable edition metadata: %s", e.Reason)
}

// Parse builds a Descriptor from raw release metadata. At least one of media,
// format or encoding must be present, otherwise there is nothing to compare.
func Parse(m Metadata) (*Descriptor, error) {
	media := strings.TrimSpace(m.Media)
	format := strings.TrimSpace(m.Format)
	encoding := strings.TrimSpace(m.Encoding)

	if media == "" && format == "" && encoding == "" {
		return nil, &UnparsableEditionError{Reason: "no media, format or encoding"}
	}

	return &Descriptor{
		Media:    media,
		Format:   format,
		Encoding: encoding,
		Year:     m.RemasterYear,
		Title:    strings.TrimSpace(m.RemasterTitle),
		Label:    strings.TrimSpace(m.RemasterRecordLabel),
		Catalog:  strings.TrimSpace(m.RemasterCatalogueNumber),
	}, nil
}

// IsLossless reports whether the descriptor's encoding is a lossless class.
func (d *Descriptor) IsLossless() bool {
	enc := strings.ToLower(d.Encoding)
	for _, marker := range []string{"flac", "lossless", "24bit"} {
		if strings.Contains(enc, marker) {
			return true
		}
	}
	return false
}

func (d *Descriptor) String() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{d.Media, d.Format, d.Encoding} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " / ")
}

// editionKey is the remaster identity tuple used for strict edition equality.
func (d *Descriptor) editionKey() string {
	return fmt.Sprintf("%d|%s|%s|%s",
		d.Year,
		strings.ToLower(d.Title),
		strings.ToLower(d.Label),
		strings.ToLower(d.Catalog),
	)
}
