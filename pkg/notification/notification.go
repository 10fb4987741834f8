package notification

import (
	"time"

	"github.com/dustin/go-humanize"

	"github.com/crossgaze/crossgaze/pkg/edition"
	"github.com/crossgaze/crossgaze/pkg/search"
)

type Sender interface {
	CanSend() bool
	Send(title string, description string, runTime time.Duration, fields []Field) error
	Name() string
}

type Field struct {
	Name  string
	Value string
}

// BuildMatchField renders one search match as a notification field.
func BuildMatchField(result search.MatchResult) Field {
	name := result.Row.GroupName
	if result.Row.ArtistName != "" {
		name = result.Row.ArtistName + " - " + name
	}

	value := "Tier: " + result.Tier.String() + " | " + result.Detail
	if meta := formatMeta(result.Row.ReleaseMeta()); meta != "" {
		value += " | " + meta
	}

	return Field{Name: name, Value: value}
}

// BuildSummary renders the run description shown in the summary embed.
func BuildSummary(tracker string, list string, stats search.Stats, fetchedAt time.Time) string {
	return "Searched " + humanize.Comma(int64(stats.Rows)) + " cached " + list + " rows on " + tracker +
		" (fetched " + humanize.Time(fetchedAt) + ")"
}

func formatMeta(m edition.Metadata) string {
	d, err := edition.Parse(m)
	if err != nil {
		return ""
	}
	return d.String()
}
