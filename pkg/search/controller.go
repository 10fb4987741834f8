package search

import (
	"context"
	"fmt"
	"sort"

	"github.com/scylladb/go-set/i64set"
	"github.com/sirupsen/logrus"

	"github.com/crossgaze/crossgaze/pkg/edition"
	"github.com/crossgaze/crossgaze/pkg/expression"
	"github.com/crossgaze/crossgaze/pkg/logger"
	"github.com/crossgaze/crossgaze/pkg/profile"
	"github.com/crossgaze/crossgaze/pkg/regex"
)

// SourceTorrent is the torrent being searched for. Its release metadata
// supplies the query edition descriptor.
type SourceTorrent struct {
	TorrentID int64
	GroupID   int64
	Name      string
	Meta      edition.Metadata
}

// MatchResult pairs a cached row with the best tier it matched at. Results
// are produced fresh per search call and never cached.
type MatchResult struct {
	Row    profile.Row
	Tier   edition.Tier
	Detail string
}

// Stats summarizes one search pass over a cached list.
type Stats struct {
	Rows     int
	Examined int
	Skipped  int
	Filtered int
}

// Controller runs tiered edition-equivalence searches over cached profile
// lists. It obtains rows exclusively through the cache's GetOrFetch; deciding
// when to refresh stays with the caller, keeping cache policy out of search
// logic.
type Controller struct {
	cache *profile.Cache
	log   *logrus.Entry

	ignoreExpressions []expression.CompiledExpression
	ignorePatterns    []*regex.Pattern
}

type ControllerOption func(*Controller)

// WithIgnoreExpressions installs row-filter expressions; matching rows are
// excluded from the search and counted as filtered.
func WithIgnoreExpressions(expressions []expression.CompiledExpression) ControllerOption {
	return func(c *Controller) {
		c.ignoreExpressions = expressions
	}
}

// WithIgnorePatterns installs name patterns matched against the row's group
// and artist names.
func WithIgnorePatterns(patterns []*regex.Pattern) ControllerOption {
	return func(c *Controller) {
		c.ignorePatterns = patterns
	}
}

func NewController(cache *profile.Cache, opts ...ControllerOption) *Controller {
	c := &Controller{
		cache: cache,
		log:   logger.GetLogger("profile-search"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// RunProfileListSearch finds edition-equivalent candidates for the source
// torrent in the cached (tracker, list) rows. Results are ordered by tier
// ascending, original fetch order within a tier. An empty result set means
// "no matches", not an error.
func (c *Controller) RunProfileListSearch(ctx context.Context, source *SourceTorrent, tracker string, list profile.ListType) ([]MatchResult, Stats, error) {
	stats := Stats{}

	if !list.Valid() {
		return nil, stats, fmt.Errorf("unsupported list type %q", list)
	}

	entry, err := c.cache.GetOrFetch(ctx, tracker, list)
	if err != nil {
		return nil, stats, err
	}

	// source edition parse failure is fatal before any row is examined
	sourceEdition, err := edition.Parse(source.Meta)
	if err != nil {
		return nil, stats, err
	}

	stats.Rows = len(entry.Rows)
	c.log.Debugf("Searching %d %s rows on %s for %q (%s)",
		stats.Rows, list, tracker, source.Name, sourceEdition)

	seen := i64set.New()
	results := make([]MatchResult, 0)

	for _, row := range entry.Rows {
		candidate, ok := ExtractUploadCandidate(row)
		if !ok {
			stats.Skipped++
			c.log.Tracef("Skipping row without uploadable torrent (group %d)", row.GroupID)
			continue
		}

		// never expand beyond the source torrent's own group context
		if source.GroupID > 0 && candidate.GroupID > 0 && candidate.GroupID != source.GroupID {
			stats.Skipped++
			continue
		}

		// profile lists can repeat a torrent across pages
		if seen.Has(candidate.TorrentID) {
			stats.Skipped++
			continue
		}
		seen.Add(candidate.TorrentID)

		filtered, err := c.rowFiltered(row)
		if err != nil {
			return nil, stats, err
		}
		if filtered {
			stats.Filtered++
			continue
		}

		candidateEdition, err := edition.Parse(candidate.Meta)
		if err != nil {
			// malformed row, recover locally and keep searching
			stats.Skipped++
			c.log.Tracef("Skipping torrent %d: %v", candidate.TorrentID, err)
			continue
		}

		stats.Examined++

		tier, ok := edition.Compare(sourceEdition, candidateEdition)
		if !ok {
			continue
		}

		results = append(results, MatchResult{
			Row:    row,
			Tier:   tier,
			Detail: tier.Detail(),
		})
	}

	// stable: original row order is preserved within a tier
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Tier < results[j].Tier
	})

	c.log.Debugf("Search complete: %d match(es), %d skipped, %d filtered",
		len(results), stats.Skipped, stats.Filtered)

	return results, stats, nil
}

func (c *Controller) rowFiltered(row profile.Row) (bool, error) {
	if len(c.ignoreExpressions) > 0 {
		match, reason, err := expression.CheckRowSingleMatchWithReason(row, c.ignoreExpressions)
		if err != nil {
			return false, fmt.Errorf("evaluate ignore expression: %w", err)
		}
		if match {
			c.log.Tracef("Row for torrent %d ignored by expression %q", row.TorrentID, reason)
			return true, nil
		}
	}

	for _, pattern := range c.ignorePatterns {
		for _, subject := range []string{row.GroupName, row.ArtistName} {
			if subject == "" {
				continue
			}
			match, err := regex.Match(pattern, subject)
			if err != nil {
				c.log.WithError(err).Warnf("Ignore pattern %q failed, skipping pattern", pattern.Text)
				continue
			}
			if match {
				c.log.Tracef("Row for torrent %d ignored by pattern %q", row.TorrentID, pattern.Text)
				return true, nil
			}
		}
	}

	return false, nil
}
