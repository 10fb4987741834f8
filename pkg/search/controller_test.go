package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossgaze/crossgaze/pkg/edition"
	"github.com/crossgaze/crossgaze/pkg/expression"
	"github.com/crossgaze/crossgaze/pkg/profile"
)

func sourceCDFlac() *SourceTorrent {
	return &SourceTorrent{
		TorrentID: 100,
		Name:      "Test Artist - Test Album",
		Meta: edition.Metadata{
			Media:        "CD",
			Format:       "FLAC",
			Encoding:     "Lossless",
			RemasterYear: 2010,
		},
	}
}

func fixedFetcher(rows []profile.Row) profile.Fetcher {
	return profile.FetcherFunc(func(context.Context, string, profile.ListType) ([]profile.Row, error) {
		return rows, nil
	})
}

func TestController_TieredScenario(t *testing.T) {
	// row 1 matches nothing, row 2 is an exact match, row 3 a loose match
	rows := []profile.Row{
		{TorrentID: 1, GroupName: "No Match", Media: "Vinyl", Format: "MP3", Encoding: "V0 (VBR)"},
		{TorrentID: 2, GroupName: "Exact", Media: "CD", Format: "FLAC", Encoding: "Lossless", RemasterYear: 2010},
		{TorrentID: 3, GroupName: "Loose", Media: "CD", Format: "MP3", Encoding: "320", RemasterYear: 2010},
	}

	cache := profile.NewCache(fixedFetcher(rows))
	controller := NewController(cache)

	results, stats, err := controller.RunProfileListSearch(context.Background(), sourceCDFlac(), "red", profile.ListUploaded)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, int64(2), results[0].Row.TorrentID)
	assert.Equal(t, edition.TierExact, results[0].Tier)
	assert.Equal(t, int64(3), results[1].Row.TorrentID)
	assert.Equal(t, edition.TierRelease, results[1].Tier)

	assert.Equal(t, 3, stats.Rows)
	assert.Equal(t, 3, stats.Examined)
	assert.Equal(t, 0, stats.Skipped)
}

func TestController_TierOrderingIsStable(t *testing.T) {
	// interleave tiers; within a tier the original fetch order must hold
	rows := []profile.Row{
		{TorrentID: 1, Media: "CD", Format: "MP3", Encoding: "320"},                              // release
		{TorrentID: 2, Media: "CD", Format: "FLAC", Encoding: "Lossless", RemasterYear: 2010},    // exact
		{TorrentID: 3, Media: "CD", Format: "FLAC", Encoding: "24bit Lossless"},                  // compatible
		{TorrentID: 4, Media: "WEB", Format: "FLAC", Encoding: "Lossless"},                       // release
		{TorrentID: 5, Media: "CD", Format: "FLAC", Encoding: "Lossless", RemasterYear: 2010},    // exact
		{TorrentID: 6, Media: "CD", Format: "FLAC", Encoding: "24bit Lossless", RemasterYear: 0}, // compatible
	}

	cache := profile.NewCache(fixedFetcher(rows))
	controller := NewController(cache)

	results, _, err := controller.RunProfileListSearch(context.Background(), sourceCDFlac(), "red", profile.ListSnatched)
	require.NoError(t, err)
	require.Len(t, results, 6)

	var order []int64
	lastTier := edition.Tier(-1)
	for _, result := range results {
		assert.GreaterOrEqual(t, result.Tier, lastTier, "tiers must be non-decreasing")
		lastTier = result.Tier
		order = append(order, result.Row.TorrentID)
	}

	assert.Equal(t, []int64{2, 5, 3, 6, 1, 4}, order)
}

func TestController_Deterministic(t *testing.T) {
	rows := []profile.Row{
		{TorrentID: 2, Media: "CD", Format: "FLAC", Encoding: "Lossless", RemasterYear: 2010},
		{TorrentID: 3, Media: "CD", Format: "MP3", Encoding: "320"},
	}

	cache := profile.NewCache(fixedFetcher(rows))
	controller := NewController(cache)
	ctx := context.Background()

	first, _, err := controller.RunProfileListSearch(ctx, sourceCDFlac(), "red", profile.ListSnatched)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, _, err := controller.RunProfileListSearch(ctx, sourceCDFlac(), "red", profile.ListSnatched)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestController_UnparsableSourceFailsBeforeRows(t *testing.T) {
	rows := []profile.Row{
		{TorrentID: 2, Media: "CD", Format: "FLAC", Encoding: "Lossless"},
	}

	cache := profile.NewCache(fixedFetcher(rows))
	controller := NewController(cache)

	source := &SourceTorrent{TorrentID: 100, Name: "No Metadata"}
	results, _, err := controller.RunProfileListSearch(context.Background(), source, "red", profile.ListSnatched)
	require.Error(t, err)
	assert.Nil(t, results)

	var unparsable *edition.UnparsableEditionError
	assert.ErrorAs(t, err, &unparsable)
}

func TestController_FetchErrorPropagates(t *testing.T) {
	boom := errors.New("tracker down")
	calls := 0
	fetcher := profile.FetcherFunc(func(context.Context, string, profile.ListType) ([]profile.Row, error) {
		calls++
		if calls == 1 {
			return nil, boom
		}
		return []profile.Row{{TorrentID: 2, Media: "CD", Format: "FLAC", Encoding: "Lossless", RemasterYear: 2010}}, nil
	})

	cache := profile.NewCache(fetcher)
	controller := NewController(cache)
	ctx := context.Background()

	_, _, err := controller.RunProfileListSearch(ctx, sourceCDFlac(), "red", profile.ListSnatched)
	require.Error(t, err)

	var fetchErr *profile.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.ErrorIs(t, err, boom)

	// no poisoned entry: the retry fetches again and succeeds
	results, _, err := controller.RunProfileListSearch(ctx, sourceCDFlac(), "red", profile.ListSnatched)
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, 2, calls)
}

func TestController_MalformedRowsSkippedNotFatal(t *testing.T) {
	rows := []profile.Row{
		{TorrentID: 0, GroupName: "Not Uploadable"},                              // no torrent id
		{TorrentID: 5, GroupName: "No Metadata"},                                 // unparsable edition
		{TorrentID: 2, Media: "CD", Format: "FLAC", Encoding: "Lossless", RemasterYear: 2010},
	}

	cache := profile.NewCache(fixedFetcher(rows))
	controller := NewController(cache)

	results, stats, err := controller.RunProfileListSearch(context.Background(), sourceCDFlac(), "red", profile.ListSnatched)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, int64(2), results[0].Row.TorrentID)
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, 1, stats.Examined)
}

func TestController_EmptyResultIsNotAnError(t *testing.T) {
	rows := []profile.Row{
		{TorrentID: 1, Media: "Vinyl", Format: "MP3", Encoding: "V0 (VBR)"},
	}

	cache := profile.NewCache(fixedFetcher(rows))
	controller := NewController(cache)

	results, stats, err := controller.RunProfileListSearch(context.Background(), sourceCDFlac(), "red", profile.ListSnatched)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 1, stats.Examined)
}

func TestController_GroupScopeRestriction(t *testing.T) {
	rows := []profile.Row{
		{TorrentID: 2, GroupID: 77, Media: "CD", Format: "FLAC", Encoding: "Lossless", RemasterYear: 2010},
		{TorrentID: 3, GroupID: 88, Media: "CD", Format: "FLAC", Encoding: "Lossless", RemasterYear: 2010},
	}

	cache := profile.NewCache(fixedFetcher(rows))
	controller := NewController(cache)

	source := sourceCDFlac()
	source.GroupID = 77

	results, stats, err := controller.RunProfileListSearch(context.Background(), source, "red", profile.ListSnatched)
	require.NoError(t, err)

	// the sibling group's row is never considered
	require.Len(t, results, 1)
	assert.Equal(t, int64(2), results[0].Row.TorrentID)
	assert.Equal(t, 1, stats.Skipped)
}

func TestController_DuplicateTorrentsSuppressed(t *testing.T) {
	rows := []profile.Row{
		{TorrentID: 2, Media: "CD", Format: "FLAC", Encoding: "Lossless", RemasterYear: 2010},
		{TorrentID: 2, Media: "CD", Format: "FLAC", Encoding: "Lossless", RemasterYear: 2010},
	}

	cache := profile.NewCache(fixedFetcher(rows))
	controller := NewController(cache)

	results, stats, err := controller.RunProfileListSearch(context.Background(), sourceCDFlac(), "red", profile.ListSnatched)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, stats.Skipped)
}

func TestController_InvalidListType(t *testing.T) {
	cache := profile.NewCache(fixedFetcher(nil))
	controller := NewController(cache)

	_, _, err := controller.RunProfileListSearch(context.Background(), sourceCDFlac(), "red", profile.ListType("seeding"))
	require.Error(t, err)
}

func TestController_IgnoreExpressions(t *testing.T) {
	rows := []profile.Row{
		{TorrentID: 2, GroupName: "Keep", Media: "CD", Format: "FLAC", Encoding: "Lossless", RemasterYear: 2010},
		{TorrentID: 3, GroupName: "Drop", Media: "CD", Format: "MP3", Encoding: "320"},
	}

	compiled, err := expression.Compile([]string{`Format == "MP3"`})
	require.NoError(t, err)

	cache := profile.NewCache(fixedFetcher(rows))
	controller := NewController(cache, WithIgnoreExpressions(compiled))

	results, stats, err := controller.RunProfileListSearch(context.Background(), sourceCDFlac(), "red", profile.ListSnatched)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, int64(2), results[0].Row.TorrentID)
	assert.Equal(t, 1, stats.Filtered)
}

func TestExtractUploadCandidate(t *testing.T) {
	t.Run("real torrent", func(t *testing.T) {
		candidate, ok := ExtractUploadCandidate(profile.Row{TorrentID: 5, GroupID: 7, Format: "FLAC"})
		require.True(t, ok)
		assert.Equal(t, int64(5), candidate.TorrentID)
		assert.Equal(t, int64(7), candidate.GroupID)
		assert.Equal(t, "FLAC", candidate.Meta.Format)
	})

	t.Run("missing torrent id", func(t *testing.T) {
		_, ok := ExtractUploadCandidate(profile.Row{GroupID: 7})
		assert.False(t, ok)
	})
}
