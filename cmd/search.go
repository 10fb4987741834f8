package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/crossgaze/crossgaze/pkg/config"
	"github.com/crossgaze/crossgaze/pkg/expression"
	"github.com/crossgaze/crossgaze/pkg/gazelle"
	"github.com/crossgaze/crossgaze/pkg/logger"
	"github.com/crossgaze/crossgaze/pkg/notification"
	"github.com/crossgaze/crossgaze/pkg/profile"
	"github.com/crossgaze/crossgaze/pkg/regex"
	"github.com/crossgaze/crossgaze/pkg/search"
)

func SearchCommand() *cobra.Command {
	var (
		flagTracker    string
		flagList       string
		flagRefresh    bool
		flagNotify     bool
		flagMaxResults int
	)

	command := &cobra.Command{
		Use:   "search [flags] <torrentID>...",
		Short: "Search cached profile lists for edition-equivalent torrents",
		Long: `Search a tracker profile list (snatched / uploaded / downloaded) for
torrents edition-equivalent to the given source torrent(s).

The list is fetched once per run and cached in-process; pass --refresh to
force a re-fetch before searching.`,
		Example: `  crossgaze search --tracker red --list snatched 1234567
  crossgaze search --tracker ops --list uploaded --refresh 1234567 7654321`,
		Args: cobra.MinimumNArgs(1),
	}

	command.Flags().StringVarP(&flagTracker, "tracker", "t", "", "Tracker to search (required)")
	command.Flags().StringVarP(&flagList, "list", "L", string(profile.ListSnatched), "List type: snatched, uploaded or downloaded")
	command.Flags().BoolVar(&flagRefresh, "refresh", false, "Force a list re-fetch before searching")
	command.Flags().BoolVar(&flagNotify, "notify", false, "Send a run summary notification")
	command.Flags().IntVar(&flagMaxResults, "max-results", 0, "Limit printed matches per source torrent (0 = no limit)")
	_ = command.MarkFlagRequired("tracker")

	command.RunE = func(cmd *cobra.Command, args []string) error {
		if err := initCore(true); err != nil {
			return err
		}

		log := logger.GetLogger("search")
		start := time.Now()

		list, err := profile.ParseListType(flagList)
		if err != nil {
			return err
		}

		torrentIDs := make([]int64, 0, len(args))
		for _, arg := range args {
			id, err := strconv.ParseInt(arg, 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid torrent id %q", arg)
			}
			torrentIDs = append(torrentIDs, id)
		}

		fetcher := gazelle.NewFetcher(config.Config.Trackers)
		client, ok := fetcher.Client(flagTracker)
		if !ok {
			return fmt.Errorf("tracker %q is not configured (or has no api key)", flagTracker)
		}

		cache, controller, err := buildController(fetcher)
		if err != nil {
			return err
		}

		if flagRefresh {
			log.Infof("Refreshing %s list for %s", list, client.Name())
			if _, err := cache.Refresh(cmd.Context(), flagTracker, list); err != nil {
				return err
			}
		}

		var (
			allResults []search.MatchResult
			lastStats  search.Stats
		)

		for _, torrentID := range torrentIDs {
			details, err := client.GetTorrent(cmd.Context(), torrentID)
			if err != nil {
				return fmt.Errorf("resolve source torrent %d: %w", torrentID, err)
			}

			source := &search.SourceTorrent{
				TorrentID: details.TorrentID,
				GroupID:   details.GroupID,
				Name:      fmt.Sprintf("%s - %s", details.Artist, details.GroupName),
				Meta:      details.Meta,
			}

			if entry, ok := cache.Peek(flagTracker, list); ok {
				log.Infof("Using cached %s list (%s rows, fetched %s)",
					list, humanize.Comma(int64(len(entry.Rows))), humanize.Time(entry.FetchedAt))
			}

			results, stats, err := controller.RunProfileListSearch(cmd.Context(), source, flagTracker, list)
			if err != nil {
				return err
			}
			lastStats = stats

			if flagMaxResults > 0 && len(results) > flagMaxResults {
				results = results[:flagMaxResults]
			}

			printResults(source, results, stats)
			allResults = append(allResults, results...)
		}

		if flagNotify {
			sendNotification(client.Name(), string(list), allResults, lastStats, cache, flagTracker, list, time.Since(start))
		}

		return nil
	}

	return command
}

func buildController(fetcher *gazelle.Fetcher) (*profile.Cache, *search.Controller, error) {
	cache := profile.NewCache(fetcher)

	var opts []search.ControllerOption

	if exprs := config.Config.Filter.Ignore; len(exprs) > 0 {
		compiled, err := expression.Compile(exprs)
		if err != nil {
			return nil, nil, fmt.Errorf("compile ignore expressions: %w", err)
		}
		opts = append(opts, search.WithIgnoreExpressions(compiled))
	}

	if patterns := config.Config.Filter.IgnorePatterns; len(patterns) > 0 {
		compiled := make([]*regex.Pattern, 0, len(patterns))
		for _, p := range patterns {
			pattern, err := regex.Compile(p)
			if err != nil {
				return nil, nil, fmt.Errorf("compile ignore pattern: %w", err)
			}
			compiled = append(compiled, pattern)
		}
		opts = append(opts, search.WithIgnorePatterns(compiled))
	}

	return cache, search.NewController(cache, opts...), nil
}

func printResults(source *search.SourceTorrent, results []search.MatchResult, stats search.Stats) {
	fmt.Printf("\nSource: %s (torrent %d)\n", source.Name, source.TorrentID)

	if len(results) == 0 {
		fmt.Printf("No edition-equivalent matches (%d rows examined, %d skipped, %d filtered)\n",
			stats.Examined, stats.Skipped, stats.Filtered)
		return
	}

	for i, result := range results {
		fmt.Printf("%d. [tier %d/%s] torrent %d - %s - %s\n",
			i+1, result.Tier, result.Tier, result.Row.TorrentID, result.Row.GroupName, result.Detail)
	}

	fmt.Printf("%d match(es) from %d rows (%d skipped, %d filtered)\n",
		len(results), stats.Rows, stats.Skipped, stats.Filtered)
}

func sendNotification(trackerName string, list string, results []search.MatchResult, stats search.Stats, cache *profile.Cache, tracker string, listType profile.ListType, runTime time.Duration) {
	log := logger.GetLogger("notification")

	sender := notification.NewDiscordSender(log, config.Config.Notifications)
	if !sender.CanSend() {
		log.Debug("No notification service configured, skipping")
		return
	}

	fields := make([]notification.Field, 0, len(results))
	for _, result := range results {
		fields = append(fields, notification.BuildMatchField(result))
	}

	fetchedAt := time.Now()
	if entry, ok := cache.Peek(tracker, listType); ok {
		fetchedAt = entry.FetchedAt
	}

	description := notification.BuildSummary(trackerName, list, stats, fetchedAt)
	if err := sender.Send("Profile List Search", description, runTime, fields); err != nil {
		log.WithError(err).Error("Failed sending notification")
	}
}
