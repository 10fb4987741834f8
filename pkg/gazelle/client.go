package gazelle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bobesa/go-domain-util/domainutil"
	"github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"

	"github.com/crossgaze/crossgaze/pkg/config"
	"github.com/crossgaze/crossgaze/pkg/edition"
	"github.com/crossgaze/crossgaze/pkg/httputils"
	"github.com/crossgaze/crossgaze/pkg/logger"
	"github.com/crossgaze/crossgaze/pkg/profile"
)

const (
	defaultPageSize = 500

	// maxMalformedRows aborts a list fetch once this many rows carry
	// non-numeric ids; at that point the payload itself is suspect.
	maxMalformedRows = 2
)

// Client talks to one Gazelle tracker's ajax.php API.
type Client struct {
	cfg     config.TrackerConfig
	http    *http.Client
	headers map[string]string
	log     *logrus.Entry

	userIDMux     sync.Mutex
	userID        int64
	userIDFetched bool
}

func NewClient(cfg config.TrackerConfig) *Client {
	l := newLogEntry(cfg)

	return &Client{
		cfg:  cfg,
		http: httputils.NewRetryableHttpClient(15*time.Second, ratelimit.New(1, ratelimit.WithoutSlack), l),
		headers: map[string]string{
			"Accept":        "application/json",
			"Authorization": buildAuthHeader(cfg),
		},
		log: l,
	}
}

func newLogEntry(cfg config.TrackerConfig) *logrus.Entry {
	l := logger.GetLogger(strings.ToLower(cfg.Name) + "-api")
	if u, err := url.Parse(cfg.URL); err == nil && u.Host != "" {
		if domain := domainutil.Domain(u.Host); domain != "" {
			l = l.WithField("domain", domain)
		}
	}
	return l
}

// buildAuthHeader formats the Authorization header per tracker. Token-auth
// trackers want "token <key>", the rest take the bare API key.
func buildAuthHeader(cfg config.TrackerConfig) string {
	key := strings.TrimSpace(cfg.APIKey)
	if cfg.TokenAuth && !strings.HasPrefix(strings.ToLower(key), "token ") {
		return "token " + key
	}
	return key
}

func (c *Client) Name() string {
	return strings.ToUpper(c.cfg.Name)
}

type apiEnvelope struct {
	Status   string          `json:"status"`
	Error    string          `json:"error"`
	Response json.RawMessage `json:"response"`
}

func (c *Client) request(ctx context.Context, params url.Values, out interface{}) error {
	requestURL, err := httputils.URLWithQuery(strings.TrimRight(c.cfg.URL, "/")+"/ajax.php", params)
	if err != nil {
		return fmt.Errorf("creating request URL: %w", err)
	}

	var envelope apiEnvelope
	if err := httputils.MakeAPIRequest(ctx, c.http, http.MethodGet, requestURL, nil, c.headers, &envelope); err != nil {
		return fmt.Errorf("making api request: %w", err)
	}

	if envelope.Status != "success" {
		if envelope.Error != "" {
			return fmt.Errorf("api error: %s", envelope.Error)
		}
		return fmt.Errorf("api status: %s", envelope.Status)
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(envelope.Response, out); err != nil {
		return fmt.Errorf("decode response payload: %w", err)
	}

	return nil
}

// UserID discovers and caches the authenticated user's id via the index
// action. The first successful lookup is reused for the process lifetime.
func (c *Client) UserID(ctx context.Context) (int64, error) {
	c.userIDMux.Lock()
	defer c.userIDMux.Unlock()

	if c.userIDFetched {
		return c.userID, nil
	}

	var index struct {
		ID int64 `json:"id"`
	}

	if err := c.request(ctx, url.Values{"action": []string{"index"}}, &index); err != nil {
		return 0, fmt.Errorf("fetching index: %w", err)
	}

	if index.ID == 0 {
		return 0, fmt.Errorf("no user id in index response")
	}

	c.userID = index.ID
	c.userIDFetched = true
	c.log.Debugf("Discovered user id %d", c.userID)
	return c.userID, nil
}

type userTorrentsPage struct {
	rows  []listRow
	total int
}

type listRow struct {
	GroupID    flexID `json:"groupId"`
	TorrentID  flexID `json:"torrentId"`
	ArtistID   flexID `json:"artistId"`
	Name       string `json:"name"`
	ArtistName string `json:"artistName"`

	Media    string `json:"media"`
	Format   string `json:"format"`
	Encoding string `json:"encoding"`

	RemasterYear            flexID `json:"remasterYear"`
	RemasterTitle           string `json:"remasterTitle"`
	RemasterRecordLabel     string `json:"remasterRecordLabel"`
	RemasterCatalogueNumber string `json:"remasterCatalogueNumber"`
}

// flexID tolerates Gazelle's habit of returning ids as numbers, numeric
// strings, empty strings or null, and flags anything else as malformed
// instead of failing the whole page decode.
type flexID struct {
	Value     int64
	Set       bool
	Malformed bool
}

func (f *flexID) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return nil
	}

	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			f.Malformed = true
			return nil
		}
		str = strings.TrimSpace(str)
		if str == "" {
			return nil
		}
		s = str
	}

	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f.Malformed = true
		return nil
	}

	f.Value = v
	f.Set = true
	return nil
}

func (c *Client) userTorrentsPage(ctx context.Context, userID int64, list profile.ListType, limit int, offset int) (*userTorrentsPage, error) {
	params := url.Values{
		"action": []string{"user_torrents"},
		"type":   []string{list.String()},
		"id":     []string{strconv.FormatInt(userID, 10)},
		"limit":  []string{strconv.Itoa(limit)},
		"offset": []string{strconv.Itoa(offset)},
	}

	var payload map[string]json.RawMessage
	if err := c.request(ctx, params, &payload); err != nil {
		return nil, err
	}

	rawRows, ok := payload[list.String()]
	if !ok {
		return nil, fmt.Errorf("malformed response payload: missing %q list", list)
	}

	var rows []listRow
	if err := json.Unmarshal(rawRows, &rows); err != nil {
		return nil, fmt.Errorf("decode %s rows: %w", list, err)
	}

	page := &userTorrentsPage{rows: rows}
	if rawTotal, ok := payload["total"]; ok {
		var total flexID
		if err := json.Unmarshal(rawTotal, &total); err == nil && total.Set {
			page.total = int(total.Value)
		}
	}

	return page, nil
}

// FetchList retrieves the full profile list of the given type, paging until
// the tracker returns a short page.
func (c *Client) FetchList(ctx context.Context, list profile.ListType) ([]profile.Row, error) {
	userID, err := c.UserID(ctx)
	if err != nil {
		return nil, err
	}

	var (
		rows       []profile.Row
		offset     int
		pageNum    int
		malformed  int
		nonMusic   int
		totalKnown int
	)

	for {
		pageNum++
		c.log.Debugf("Fetching %s page %d (offset=%d, limit=%d)", list, pageNum, offset, defaultPageSize)

		page, err := c.userTorrentsPage(ctx, userID, list, defaultPageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("fetching %s page %d: %w", list, pageNum, err)
		}
		if page.total > 0 {
			totalKnown = page.total
		}

		if len(page.rows) == 0 {
			break
		}

		for _, raw := range page.rows {
			if raw.GroupID.Malformed || raw.TorrentID.Malformed || raw.ArtistID.Malformed {
				malformed++
				c.log.Warnf("Malformed numeric ids in %s row (group name %q)", list, raw.Name)
				if malformed >= maxMalformedRows {
					return nil, fmt.Errorf("aborting %s fetch: %d malformed rows", list, malformed)
				}
				continue
			}

			if !raw.GroupID.Set && !raw.TorrentID.Set {
				nonMusic++
				c.log.Tracef("Skipping %s row without group/torrent ids (likely non-music)", list)
				continue
			}

			rows = append(rows, profile.Row{
				TorrentID:               raw.TorrentID.Value,
				GroupID:                 raw.GroupID.Value,
				ArtistID:                raw.ArtistID.Value,
				GroupName:               raw.Name,
				ArtistName:              raw.ArtistName,
				Media:                   raw.Media,
				Format:                  raw.Format,
				Encoding:                raw.Encoding,
				RemasterYear:            int(raw.RemasterYear.Value),
				RemasterTitle:           raw.RemasterTitle,
				RemasterRecordLabel:     raw.RemasterRecordLabel,
				RemasterCatalogueNumber: raw.RemasterCatalogueNumber,
			})
		}

		offset += len(page.rows)
		if len(page.rows) < defaultPageSize {
			break
		}
	}

	c.log.Debugf("Completed %s fetch: accepted=%d, non_music=%d, malformed=%d, reported_total=%d",
		list, len(rows), nonMusic, malformed, totalKnown)

	return rows, nil
}

// TorrentDetails is the per-torrent payload needed to build a search query.
type TorrentDetails struct {
	TorrentID int64
	GroupID   int64
	GroupName string
	Artist    string
	Meta      edition.Metadata
}

// GetTorrent resolves a torrent id into its group context and release
// metadata via the torrent action.
func (c *Client) GetTorrent(ctx context.Context, torrentID int64) (*TorrentDetails, error) {
	params := url.Values{
		"action": []string{"torrent"},
		"id":     []string{strconv.FormatInt(torrentID, 10)},
	}

	var payload struct {
		Group struct {
			ID        flexID `json:"id"`
			Name      string `json:"name"`
			MusicInfo struct {
				Artists []struct {
					Name string `json:"name"`
				} `json:"artists"`
			} `json:"musicInfo"`
		} `json:"group"`
		Torrent struct {
			ID                      flexID `json:"id"`
			Media                   string `json:"media"`
			Format                  string `json:"format"`
			Encoding                string `json:"encoding"`
			RemasterYear            flexID `json:"remasterYear"`
			RemasterTitle           string `json:"remasterTitle"`
			RemasterRecordLabel     string `json:"remasterRecordLabel"`
			RemasterCatalogueNumber string `json:"remasterCatalogueNumber"`
		} `json:"torrent"`
	}

	if err := c.request(ctx, params, &payload); err != nil {
		return nil, fmt.Errorf("fetching torrent %d: %w", torrentID, err)
	}

	if !payload.Torrent.ID.Set {
		return nil, fmt.Errorf("torrent %d: no torrent payload in response", torrentID)
	}

	var artist string
	if artists := payload.Group.MusicInfo.Artists; len(artists) > 0 {
		artist = artists[0].Name
	}

	return &TorrentDetails{
		TorrentID: payload.Torrent.ID.Value,
		GroupID:   payload.Group.ID.Value,
		GroupName: payload.Group.Name,
		Artist:    artist,
		Meta: edition.Metadata{
			Media:                   payload.Torrent.Media,
			Format:                  payload.Torrent.Format,
			Encoding:                payload.Torrent.Encoding,
			RemasterYear:            int(payload.Torrent.RemasterYear.Value),
			RemasterTitle:           payload.Torrent.RemasterTitle,
			RemasterRecordLabel:     payload.Torrent.RemasterRecordLabel,
			RemasterCatalogueNumber: payload.Torrent.RemasterCatalogueNumber,
		},
	}, nil
}
