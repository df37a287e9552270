package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"youcube/contract"
	errs "youcube/errors"

	"github.com/samber/lo"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

const spotifyHost = "open.spotify.com"

var (
	_ contract.URLResolver = (*SpotifyResolver)(nil)
	_ contract.URLResolver = Disabled{}
)

// SpotifyLink is a parsed Spotify share link or URI.
type SpotifyLink struct {
	Kind string
	ID   spotify.ID
}

// ParseSpotifyLink recognises https://open.spotify.com/<kind>/<id> (with an
// optional locale segment such as intl-fr) and spotify:<kind>:<id>.
func ParseSpotifyLink(raw string) (SpotifyLink, bool) {
	if rest, ok := strings.CutPrefix(raw, "spotify:"); ok {
		kind, id, found := strings.Cut(rest, ":")
		if !found || kind == "" || id == "" {
			return SpotifyLink{}, false
		}
		return SpotifyLink{Kind: kind, ID: spotify.ID(id)}, true
	}

	u, err := url.Parse(raw)
	if err != nil || !strings.EqualFold(u.Hostname(), spotifyHost) {
		return SpotifyLink{}, false
	}
	segments := lo.Filter(strings.Split(u.Path, "/"), func(s string, _ int) bool { return s != "" })
	if len(segments) > 0 && strings.HasPrefix(segments[0], "intl-") {
		segments = segments[1:]
	}
	if len(segments) < 2 {
		return SpotifyLink{}, false
	}
	return SpotifyLink{Kind: segments[0], ID: spotify.ID(segments[1])}, true
}

// SpotifyResolver turns Spotify tracks into a yt-dlp search query.
type SpotifyResolver struct {
	log    *slog.Logger
	client *spotify.Client
}

// NewSpotifyResolver authenticates with the client credentials flow.
// Tokens are fetched lazily and refreshed by the oauth2 transport.
func NewSpotifyResolver(log *slog.Logger, clientID, clientSecret string) *SpotifyResolver {
	config := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	return NewSpotifyResolverWithClient(log, config.Client(context.Background()))
}

func NewSpotifyResolverWithClient(log *slog.Logger, httpClient *http.Client, opts ...spotify.ClientOption) *SpotifyResolver {
	return &SpotifyResolver{
		log:    log,
		client: spotify.New(httpClient, opts...),
	}
}

func (r *SpotifyResolver) Resolve(ctx context.Context, raw string) (string, bool, error) {
	link, ok := ParseSpotifyLink(raw)
	if !ok {
		return "", false, nil
	}
	if link.Kind != "track" {
		return "", true, fmt.Errorf("%w: spotify %s links are not supported", errs.ErrUnsupportedURL, link.Kind)
	}

	track, err := r.client.GetTrack(ctx, link.ID)
	if err != nil {
		r.log.Warn("Spotify lookup failed", "id", link.ID, "error", err)
		return "", true, fmt.Errorf("%w: spotify track %s could not be resolved", errs.ErrUnsupportedURL, link.ID)
	}

	artists := lo.Map(track.Artists, func(a spotify.SimpleArtist, _ int) string { return a.Name })
	return SearchQuery(artists, track.Name), true, nil
}

// SearchQuery builds the yt-dlp search expression for a track.
func SearchQuery(artists []string, title string) string {
	if len(artists) == 0 {
		return "ytsearch:" + title
	}
	return fmt.Sprintf("ytsearch:%s - %s", strings.Join(artists, ", "), title)
}

// Disabled is used when no Spotify credentials are configured: Spotify
// links are refused and everything else passes through.
type Disabled struct{}

func (Disabled) Resolve(_ context.Context, raw string) (string, bool, error) {
	if _, ok := ParseSpotifyLink(raw); ok {
		return "", true, fmt.Errorf("%w: spotify support is not configured", errs.ErrUnsupportedURL)
	}
	return "", false, nil
}
