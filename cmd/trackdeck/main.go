// Package main provides the trackdeck CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/trackdeck/trackdeck/internal/app/editor"
	"github.com/trackdeck/trackdeck/internal/app/rank"
	"github.com/trackdeck/trackdeck/internal/domain/playlist"
	"github.com/trackdeck/trackdeck/internal/infra/config"
	"github.com/trackdeck/trackdeck/internal/infra/imagecache"
	"github.com/trackdeck/trackdeck/internal/infra/logger"
	"github.com/trackdeck/trackdeck/internal/infra/secrets"
	"github.com/trackdeck/trackdeck/internal/infra/spotify"
)

const historyLimit = 50

var (
	app        = kingpin.New("trackdeck", "Spotify playlist editor")
	configPath = app.Flag("config", "Config file path").Default("config.yaml").String()

	// playlists command
	playlistsCmd = app.Command("playlists", "List playlists ordered by recent listening activity")

	// tracks command
	tracksCmd      = app.Command("tracks", "List the tracks of a playlist")
	tracksPlaylist = tracksCmd.Arg("playlist-id", "Playlist ID").Required().String()
	tracksGrouped  = tracksCmd.Flag("grouped", "Show the per-artist grouped view").Bool()

	// cluster command
	clusterCmd      = app.Command("cluster", "Reorder a playlist into per-artist runs")
	clusterPlaylist = clusterCmd.Arg("playlist-id", "Playlist ID").Required().String()
	clusterApply    = clusterCmd.Flag("apply", "Push the change to Spotify").Bool()

	// move command
	moveCmd      = app.Command("move", "Move tracks to a new position")
	movePlaylist = moveCmd.Arg("playlist-id", "Playlist ID").Required().String()
	moveFrom     = moveCmd.Flag("from", "Source position (repeatable, 0-based)").Required().Ints()
	moveTo       = moveCmd.Flag("to", "Target position after removal").Required().Int()
	moveApply    = moveCmd.Flag("apply", "Push the change to Spotify").Bool()

	// remove command
	removeCmd      = app.Command("remove", "Delete tracks from a playlist")
	removePlaylist = removeCmd.Arg("playlist-id", "Playlist ID").Required().String()
	removeIndex    = removeCmd.Flag("index", "Position to delete (0-based)").Default("-1").Int()
	removeArtist   = removeCmd.Flag("artist", "Delete every track by this primary artist").String()
	removeApply    = removeCmd.Flag("apply", "Push the change to Spotify").Bool()

	// artwork command
	artworkCmd      = app.Command("artwork", "Prefetch cover images for a playlist into the local cache")
	artworkPlaylist = artworkCmd.Arg("playlist-id", "Playlist ID").Required().String()

	// logout command
	logoutCmd = app.Command("logout", "Clear stored credentials")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if err := run(command); err != nil {
		if errors.Is(err, spotify.ErrNotAuthenticated) {
			fmt.Fprintln(os.Stderr, "Not signed in. Run trackdeck-auth first.")
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(command string) error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := logger.Init(logger.Config{Output: cfg.Log.Output, Level: cfg.Log.Level, File: cfg.Log.File}); err != nil {
		return err
	}

	store, err := secrets.New(cfg.Secrets.Dir)
	if err != nil {
		return err
	}
	client, err := spotify.New(spotify.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RedirectURL:  cfg.RedirectURL(),
	}, store)
	if err != nil {
		return err
	}

	manager := editor.NewManager(client, client, editor.Options{
		PageLimit: cfg.Spotify.PageLimit,
		Pacing:    cfg.Pacing(),
	})

	ctx := context.Background()

	switch command {
	case playlistsCmd.FullCommand():
		return runPlaylists(ctx, client)
	case tracksCmd.FullCommand():
		return runTracks(ctx, manager, *tracksPlaylist, *tracksGrouped)
	case clusterCmd.FullCommand():
		return runCluster(ctx, manager, *clusterPlaylist, *clusterApply)
	case moveCmd.FullCommand():
		return runMove(ctx, manager, *movePlaylist, *moveFrom, *moveTo, *moveApply)
	case removeCmd.FullCommand():
		return runRemove(ctx, manager, *removePlaylist, *removeIndex, *removeArtist, *removeApply)
	case artworkCmd.FullCommand():
		return runArtwork(ctx, client, cfg, *artworkPlaylist)
	case logoutCmd.FullCommand():
		client.Logout()
		fmt.Println("Signed out.")
		return nil
	default:
		return errors.Newf("unknown command %q", command)
	}
}

func runPlaylists(ctx context.Context, client *spotify.Client) error {
	playlists, err := client.AllPlaylists(ctx)
	if err != nil {
		return err
	}

	plays, err := client.RecentlyPlayed(ctx, historyLimit, 0, 0)
	if err != nil {
		if !errors.Is(err, spotify.ErrInsufficientScope) {
			return err
		}
		// History needs an extra scope; fall back to unranked order.
		zlog.Warn().Msg("Recently-played scope not granted; listing playlists unranked")
	}

	for _, p := range rank.Rank(playlists, plays) {
		fmt.Printf("%-24s  %4d tracks  %s\n", p.ID, p.TrackTotal, p.Name)
	}
	return nil
}

func runTracks(ctx context.Context, manager *editor.Manager, playlistID string, grouped bool) error {
	session, err := loadSession(ctx, manager, playlistID)
	if err != nil {
		return err
	}

	if grouped {
		for _, g := range session.GroupedView() {
			fmt.Printf("%s\n", g.Artist)
			for _, e := range g.Entries {
				fmt.Printf("    %s\n", entryLabel(e))
			}
		}
		return nil
	}

	for i, e := range session.Working() {
		fmt.Printf("%4d  %s\n", i, entryLabel(e))
	}
	return nil
}

func runCluster(ctx context.Context, manager *editor.Manager, playlistID string, apply bool) error {
	session, err := loadSession(ctx, manager, playlistID)
	if err != nil {
		return err
	}
	if err := session.GroupByArtist(); err != nil {
		return err
	}
	return finish(ctx, session, apply)
}

func runMove(ctx context.Context, manager *editor.Manager, playlistID string, from []int, to int, apply bool) error {
	session, err := loadSession(ctx, manager, playlistID)
	if err != nil {
		return err
	}
	if err := session.Move(from, to); err != nil {
		return err
	}
	return finish(ctx, session, apply)
}

func runRemove(ctx context.Context, manager *editor.Manager, playlistID string, index int, artist string, apply bool) error {
	session, err := loadSession(ctx, manager, playlistID)
	if err != nil {
		return err
	}

	switch {
	case artist != "":
		if err := session.DeleteAllByArtist(artist); err != nil {
			return err
		}
	case index >= 0:
		working := session.Working()
		if index >= len(working) {
			return errors.Newf("index %d out of range (%d tracks)", index, len(working))
		}
		if err := session.Delete(working[index].Key()); err != nil {
			return err
		}
	default:
		return errors.New("either --index or --artist is required")
	}
	return finish(ctx, session, apply)
}

func runArtwork(ctx context.Context, client *spotify.Client, cfg *config.Config, playlistID string) error {
	cache, err := imagecache.New(cfg.Cache.Dir, cfg.Cache.MaxEntries)
	if err != nil {
		return err
	}

	entries, err := client.AllTracks(ctx, playlistID)
	if err != nil {
		return err
	}

	fetched := 0
	for _, e := range entries {
		if e.Track == nil || len(e.Track.Album.Images) == 0 {
			continue
		}
		if _, err := cache.Get(ctx, e.Track.Album.Images[0].URL); err != nil {
			zlog.Warn().Err(err).Str("track", e.Track.Name).Msg("Cover fetch failed")
			continue
		}
		fetched++
	}
	fmt.Printf("Cached %d cover images.\n", fetched)
	return nil
}

func loadSession(ctx context.Context, manager *editor.Manager, playlistID string) (*editor.Session, error) {
	session, loadCtx := manager.Select(ctx, playlistID)
	start := time.Now()
	if err := session.LoadAll(loadCtx); err != nil {
		return nil, err
	}
	zlog.Debug().
		Str("playlist_id", playlistID).
		Int("tracks", session.TotalRemote()).
		Dur("elapsed", time.Since(start)).
		Msg("Playlist loaded")
	return session, nil
}

func finish(ctx context.Context, session *editor.Session, apply bool) error {
	plan := session.Plan()
	if len(plan) == 0 {
		fmt.Println("Nothing to change.")
		return nil
	}

	if !apply {
		fmt.Printf("Plan (%d ops, use --apply to push):\n", len(plan))
		for _, op := range plan {
			fmt.Printf("    %s\n", op)
		}
		return nil
	}

	if err := session.Sync(ctx); err != nil {
		return err
	}
	fmt.Printf("Synced %d ops.\n", len(plan))
	return nil
}

func entryLabel(e playlist.Entry) string {
	if e.Track == nil {
		return fmt.Sprintf("(unavailable, added %s)", e.AddedAt.Format("2006-01-02"))
	}
	return fmt.Sprintf("%s / %s", e.Track.Name, e.PrimaryArtist())
}
