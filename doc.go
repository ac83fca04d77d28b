// Package playlist2podcast mirrors video playlists as self-hosted podcasts.
//
// Overview
//
// For every configured playlist, playlist2podcast periodically runs yt-dlp to
// download new items as audio into a per-podcast directory, then rebuilds an
// RSS document (podcast.xml) that lists every downloaded file with its
// metadata. Serving the directory over HTTP is left to a regular web server.
//
// Quick Start
//
//	cfg, err := config.Load("config.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	app, err := playlist2podcast.Open(ctx, cfg, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer app.Close()
//	err = app.Run(ctx) // blocks until ctx is cancelled
//
// Configuration
//
// The configuration file is YAML, or TOML when its name ends in .toml:
//
//	podcasts_path: /srv/podcasts
//	host_base_url: https://pods.example.com/
//	dateafter: 20230101
//	ytdlp_args: ["--cookies", "/etc/p2p/cookies.txt"]
//	podcasts:
//	  my-show: https://www.youtube.com/playlist?list=PL...
//
// podcasts is either a mapping from podcast name to playlist URL, or a list of
// playlist URLs whose titles are looked up with yt-dlp. Environment variables
// override the file:
//
//   - P2P_PODCASTS_PATH, P2P_HOST_BASE_URL, P2P_DATEAFTER
//   - P2P_YTDLP_PATH, P2P_YTDLP_TIMEOUT
//   - P2P_INTERVAL: Pause between sync cycles (default 24h)
//   - P2P_LOG_LEVEL, P2P_METRICS_TEXTFILE
//
// Layout
//
// Each podcast lives in <podcasts_path>/<slug>/ and is served at
// <host_base_url><slug>/. The directory holds the media files, one
// .info.json sidecar per file, the download archive downloaded.txt and
// podcast.xml. The sync state lives outside the served tree, beside
// podcasts_path (/srv/.podcasts.playlist2podcast.json for the example above),
// unless state_file says otherwise. Logs go to standard output.
package playlist2podcast
