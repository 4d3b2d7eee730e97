// Package cli implements the cliploop command line interface.
package cli

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"cliploop/autoplay"
	"cliploop/config"
	"cliploop/metrics"
	"cliploop/storage"
	"cliploop/twitch"
	"cliploop/web"
)

const shutdownTimeout = 10 * time.Second

// Run executes the command line and returns the process exit code.
func Run(args []string) int {
	if len(args) < 1 {
		printUsage()
		return 1
	}

	command := args[0]
	rest := args[1:]

	switch command {
	case "serve":
		return cmdServe(rest)
	case "clips":
		return cmdClips(rest)
	case "resolve":
		return cmdResolve(rest)
	case "help", "-h", "--help":
		printUsage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", command)
		printUsage()
		return 1
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `cliploop - Twitch clip auto-play session daemon

Usage:
  cliploop serve                         Run the session daemon and HTTP bridge
  cliploop clips [flags] <broadcaster>   List a broadcaster's clips
  cliploop resolve <broadcaster>         Resolve a query to a broadcaster id
  cliploop help                          Show this help message

Examples:
  cliploop serve                                      # Uses CLIPLOOP_* env / cliploop.json
  cliploop clips k4sen                                # Newest clips, last 24h
  cliploop clips -sort views -window 7d k4sen         # Most viewed this week
  cliploop clips -duration short -window all k4sen    # Short clips, all time
  cliploop resolve "stylishnoob"                      # Print the broadcaster id

For help on specific command: cliploop <command> -h
`)
}

// newClient builds the catalog client and its credential source from config.
func newClient(cfg *config.Config) (*twitch.Client, *twitch.AppTokenSource, error) {
	creds, err := twitch.NewAppTokenSource(cfg.ClientID, cfg.ClientSecret, cfg.AuthURL, nil)
	if err != nil {
		return nil, nil, err
	}

	clientCfg := twitch.DefaultConfig()
	clientCfg.ClientID = cfg.ClientID
	if cfg.HelixURL != "" {
		clientCfg.BaseURL = cfg.HelixURL
	}

	client, err := twitch.NewClient(clientCfg, creds)
	if err != nil {
		return nil, nil, err
	}
	return client, creds, nil
}

func cmdServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cliploop serve\n\nConfiguration comes from cliploop.json and CLIPLOOP_* environment variables.\n")
	}
	fs.Parse(args)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return 1
	}

	client, creds, err := newClient(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building catalog client: %v\n", err)
		return 1
	}
	defer client.Close()

	met := metrics.New()

	ctrlCfg := autoplay.Config{
		Timer: autoplay.TimerConfig{
			Lead:     cfg.Lead,
			MinArm:   cfg.MinArm,
			MinRearm: cfg.MinRearm,
		},
		PrefetchFraction: cfg.PrefetchFraction,
		FetchTimeout:     cfg.FetchTimeout,
		AutoAdvance:      cfg.AutoAdvance,
		Stats:            met,
	}

	if cfg.HistoryPath != "" {
		store, err := storage.NewJSONStore(cfg.HistoryPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening history store: %v\n", err)
			return 1
		}
		ctrlCfg.History = store
	}

	ctrl := autoplay.New(client, creds, ctrlCfg)
	ctrl.Start(context.Background())
	defer ctrl.Close()

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: web.NewServer(ctrl, cfg.EmbedParent, met).Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	fmt.Fprintf(os.Stderr, "cliploop listening on %s\n", cfg.ListenAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		return 1
	case <-sigCh:
	}

	fmt.Fprintf(os.Stderr, "Shutdown signal received, draining connections\n")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Shutdown error: %v\n", err)
		return 1
	}

	return 0
}

func cmdClips(args []string) int {
	fs := flag.NewFlagSet("clips", flag.ExitOnError)
	sortStr := fs.String("sort", "created_at", "Sort key: created_at, views, or duration")
	windowStr := fs.String("window", "24h", "Time window: 24h, 7d, 30d, 180d, or all")
	durationStr := fs.String("duration", "all", "Duration bucket: all, short, medium, or long")
	maxClips := fs.Int("max", 20, "Maximum clips to list")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cliploop clips [flags] <broadcaster>\n\nFlags:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	argv := fs.Args()
	if len(argv) == 0 {
		fmt.Fprintf(os.Stderr, "Error: missing broadcaster\n")
		fs.Usage()
		return 1
	}
	query := argv[0]

	spec := autoplay.Spec{
		Sort:     autoplay.SortKey(*sortStr),
		Window:   autoplay.TimeWindow(*windowStr),
		Duration: autoplay.DurationBucket(*durationStr),
	}
	if err := spec.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return 1
	}

	client, _, err := newClient(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building catalog client: %v\n", err)
		return 1
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.FetchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "Resolving %q...\n", query)
	b, err := client.ResolveBroadcaster(ctx, query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving broadcaster: %v\n", err)
		return 1
	}

	params := twitch.ClipsParams{BroadcasterID: b.ID}
	if start, end, ok := spec.Window.Bounds(time.Now()); ok {
		params.StartedAt = start
		params.EndedAt = end
	}

	page, err := client.FetchClips(ctx, params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching clips: %v\n", err)
		return 1
	}

	clips := spec.Apply(page.Clips)
	if len(clips) == 0 {
		fmt.Println("No clips found.")
		return 0
	}
	if *maxClips > 0 && len(clips) > *maxClips {
		clips = clips[:*maxClips]
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CLIP ID\tTITLE\tDURATION\tVIEWS\tCREATED")
	for _, c := range clips {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			c.ID,
			truncate(c.Title, 50),
			formatDuration(c.Duration),
			c.ViewCount,
			c.CreatedAt.Local().Format("2006-01-02 15:04"),
		)
	}
	w.Flush()

	fmt.Fprintf(os.Stderr, "\nTotal: %d clips from %s\n", len(clips), b.DisplayName)
	return 0
}

func cmdResolve(args []string) int {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cliploop resolve <broadcaster>\n")
	}
	fs.Parse(args)

	argv := fs.Args()
	if len(argv) == 0 {
		fmt.Fprintf(os.Stderr, "Error: missing broadcaster\n")
		fs.Usage()
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return 1
	}

	client, _, err := newClient(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building catalog client: %v\n", err)
		return 1
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.FetchTimeout)
	defer cancel()

	b, err := client.ResolveBroadcaster(ctx, argv[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving broadcaster: %v\n", err)
		return 1
	}

	fmt.Printf("ID:           %s\n", b.ID)
	fmt.Printf("Login:        %s\n", b.Login)
	fmt.Printf("Display name: %s\n", b.DisplayName)
	return 0
}

// truncate shortens s to maxLen runes. Clip titles are routinely CJK, so
// cutting on bytes would split characters.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

func formatDuration(seconds float64) string {
	minutes := int(seconds) / 60
	secs := int(seconds) % 60
	return fmt.Sprintf("%d:%02d", minutes, secs)
}
