// Command itslang exercises the ITSLanguage SDK from the command line:
// listing organisations and students, streaming a WAV file through a
// recording or recognition session, and playing stored audio back.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/itslanguage/itslanguage-go/internal/config"
	"github.com/itslanguage/itslanguage-go/internal/observe"
	"github.com/itslanguage/itslanguage-go/pkg/api"
	"github.com/itslanguage/itslanguage-go/pkg/connection"
	"github.com/itslanguage/itslanguage-go/pkg/player"
	"github.com/itslanguage/itslanguage-go/pkg/session"
)

const version = "0.1.0"

const usageText = `usage: itslang [-config file] [-env file] <command> [arguments]

commands:
  organisations                      list organisations
  students <organisation>            list students of an organisation
  record -challenge id -file f.wav   stream a WAV file into a recording session
  recognise -challenge id -file f.wav [-choices a,b]
                                     stream a WAV file into a recognition session
  play <url>                         play stored audio to stdout
`

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "itslang.yaml", "path to the YAML configuration file")
	envPath := flag.String("env", "", "path to a .env file loaded before the config")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usageText) }
	flag.Parse()

	// ── Environment ────────────────────────────────────────────────────────────
	if *envPath != "" {
		if err := godotenv.Load(*envPath); err != nil {
			fmt.Fprintf(os.Stderr, "itslang: load env file %q: %v\n", *envPath, err)
			return 1
		}
	} else {
		// Best effort; a missing .env in the working directory is fine.
		_ = godotenv.Load()
	}

	// ── Configuration ──────────────────────────────────────────────────────────
	level := new(slog.LevelVar)
	watcher, err := config.NewWatcher(*configPath, func(cfg *config.Config, diff config.Diff) {
		if diff.LogLevelChanged {
			level.Set(diff.NewLogLevel.Slog())
			slog.Info("log level changed", "level", diff.NewLogLevel)
		}
		if diff.EndpointsChanged || diff.AccessTokenChanged {
			slog.Warn("endpoint or credential changes take effect on the next command")
		}
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "itslang: config file %q not found\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "itslang: %v\n", err)
		}
		return 1
	}
	defer watcher.Stop()
	cfg := watcher.Current()

	// ── Logger ─────────────────────────────────────────────────────────────────
	level.Set(cfg.LogLevel.Slog())
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	// ── Signal context ─────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Metrics ────────────────────────────────────────────────────────────────
	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "itslang",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise metrics", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(shutdownCtx); err != nil {
			slog.Warn("metrics shutdown error", "err", err)
		}
	}()

	// ── REST client ────────────────────────────────────────────────────────────
	client, err := api.New(api.Config{
		BaseURL:     cfg.API.URL,
		AccessToken: cfg.API.AccessToken,
		Timeout:     cfg.API.Timeout,
	})
	if err != nil {
		slog.Error("failed to create API client", "err", err)
		return 1
	}

	// ── Command dispatch ───────────────────────────────────────────────────────
	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		return 2
	}
	switch args[0] {
	case "organisations":
		return listOrganisations(ctx, client)
	case "students":
		return listStudents(ctx, cfg, client, args[1:])
	case "record":
		return runSession(ctx, cfg, client, args[1:], false)
	case "recognise":
		return runSession(ctx, cfg, client, args[1:], true)
	case "play":
		return playAudio(ctx, client, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "itslang: unknown command %q\n", args[0])
		flag.Usage()
		return 2
	}
}

func listOrganisations(ctx context.Context, client *api.Client) int {
	orgs, err := client.Organisations(ctx)
	if err != nil {
		slog.Error("failed to list organisations", "err", err)
		return 1
	}
	for _, org := range orgs {
		fmt.Printf("%s\t%s\n", org.ID, org.Name)
	}
	return 0
}

func listStudents(ctx context.Context, cfg *config.Config, client *api.Client, args []string) int {
	orgID := cfg.Recording.OrganisationID
	if len(args) > 0 {
		orgID = args[0]
	}
	if orgID == "" {
		fmt.Fprintln(os.Stderr, "itslang: students: no organisation given and none configured")
		return 2
	}
	students, err := client.Students(ctx, orgID)
	if err != nil {
		slog.Error("failed to list students", "err", err, "organisation", orgID)
		return 1
	}
	for _, s := range students {
		fmt.Printf("%s\t%s %s\n", s.ID, s.FirstName, s.LastName)
	}
	return 0
}

// runSession streams a WAV file through a recording or recognition session.
func runSession(ctx context.Context, cfg *config.Config, client *api.Client, args []string, recognise bool) int {
	name := "record"
	if recognise {
		name = "recognise"
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	challengeID := fs.String("challenge", "", "challenge id")
	orgID := fs.String("org", cfg.Recording.OrganisationID, "organisation id")
	file := fs.String("file", "", "WAV file to stream")
	choices := fs.String("choices", "", "comma-separated expected choices (recognise only)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *challengeID == "" || *file == "" {
		fmt.Fprintf(os.Stderr, "itslang: %s: -challenge and -file are required\n", name)
		return 2
	}

	rec, err := newFileRecorder(*file, recorder24kChunk, cfg.Recording)
	if err != nil {
		slog.Error("failed to open audio file", "err", err)
		return 1
	}

	conn, err := connection.Dial(ctx, connection.Config{
		URL:          cfg.WebSocket.URL,
		AccessToken:  cfg.API.AccessToken,
		DialTimeout:  cfg.WebSocket.DialTimeout,
		PingInterval: cfg.WebSocket.PingInterval,
	})
	if err != nil {
		slog.Error("failed to connect", "err", err, "url", cfg.WebSocket.URL)
		return 1
	}
	defer conn.Close()

	engine := session.New(conn, client)
	challenge := &session.Challenge{OrganisationID: *orgID, ID: *challengeID}
	opts := []session.Option{
		session.WithOnReady(func(sessionID string) {
			slog.Info("session ready, streaming audio", "session_id", sessionID, "file", *file)
			go rec.Stream(ctx)
		}),
	}
	if cfg.Recording.StepTimeout > 0 {
		opts = append(opts, session.WithStepTimeout(cfg.Recording.StepTimeout))
	}

	if recognise {
		result, err := engine.Recognise(ctx, challenge, rec, opts...)
		if err != nil {
			return reportSessionError(err)
		}
		fmt.Printf("recognised: %q\nrecording: %s\naudio: %s\n", result.Recognised, result.ID, result.AudioURL)
		if *choices != "" {
			match, ok := session.MatchChoice(result.Recognised, strings.Split(*choices, ","))
			if ok {
				fmt.Printf("matched choice: %q (score %.2f)\n", match.Choice, match.Score)
			} else {
				fmt.Println("no choice matched")
			}
		}
		return 0
	}

	result, err := engine.Record(ctx, challenge, rec, opts...)
	if err != nil {
		return reportSessionError(err)
	}
	fmt.Printf("recording: %s\nstudent: %s\naudio: %s\n", result.ID, result.Student.ID, result.AudioURL)
	return 0
}

func reportSessionError(err error) int {
	var recErr *session.RecognitionError
	if errors.As(err, &recErr) {
		slog.Error("session rejected", "code", recErr.Code, "message", recErr.Message)
		if recErr.Analysis != nil {
			fmt.Printf("partial recording kept: %s (%s)\n", recErr.Analysis.ID, recErr.Analysis.AudioURL)
		}
		return 1
	}
	slog.Error("session failed", "err", err)
	return 1
}

// playAudio streams a stored recording to stdout. Useful for piping into an
// audio tool, e.g. `itslang play <url> | aplay`.
func playAudio(ctx context.Context, client *api.Client, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "itslang: play: a URL is required")
		return 2
	}
	url := client.SignURL(args[0])

	done := make(chan error, 1)
	p := player.New(os.Stdout)
	defer p.Close()
	p.AddEventListener(player.EventEnded, func(player.Update) { done <- nil })
	p.AddEventListener(player.EventError, func(u player.Update) { done <- u.Err })

	if err := p.Load(ctx, url); err != nil {
		slog.Error("failed to load audio", "err", err)
		return 1
	}
	if err := p.Play(); err != nil {
		slog.Error("failed to start playback", "err", err)
		return 1
	}

	select {
	case err := <-done:
		if err != nil {
			slog.Error("playback failed", "err", err)
			return 1
		}
		return 0
	case <-ctx.Done():
		_ = p.Stop()
		return 1
	}
}
