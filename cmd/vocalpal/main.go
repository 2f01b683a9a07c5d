// VocalPal is a tiger companion that helps children practise speaking.
//
// Usage:
//
//	vocalpal [-http] [-survey] [-user id] [-condition name] [-verbose] [-quiet]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hammamikhairi/vocalpal/internal/config"
	"github.com/hammamikhairi/vocalpal/internal/conversation"
	"github.com/hammamikhairi/vocalpal/internal/display"
	"github.com/hammamikhairi/vocalpal/internal/domain"
	"github.com/hammamikhairi/vocalpal/internal/httpapi"
	"github.com/hammamikhairi/vocalpal/internal/logger"
	"github.com/hammamikhairi/vocalpal/internal/loop"
	"github.com/hammamikhairi/vocalpal/internal/profile"
	"github.com/hammamikhairi/vocalpal/internal/session"
	"github.com/hammamikhairi/vocalpal/internal/speech"
	"github.com/hammamikhairi/vocalpal/internal/storage"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	httpMode := flag.Bool("http", false, "serve the HTTP/WebSocket API instead of the terminal UI")
	surveyMode := flag.Bool("survey", false, "ask the onboarding questions before the session starts")
	verbose := flag.Bool("verbose", false, "enable verbose/debug logging")
	quiet := flag.Bool("quiet", false, "disable all logging")
	noSpeech := flag.Bool("no-speech", false, "disable text-to-speech even if Azure keys are set")
	flag.StringVar(&cfg.UserID, "user", cfg.UserID, "user id to load and save progress for")
	flag.StringVar(&cfg.Condition, "condition", cfg.Condition, "condition profile: autism, adhd, dyslexia or none")
	flag.StringVar(&cfg.Store, "store", cfg.Store, "progress store: memory, sqlite or supabase")
	flag.StringVar(&cfg.HTTPAddr, "addr", cfg.HTTPAddr, "listen address for -http")
	flag.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "file to write logs to (use \"stderr\" to log to console)")
	flag.StringVar(&cfg.WhisperBin, "whisper-bin", cfg.WhisperBin, "path to the whisper-cpp CLI binary (empty disables the mic)")
	flag.StringVar(&cfg.WhisperModel, "whisper-model", cfg.WhisperModel, "path to the Whisper GGML model file")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration:\n%v\n", err)
		os.Exit(2)
	}

	logLevel := logger.ParseLevel(cfg.LogLevel)
	if *verbose {
		logLevel = logger.LevelVerbose
	}
	if *quiet {
		logLevel = logger.LevelOff
	}

	// In terminal mode logs go to a file so the prompt stays clean.
	var logOut io.Writer = os.Stderr
	if !*httpMode && cfg.LogFile != "" && cfg.LogFile != "stderr" {
		if dir := filepath.Dir(cfg.LogFile); dir != "" && dir != "." {
			_ = os.MkdirAll(dir, 0o755)
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", cfg.LogFile, err)
		} else {
			logOut = f
			defer f.Close()
		}
	}
	// Third-party libraries log through the standard logger.
	stdlog.SetOutput(logOut)
	stdlog.SetFlags(stdlog.Ltime)

	log := logger.New(logLevel, logOut)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, log.Named("store"))
	if err != nil {
		log.Error("%v", err)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeStore()

	lp := loop.New(log.Named("loop"))
	lp.Start(ctx)
	defer lp.Stop()

	if *httpMode {
		if err := serveHTTP(ctx, cfg, store, lp, log, *noSpeech); err != nil {
			log.Error("http: %v", err)
			os.Exit(1)
		}
		return
	}

	ui := display.NewUI()
	a := &app{
		cfg:      cfg,
		store:    store,
		lp:       lp,
		ui:       ui,
		log:      log,
		noSpeech: *noSpeech,
	}

	fmt.Println(display.RenderBanner(0))
	fmt.Println(display.BannerStyle.Render("  Type to talk to your tiger. /help for commands, /quit to exit."))
	fmt.Println()

	done := make(chan struct{})
	go func() {
		defer close(done)
		ui.WaitReady()
		a.run(ctx, *surveyMode)
		ui.Quit()
	}()

	// Bubble Tea owns the terminal until quit.
	if err := ui.Run(); err != nil {
		log.Error("display: %v", err)
	}
	stop()
	<-done
}

// openStore builds the configured progress store. The returned func
// releases it.
func openStore(ctx context.Context, cfg config.Config, log *logger.Logger) (domain.ProgressStore, func(), error) {
	switch cfg.Store {
	case config.StoreSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "" && dir != "." {
			_ = os.MkdirAll(dir, 0o755)
		}
		s, err := storage.OpenSQLite(ctx, cfg.SQLitePath, log)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		log.Info("progress stored in %s", cfg.SQLitePath)
		return s, func() { _ = s.Close() }, nil
	case config.StoreSupabase:
		s, err := storage.NewSupabaseStore(storage.SupabaseConfig{
			URL:   cfg.SupabaseURL,
			Key:   cfg.SupabaseKey,
			Table: cfg.SupabaseTable,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		log.Info("progress stored in supabase table %s", cfg.SupabaseTable)
		return s, func() {}, nil
	default:
		log.Info("progress kept in memory for this run")
		return storage.NewMemoryStore(log), func() {}, nil
	}
}

// newSpeech wires whichever engines are configured into an adapter. A
// missing engine leaves the matching capability unsupported.
func newSpeech(ctx context.Context, cfg config.Config, condition string, sched loop.Scheduler, log *logger.Logger, noSpeech bool) *speech.Adapter {
	prof := profile.ResolveString(condition)

	var synth speech.SynthesisEngine
	switch {
	case noSpeech:
	case cfg.SpeechEnabled():
		client := speech.NewAzureClient(cfg.AzureSpeechKey, cfg.AzureSpeechRegion, log, speech.WithVoice(cfg.Voice))
		player, err := speech.NewPlayer(log)
		if err != nil {
			log.Error("audio player init failed, speech disabled: %v", err)
			break
		}
		az := speech.NewAzureSynthesizer(client, player, log,
			speech.WithCacheDir(cfg.TTSCacheDir),
			speech.WithDiskWrite(cfg.DiskCache),
		)
		go az.Prefetch(ctx, prof.SpeechRate,
			conversation.LineGreeting(),
			conversation.LineGreetingReply(),
			conversation.LineDogReply(),
			conversation.LineListening(),
			conversation.LineDidNotHear(),
		)
		synth = az
		log.Info("TTS enabled (voice=%s, region=%s)", cfg.Voice, cfg.AzureSpeechRegion)
	default:
		log.Info("TTS disabled: set %s and %s to enable", speech.EnvAzureSpeechKey, speech.EnvAzureSpeechRegion)
	}

	var rec speech.RecognitionEngine
	if cfg.RecognitionEnabled() {
		w := speech.NewWhisperRecognizer(cfg.WhisperBin, cfg.WhisperModel, log)
		if w.Available() {
			rec = w
			log.Info("voice input enabled (bin=%s, model=%s)", cfg.WhisperBin, cfg.WhisperModel)
		} else {
			log.Warn("whisper binary %s not found, voice input disabled", cfg.WhisperBin)
		}
	}

	return speech.NewAdapter(synth, rec, sched, log,
		speech.WithLocale(cfg.Locale),
		speech.WithVolume(prof.SoundVolume),
		speech.WithListenTimeout(cfg.ListenTimeout),
	)
}

// serveHTTP runs one session behind the HTTP API until ctx is cancelled.
func serveHTTP(ctx context.Context, cfg config.Config, store domain.ProgressStore, lp *loop.Loop, log *logger.Logger, noSpeech bool) error {
	sp := newSpeech(ctx, cfg, cfg.Condition, lp, log.Named("speech"), noSpeech)

	var srv *httpapi.Server
	ctrl := session.New(cfg.UserID, cfg.Condition, sp, store, lp, log.Named("session"),
		session.WithObserver(func(st session.State) { srv.Publish(st) }),
		session.WithVoiceReplies(cfg.VoiceReplies),
	)
	srv = httpapi.New(lp, ctrl, log.Named("http"))

	if err := ctrl.Start(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(cfg.HTTPAddr) }()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		log.Warn("http shutdown: %v", err)
	}
	if err := ctrl.Close(shutdownCtx); err != nil {
		log.Warn("session close: %v", err)
	}
	return runErr
}
