// Command retell corrects noisy speech-recognizer hypotheses against a
// trusted reference corpus.
//
// With server.listen_addr configured it serves the HTTP correction API;
// otherwise it reads hypotheses from stdin, one per line, and prints the
// corrected text.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/retellabs/retell/internal/audit"
	"github.com/retellabs/retell/internal/config"
	"github.com/retellabs/retell/internal/corpus"
	"github.com/retellabs/retell/internal/correct"
	"github.com/retellabs/retell/internal/health"
	"github.com/retellabs/retell/internal/observe"
	"github.com/retellabs/retell/internal/server"
	"github.com/retellabs/retell/pkg/wordseq"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "retell: config file %q not found; copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "retell: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("retell starting",
		"config", *configPath,
		"corpus_source", cfg.Corpus.Source,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Observability ─────────────────────────────────────────────────────────
	shutdownObserve, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownObserve(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Tokenizer ─────────────────────────────────────────────────────────────
	norm, err := newNormalizer(cfg.Tokenizer)
	if err != nil {
		slog.Error("failed to build tokenizer", "err", err)
		return 1
	}

	// ── Corpus snapshot ───────────────────────────────────────────────────────
	snap, checkers, closeStore, err := loadSnapshot(ctx, cfg.Corpus)
	if err != nil {
		slog.Error("failed to load corpus", "err", err)
		return 1
	}
	defer closeStore()

	corp := corpus.Build(snap, norm)
	vocab := corpus.NewVocabulary(snap.Words)
	metrics.CorpusSentences.Add(ctx, int64(corp.Len()))

	slog.Info("corpus loaded",
		"name", corp.Name(),
		"sentences", corp.Len(),
		"vocabulary", vocab.Len(),
	)

	// ── Corrector ─────────────────────────────────────────────────────────────
	opts := []correct.Option{
		correct.WithRejectionThreshold(cfg.Correction.RejectionThreshold),
		correct.WithMetrics(metrics),
	}
	if cfg.Correction.Workers > 0 {
		opts = append(opts, correct.WithWorkers(cfg.Correction.Workers))
	}
	if cfg.Correction.VocabularySnap.Enabled {
		opts = append(opts, correct.WithVocabularySnap(cfg.Correction.VocabularySnap.Threshold))
	}
	if cfg.Correction.AuditLog != "" {
		opts = append(opts, correct.WithRecorder(audit.NewLog(cfg.Correction.AuditLog)))
		slog.Info("audit log enabled", "path", cfg.Correction.AuditLog)
	}

	corrector, err := correct.New(norm, corp, vocab, opts...)
	if err != nil {
		slog.Error("failed to build corrector", "err", err)
		return 1
	}

	// ── Serve or read stdin ───────────────────────────────────────────────────
	if cfg.Server.ListenAddr == "" {
		return runStdin(ctx, corrector)
	}

	srv := server.New(cfg.Server.ListenAddr, corrector, metrics, checkers...)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("server error", "err", err)
			return 1
		}
	case <-ctx.Done():
	}

	slog.Info("shutdown signal received, stopping…")
	if err := srv.Shutdown(context.Background()); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// runStdin corrects hypotheses read line-by-line from stdin, printing each
// corrected sentence to stdout.
func runStdin(ctx context.Context, corrector *correct.Corrector) int {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return 0
		}
		result, err := corrector.Correct(ctx, scanner.Text())
		if err != nil {
			slog.Error("correction failed", "err", err)
			return 1
		}
		fmt.Println(result.Corrected)
	}
	if err := scanner.Err(); err != nil {
		slog.Error("stdin read error", "err", err)
		return 1
	}
	return 0
}

// newNormalizer maps the tokenizer config block onto wordseq options.
func newNormalizer(cfg config.TokenizerConfig) (*wordseq.Normalizer, error) {
	opts := []wordseq.Option{
		wordseq.WithSeparator(cfg.Separator),
	}
	if cfg.Punctuation != "" {
		opts = append(opts, wordseq.WithPunctuation(cfg.Punctuation))
	}
	if cfg.KeepPunctuation {
		opts = append(opts, wordseq.WithoutPunctuationRemoval())
	}
	if cfg.Lowercase {
		opts = append(opts, wordseq.WithLowercasing())
	}
	return wordseq.New(opts...)
}

// loadSnapshot loads the corpus snapshot from the configured store. It
// returns the snapshot, the readiness checkers for the store, and a cleanup
// function (a no-op for the file store).
func loadSnapshot(ctx context.Context, cfg config.CorpusConfig) (corpus.Snapshot, []health.Checker, func(), error) {
	switch cfg.Source {
	case config.SourcePostgres:
		store, err := corpus.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return corpus.Snapshot{}, nil, func() {}, err
		}
		snap, err := store.Snapshot(ctx, cfg.Name)
		if err != nil {
			store.Close()
			return corpus.Snapshot{}, nil, func() {}, err
		}
		checkers := []health.Checker{{Name: "postgres", Check: store.Ping}}
		return snap, checkers, store.Close, nil

	default: // config.SourceFile; config validation guarantees the path is set
		var (
			snap corpus.Snapshot
			err  error
		)
		if corpus.IsSubtitlePath(cfg.Path) {
			snap, err = corpus.ImportSubtitleFile(cfg.Path)
		} else {
			snap, err = corpus.LoadFile(cfg.Path)
		}
		if err != nil {
			return corpus.Snapshot{}, nil, func() {}, err
		}
		return snap, nil, func() {}, nil
	}
}

// newLogger builds the process-wide slog logger at the configured level.
func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
