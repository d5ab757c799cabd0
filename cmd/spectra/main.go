// Command spectra batch-processes EEG session recordings: each file is
// conditioned, artifact-rejected and summarised into per-channel power
// spectra, with audit artifacts persisted per session. A failing session
// is logged and skipped; the batch always continues.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/neuro-data/spectra.report/internal/config"
	"github.com/neuro-data/spectra.report/internal/eeg"
	"github.com/neuro-data/spectra.report/internal/eeg/pipeline"
	"github.com/neuro-data/spectra.report/internal/eeg/storage/sqlite"
	"github.com/neuro-data/spectra.report/internal/monitoring"
	"github.com/neuro-data/spectra.report/internal/version"
)

var (
	dbPath     = flag.String("db", "spectra.db", "Path to the artifact database")
	configPath = flag.String("config", "", "Path to a JSON tuning config (defaults apply when empty)")
	layoutPath = flag.String("layout", "", "Path to a JSON channel layout (built-in 32-channel montage when empty)")
	reviewDir  = flag.String("review-dir", "", "Directory of <session>.review.json sidecars (unattended mode when empty)")
	seed       = flag.Int64("seed", 0, "Override the decomposition seed (0 keeps the configured value)")
	resume     = flag.Bool("resume", false, "Recompute spectra from the post-rejection checkpoint instead of reprocessing")
	quiet      = flag.Bool("quiet", false, "Suppress stage diagnostics")
	showVer    = flag.Bool("version", false, "Print version information and exit")
)

func main() {
	flag.Parse()
	if *showVer {
		fmt.Printf("spectra %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}
	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: spectra [flags] <session-file>...")
		flag.PrintDefaults()
		os.Exit(2)
	}
	if *quiet {
		monitoring.SetLogger(nil)
	}

	cfg := config.EmptyTuningConfig()
	if *configPath != "" {
		loaded, err := config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg = loaded
	}
	if *seed != 0 {
		cfg.ICASeed = seed
	}

	layout := eeg.DefaultLayout32()
	if *layoutPath != "" {
		loaded, err := eeg.LoadLayout(*layoutPath)
		if err != nil {
			log.Fatalf("load layout: %v", err)
		}
		layout = loaded
	}

	store, err := sqlite.Open(*dbPath)
	if err != nil {
		log.Fatalf("open artifact store: %v", err)
	}
	defer store.Close()

	p := pipeline.New(layout, cfg)
	p.Store = store
	if *reviewDir != "" {
		p.Review = pipeline.FileReview{Dir: *reviewDir}
	}

	failures := 0
	for _, path := range flag.Args() {
		if err := processOne(p, store, cfg, path); err != nil {
			log.Printf("session %s failed: %v", pipeline.SessionIDFromPath(path), err)
			failures++
		}
	}
	if failures > 0 {
		log.Printf("batch finished with %d of %d sessions failed", failures, flag.NArg())
		os.Exit(1)
	}
	log.Printf("batch finished: %d sessions processed", flag.NArg())
}

// processOne runs (or resumes) a single session. Errors are contained to
// this session; the store's session row records the outcome either way.
func processOne(p *pipeline.Pipeline, store *sqlite.Store, cfg *config.TuningConfig, path string) error {
	sessionID := pipeline.SessionIDFromPath(path)

	if *resume {
		result, err := p.Resume(sessionID)
		if err != nil {
			return err
		}
		log.Printf("session %s: recomputed %d-bin spectra from checkpoint", sessionID, len(result.Spectra.Freqs))
		return nil
	}

	if err := store.BeginSession(&sqlite.Session{
		SessionID:  sessionID,
		SourceFile: path,
		NativeRate: cfg.GetNativeRate(),
		TargetRate: cfg.GetTargetRate(),
		ICASeed:    cfg.GetICASeed(),
	}); err != nil {
		return fmt.Errorf("register session: %w", err)
	}

	result, err := p.Run(path, sessionID)
	if err != nil {
		if ferr := store.FinishSession(sessionID, sqlite.SessionFailed, err.Error()); ferr != nil {
			log.Printf("session %s: failed to record failure: %v", sessionID, ferr)
		}
		return err
	}
	if err := store.FinishSession(sessionID, sqlite.SessionComplete, ""); err != nil {
		return fmt.Errorf("record completion: %w", err)
	}

	rejected := 0
	for _, c := range result.Classifications {
		if c.Rejected {
			rejected++
		}
	}
	log.Printf("session %s: rank=%d seed=%d rejected=%d/%d flagged_channels=%d bins=%d",
		sessionID, result.Decomposition.Rank, result.Decomposition.Seed,
		rejected, result.Decomposition.Rank,
		len(result.Quality.FlaggedChannels()), len(result.Spectra.Freqs))
	return nil
}
