package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/siteaudit/siteaudit/internal/app"
	"github.com/siteaudit/siteaudit/internal/events"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Best-effort: a missing .env is the normal case.
	_ = godotenv.Load()

	var (
		targetURL  string
		pdpURL     string
		outputPath string
		configPath string
		depth      string
		visualMode string
		secScope   string
		psi        bool
		peek       bool
		pdpEnabled bool
		eventsJSON bool
		verbose    bool
	)
	flag.StringVar(&targetURL, "url", "", "Target site URL (required)")
	flag.StringVar(&pdpURL, "pdp", "", "Optional product-detail URL")
	flag.StringVar(&outputPath, "out", "report.json", "Path to write the JSON report")
	flag.StringVar(&configPath, "config", "", "Optional YAML config file")
	flag.StringVar(&depth, "depth", string(app.DepthShallow), "Crawl depth: surface, shallow, or deep")
	flag.StringVar(&visualMode, "visual", string(app.VisualRendered), "Visual mode: url_context, rendered, both, or none")
	flag.StringVar(&secScope, "security", string(app.SecurityHeadersOnly), "Security scope: headers_only or full")
	flag.BoolVar(&psi, "psi", true, "Run the PageSpeed Insights probe")
	flag.BoolVar(&peek, "codebase-peek", false, "Allow the external security scanner")
	flag.BoolVar(&pdpEnabled, "enable-pdp", true, "Audit the product-detail URL when given")
	flag.BoolVar(&eventsJSON, "events", false, "Print progress events as JSON lines on stdout")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.Parse()

	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	if targetURL == "" {
		fmt.Fprintln(os.Stderr, "usage: siteaudit -url https://example.com [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := app.LoadConfigFile(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	cfg.CrawlDepth = app.CrawlDepth(depth)
	cfg.VisualMode = app.VisualMode(visualMode)
	cfg.SecurityScope = app.SecurityScope(secScope)
	cfg.PSIEnabled = psi
	cfg.EnableCodebasePeek = peek
	cfg.EnablePDP = pdpEnabled
	cfg.ApplyEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize")
	}
	defer a.Close()

	handle, err := a.StartAudit(ctx, targetURL, pdpURL)
	if err != nil {
		log.Fatal().Err(err).Msg("audit rejected")
	}

	enc := json.NewEncoder(os.Stdout)
	for ev := range handle.Events {
		if eventsJSON {
			_ = enc.Encode(ev)
			continue
		}
		logEvent(ev)
	}

	rep, err := handle.Wait()
	if err != nil {
		log.Fatal().Err(err).Msg("audit failed")
	}

	blob, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("encode report")
	}
	if err := os.WriteFile(outputPath, blob, 0o644); err != nil {
		log.Fatal().Err(err).Msg("write report")
	}
	log.Info().
		Str("out", outputPath).
		Float64("overall", rep.Scores.Overall).
		Int("findings", len(rep.Findings)).
		Bool("llmSynthesis", rep.UsedSynthesis).
		Msg("audit complete")
}

func logEvent(ev events.Event) {
	switch ev.Type {
	case events.Layer1Collector:
		log.Debug().Str("collector", ev.Collector).Str("status", ev.Status).Msg("probe")
	case events.Layer3Audit:
		log.Debug().Str("audit", ev.Audit).Str("status", ev.Status).Msg("audit")
	case events.AuditError:
		log.Error().Str("message", ev.Message).Msg("audit error")
	case events.Layer3Finding:
		// Individual findings stay at debug; the report carries them.
		log.Debug().Str("audit", ev.Audit).Msg("finding")
	default:
		log.Info().Str("event", string(ev.Type)).Msg("progress")
	}
}
