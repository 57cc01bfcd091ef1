package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"sketch-sprite/internal/batch"
	"sketch-sprite/internal/config"
	"sketch-sprite/internal/logger"
	"sketch-sprite/internal/models"
	"sketch-sprite/internal/services"
	"sketch-sprite/internal/shutdown"
	"sketch-sprite/internal/timing"
)

const (
	AppName    = "sketch-sprite"
	AppVersion = "1.0.0"
)

const (
	exitOK = iota
	exitFailed
	exitUsage
)

type options struct {
	configPath string
	input      string
	output     string
	name       string
	watch      bool
	workers    int
	jsonOut    bool
	version    bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	if opts.version {
		fmt.Fprintf(stdout, "%s %s\n", AppName, AppVersion)
		return exitOK
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "configuration: %v\n", err)
		return exitUsage
	}
	if opts.workers > 0 {
		cfg.Batch.Workers = opts.workers
	}

	appLogger, err := logger.New(logger.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		fmt.Fprintf(stderr, "logger: %v\n", err)
		return exitUsage
	}

	manager := shutdown.NewManager(context.Background(), appLogger)
	manager.Register("logger", appLogger.Close)
	manager.Listen()
	defer manager.Shutdown()

	processor, err := services.NewImageProcessor(cfg, appLogger)
	if err != nil {
		fmt.Fprintf(stderr, "processor: %v\n", err)
		return exitUsage
	}

	appLogger.Info("Main", "starting", map[string]interface{}{
		"version": AppVersion,
		"input":   opts.input,
		"output":  opts.output,
		"watch":   opts.watch,
		"workers": cfg.Batch.Workers,
	})

	ctx := manager.Context()
	printer := resultPrinter{out: stdout, json: opts.jsonOut}

	if opts.watch {
		watcher := batch.NewWatcher(processor, cfg.Input, appLogger)
		if err := watcher.Watch(ctx, opts.input, opts.output, printer.result); err != nil {
			fmt.Fprintf(stderr, "watch: %v\n", err)
			return exitFailed
		}
		return exitOK
	}

	info, err := os.Stat(opts.input)
	if err != nil {
		fmt.Fprintf(stderr, "input: %v\n", err)
		return exitUsage
	}

	if !info.IsDir() {
		res := processor.ProcessCharacterImage(opts.input, opts.output, opts.name)
		printer.result(res)
		if !res.Success {
			return exitFailed
		}
		return exitOK
	}

	report, err := batch.NewRunner(processor, cfg.Input, cfg.Batch.Workers, appLogger).Run(ctx, opts.input, opts.output)
	if report != nil {
		printer.report(report)
		printer.stages(processor.Timings())
	}
	if err != nil {
		fmt.Fprintf(stderr, "batch: %v\n", err)
		return exitFailed
	}
	if report.Summary.Failed > 0 {
		return exitFailed
	}
	return exitOK
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options

	fs := flag.NewFlagSet(AppName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "path to a YAML config file (default: ./sketch-sprite.yaml or ./config/sketch-sprite.yaml)")
	fs.StringVar(&opts.input, "in", "", "input image, or a directory to process as a batch")
	fs.StringVar(&opts.output, "out", "", "output directory")
	fs.StringVar(&opts.name, "name", "", "output base name for a single image (default: input file name)")
	fs.BoolVar(&opts.watch, "watch", false, "watch the input directory and process new images until interrupted")
	fs.IntVar(&opts.workers, "workers", 0, "concurrent images in batch mode (default from config)")
	fs.BoolVar(&opts.jsonOut, "json", false, "print results as JSON")
	fs.BoolVar(&opts.version, "version", false, "print version and exit")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s -in <image|dir> -out <dir> [flags]\n\n", AppName)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.version {
		return opts, nil
	}
	if opts.input == "" || opts.output == "" {
		fs.Usage()
		return opts, errors.New("both -in and -out are required")
	}
	if opts.watch && opts.name != "" {
		return opts, errors.New("-name applies to a single image, not -watch")
	}
	if opts.workers < 0 {
		return opts, fmt.Errorf("-workers must be positive, got %d", opts.workers)
	}
	return opts, nil
}

type resultPrinter struct {
	out  io.Writer
	json bool
}

func (p resultPrinter) result(res *models.ProcessResult) {
	if p.json {
		p.encode(res)
		return
	}
	if res.Success {
		fmt.Fprintf(p.out, "ok    %s -> %s (%s, %s)\n", res.InputPath, res.SpritePath, res.Strategy, res.Duration.Round(time.Millisecond))
		return
	}
	fmt.Fprintf(p.out, "fail  %s: %s\n", res.InputPath, res.Message)
}

func (p resultPrinter) report(r *batch.Report) {
	if p.json {
		p.encode(r)
		return
	}
	for _, res := range r.Results {
		p.result(res)
	}
	fmt.Fprintf(p.out, "run %s: %s\n", r.RunID, r.Summary)
}

func (p resultPrinter) stages(t *timing.Tracker) {
	if p.json || len(t.Stages()) == 0 {
		return
	}
	averages := t.Averages()
	parts := make([]string, 0, len(averages))
	for _, stage := range t.Stages() {
		parts = append(parts, fmt.Sprintf("%s=%s", stage, averages[stage].Round(time.Millisecond)))
	}
	fmt.Fprintf(p.out, "mean stage time: %s\n", strings.Join(parts, " "))
}

func (p resultPrinter) encode(v interface{}) {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
