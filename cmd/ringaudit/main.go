package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"ringaudit/internal/adapter"
	"ringaudit/internal/config"
	"ringaudit/internal/crawler"
	"ringaudit/internal/domain"
	"ringaudit/internal/logger"
	"ringaudit/internal/metrics"
	"ringaudit/internal/repository"
	"ringaudit/internal/repository/sqlite"
	"ringaudit/internal/service"
	"ringaudit/internal/watcher"
)

const usage = `usage:
ringaudit [-debug] [-debug2] [-port <xmlrpc port of an overlay node>] [-secure]
          [-config file] [-db file] [-export file] [-format json|yaml]
          [-textfile file] [-interval duration] [-replay file] [-history n]
debug = log the node being crawled
debug2 = debug + log the neighbors of every node
port = the xmlrpc port of the overlay node used as the entry point
secure = crawl through the secure proxy
`

// Exit codes
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// flags holds the parsed command line; set records which flags were given
type flags struct {
	port     int
	debug    bool
	debug2   bool
	secure   bool
	config   string
	db       string
	export   string
	format   string
	textfile string
	interval time.Duration
	replay   string
	history  int
	set      map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (*flags, error) {
	f := &flags{set: make(map[string]bool)}
	fs := flag.NewFlagSet("ringaudit", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.IntVar(&f.port, "port", config.DefaultPort, "XML-RPC port of the entry node")
	fs.BoolVar(&f.debug, "debug", false, "log each node as it is crawled")
	fs.BoolVar(&f.debug2, "debug2", false, "debug plus full neighbor responses")
	fs.BoolVar(&f.secure, "secure", false, "crawl through the secure proxy")
	fs.StringVar(&f.config, "config", "", "config file path")
	fs.StringVar(&f.db, "db", "", "SQLite audit history path")
	fs.StringVar(&f.export, "export", "", "write the audit to this file")
	fs.StringVar(&f.format, "format", "", "export format: json or yaml")
	fs.StringVar(&f.textfile, "textfile", "", "write Prometheus metrics to this file")
	fs.DurationVar(&f.interval, "interval", 0, "repeat the audit at this interval")
	fs.StringVar(&f.replay, "replay", "", "re-evaluate an exported audit instead of crawling")
	fs.IntVar(&f.history, "history", 0, "print the last n stored audits and exit")

	if err := fs.Parse(args); err != nil {
		fmt.Fprint(stderr, usage)
		return nil, err
	}
	if fs.NArg() > 0 {
		fmt.Fprint(stderr, usage)
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })
	return f, nil
}

// loadConfig reads the config file and applies flag overrides
func loadConfig(f *flags) (*config.Config, string, error) {
	var (
		cfg  *config.Config
		path string
		err  error
	)
	if f.config != "" {
		cfg, path, err = config.LoadFromPath(f.config)
	} else {
		cfg, path, err = config.Load()
	}
	if err != nil {
		return nil, path, err
	}

	if f.set["port"] {
		cfg.Node.Port = f.port
	}
	if f.secure {
		cfg.Node.Secure = true
	}
	if f.db != "" {
		cfg.Database.Path = f.db
	}
	if f.export != "" {
		cfg.Export.Path = f.export
	}
	if f.format != "" {
		cfg.Export.Format = f.format
	}
	if f.textfile != "" {
		cfg.Metrics.Textfile = f.textfile
	}
	if f.set["interval"] {
		d := config.Duration(f.interval)
		cfg.Crawl.Interval = &d
	}

	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	f, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	cfg, cfgPath, err := loadConfig(f)
	if err != nil {
		fmt.Fprintf(stderr, "ringaudit: %v\n", err)
		return exitError
	}

	logs := logger.New(logger.Options{Levels: cfg.Log.Level, Format: cfg.Log.Format, Output: stderr})
	if f.debug || f.debug2 {
		logs.SetLevel("crawler", slog.LevelDebug)
	}
	if f.debug2 {
		logs.SetLevel("adapter", slog.LevelDebug)
	}
	log := logs.Logger("main")
	if cfgPath != "" {
		log.Info("config loaded", "path", cfgPath)
	}
	log.Debug("configuration", "summary", cfg.Summary())

	var repo repository.Repository
	if cfg.Database.Path != "" {
		db, err := sqlite.New(cfg.Database.Path)
		if err != nil {
			log.Error("failed to open audit history", "path", cfg.Database.Path, "error", err)
			return exitError
		}
		defer db.Close()
		repo = db
	}

	var collector *metrics.Collector
	if cfg.Metrics.Textfile != "" {
		collector = metrics.New()
	}

	opts := service.Options{
		Crawl:    crawlOptions(cfg),
		Deadline: cfg.Deadline(),
		Repo:     repo,
		Metrics:  collector,
		EventBus: service.NewEventBus(),
	}

	switch {
	case f.history > 0:
		svc := service.NewAuditService(nil, opts, logs.Logger("service"))
		audits, err := svc.History(ctx, f.history)
		if err != nil {
			log.Error("failed to read audit history", "error", err)
			return exitError
		}
		if err := service.WriteHistory(stdout, audits); err != nil {
			return exitError
		}
		return exitOK

	case f.replay != "":
		svc := service.NewAuditService(nil, opts, logs.Logger("service"))
		a, err := importFile(f.replay, cfg.Export.Format)
		if err != nil {
			log.Error("failed to read audit", "path", f.replay, "error", err)
			return exitError
		}
		svc.Replay(a)
		return finish(a, cfg, collector, stdout, log)
	}

	client, err := adapter.NewXMLRPCClient(adapter.XMLRPCConfig{
		Endpoint: adapter.Endpoint(cfg.Node.Host, cfg.Node.Port, cfg.Node.Path),
		Timeout:  cfg.Node.Timeout.Duration(),
		Verbose:  f.debug2,
	}, logs.Logger("adapter"))
	if err != nil {
		log.Error("failed to create node client", "error", err)
		return exitError
	}
	defer client.Close()

	svc := service.NewAuditService(client, opts, logs.Logger("crawler"))

	interval := cfg.Interval()
	if interval <= 0 {
		a, err := svc.Run(ctx)
		if a == nil {
			log.Error("audit failed", "error", err)
			return exitError
		}
		code := finish(a, cfg, collector, stdout, log)
		if err != nil {
			log.Warn("audit interrupted", "error", err)
		}
		return code
	}

	events := make(chan service.Event, 16)
	opts.EventBus.Subscribe(events)
	go logEvents(ctx, events, log)

	if cfgPath != "" {
		w := watcher.New(cfgPath, func() {
			next, _, err := loadConfig(f)
			if err != nil {
				log.Warn("ignoring config change", "error", err)
				return
			}
			svc.Reconfigure(crawlOptions(next), next.Deadline())
		}, logs.Logger("watcher"))
		go func() {
			if err := w.Watch(ctx); err != nil && ctx.Err() == nil {
				log.Warn("config watch stopped", "error", err)
			}
		}()
	}

	log.Info("watching ring", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		a, err := svc.Run(ctx)
		if a != nil {
			finish(a, cfg, collector, stdout, log)
		}
		if err != nil && ctx.Err() == nil {
			log.Error("audit failed", "error", err)
		}

		select {
		case <-ctx.Done():
			log.Info("stopped")
			return exitOK
		case <-ticker.C:
		}
	}
}

// crawlOptions maps the crawl settings onto walker options
func crawlOptions(cfg *config.Config) crawler.Options {
	return crawler.Options{
		Mode: adapter.ModeFor(cfg.Node.Secure),
		Limits: crawler.Limits{
			NoResponseMax: cfg.Crawl.NoResponseMax,
			RetryMax:      cfg.Crawl.RetryMax,
		},
	}
}

// finish prints the report and writes the export and metrics files
func finish(a *domain.Audit, cfg *config.Config, collector *metrics.Collector, stdout io.Writer, log *slog.Logger) int {
	code := exitOK
	if err := service.WriteReport(stdout, a); err != nil {
		return exitError
	}

	if cfg.Export.Path != "" {
		if err := exportFile(a, cfg.Export.Path, cfg.Export.Format); err != nil {
			log.Error("failed to export audit", "path", cfg.Export.Path, "error", err)
			code = exitError
		}
	}

	if collector != nil {
		if err := collector.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			log.Error("failed to write metrics", "path", cfg.Metrics.Textfile, "error", err)
			code = exitError
		}
	}
	return code
}

func logEvents(ctx context.Context, events <-chan service.Event, log *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			log.Debug("event", "type", ev.Type, "payload", ev.Payload)
		}
	}
}

func exportFile(a *domain.Audit, path, format string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := service.ExportAudit(a, formatFor(path, format), file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func importFile(path, format string) (*domain.Audit, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return service.ImportAudit(formatFor(path, format), file)
}

// formatFor picks the codec from the file extension, falling back to format
func formatFor(path, format string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	}
	return format
}
