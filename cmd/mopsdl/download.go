package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/YenHsinCHEN/MopsDownloader/internal/config"
	"github.com/YenHsinCHEN/MopsDownloader/internal/downloader"
	mopshttp "github.com/YenHsinCHEN/MopsDownloader/internal/http"
	"github.com/YenHsinCHEN/MopsDownloader/internal/metrics"
	"github.com/YenHsinCHEN/MopsDownloader/internal/mops"
	"github.com/YenHsinCHEN/MopsDownloader/internal/progress"
	"github.com/YenHsinCHEN/MopsDownloader/internal/session"
	"github.com/YenHsinCHEN/MopsDownloader/internal/storage"
	"github.com/YenHsinCHEN/MopsDownloader/internal/task"
)

// seasonsFlag collects repeated -financial YEAR[:S,S] values.
type seasonsFlag map[string][]int

func (f seasonsFlag) String() string {
	parts := make([]string, 0, len(f))
	for year, seasons := range f {
		parts = append(parts, fmt.Sprintf("%s:%v", year, seasons))
	}
	return strings.Join(parts, " ")
}

func (f seasonsFlag) Set(v string) error {
	year, seasons, err := task.ParseSeasons(v)
	if err != nil {
		return err
	}
	f[year] = append(f[year], seasons...)
	return nil
}

// runDownload resolves and saves the selected reports of one company.
// Reports are fetched one at a time with a pause between them.
func runDownload(args []string) int {
	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	fs.SetOutput(stderr)

	financial := seasonsFlag{}
	companyID := fs.String("co", "", "Company stock code, e.g. 2330 (required)")
	fs.Var(financial, "financial", "Financial report year and seasons, e.g. 2024:1,3 (repeatable; a bare year selects all seasons)")
	annual := fs.String("annual", "", "Comma-separated annual report years, e.g. 2023,2024")
	allFinancial := fs.Bool("all-financial", false, "Select every season of the last 10 years")
	allAnnual := fs.Bool("all-annual", false, "Select the annual reports of the last 10 years")
	dir := fs.String("dir", "", "Save location: a directory or a bucket URL (s3://, gs://)")
	configPath := fs.String("config", "", "YAML configuration file")
	envFile := fs.String("env-file", ".env", "Environment file to load")
	settingsPath := fs.String("settings", "", "Settings file (default: user config directory)")
	maxTasks := fs.Int("max-tasks", 0, "Maximum files per run (default from config)")
	origin := fs.String("origin", "", "Portal origin URL (default from config)")
	metricsFile := fs.String("metrics-file", "", "Write Prometheus metrics to this file after the run")
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn, error")
	quiet := fs.Bool("quiet", false, "Only print the summary")
	dryRun := fs.Bool("dry-run", false, "Print the download plan as JSON and exit")

	fs.Usage = func() {
		fmt.Fprintln(stderr, `Usage: mopsdl download [options]

Download quarterly financial reports (AI1/AI2) and annual reports (F04) of a
company from the disclosure portal. Files are saved as
<co>_<year>_Q<season>_財報.pdf and <co>_<year>_年報.pdf, replacing existing ones.

Press Ctrl+C once to stop after the current file, twice to abort immediately.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		return ExitInvalidArgs
	}

	var annualYears []string
	if *annual != "" {
		years, err := task.ParseYears(*annual)
		if err != nil {
			fail("%v", err)
			return ExitInvalidArgs
		}
		annualYears = years
	}

	now := time.Now()
	if *allFinancial {
		for _, y := range task.FinancialYears(now) {
			financial[y] = []int{1, 2, 3, 4}
		}
	}
	if *allAnnual {
		annualYears = append(annualYears, task.AnnualYears(now)...)
	}

	cfg, err := loadConfig(*configPath, *envFile, config.Config{
		Origin:        *origin,
		SaveDirectory: *dir,
		MaxTasks:      *maxTasks,
		LogLevel:      *logLevel,
		MetricsFile:   *metricsFile,
	})
	if err != nil {
		fail("%v", err)
		return ExitInvalidArgs
	}

	logger := newLogger(cfg.LogLevel)
	reporter := progress.NewReporter(progress.Options{Output: stderr, Quiet: *quiet})

	httpOpts := mopshttp.DefaultOptions()
	httpOpts.Timeout = cfg.Timeout
	httpOpts.RequestsPerSecond = cfg.RequestsPerSecond
	if cfg.UserAgent != "" {
		httpOpts.UserAgent = cfg.UserAgent
	}
	httpOpts.Logger = logger

	resolver, err := mops.NewResolver(mopshttp.NewClient(httpOpts), mops.Options{
		Origin:      cfg.Origin,
		ListingPath: cfg.ListingPath,
		Logger:      logger,
	})
	if err != nil {
		fail("%v", err)
		return ExitInvalidArgs
	}

	recorder := metrics.New()
	execOpts := downloader.DefaultOptions()
	execOpts.WarmUp = cfg.WarmUp
	execOpts.Metrics = recorder
	execOpts.Logger = logger
	dispatcher := downloader.NewDispatcher(downloader.NewExecutor(resolver, execOpts))

	sess := &session.Session{
		MaxTasks:  cfg.MaxTasks,
		Submitter: dispatcher,
		Out:       reporter,
		Open: func(ctx context.Context, dir string) (downloader.Saver, error) {
			s, err := storage.Open(ctx, dir)
			if err != nil {
				return nil, err
			}
			return s.WithLogger(logger), nil
		},
	}

	req := session.Request{
		SaveDirectory: saveDirectory(cfg, *settingsPath, logger),
		Selection: task.Selection{
			CompanyID:        *companyID,
			IncludeFinancial: len(financial) > 0,
			IncludeAnnual:    len(annualYears) > 0,
			Financial:        financial,
			Annual:           annualYears,
		},
	}

	if *dryRun {
		plan, err := sess.Plan(req)
		if err != nil {
			return ExitRejected
		}
		return printPlan(plan)
	}

	// The first interrupt stops the run after the current file, the second
	// aborts in-flight requests.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop := downloader.NewToken()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for n := 0; ; n++ {
			select {
			case <-sigCh:
			case <-ctx.Done():
				return
			}
			if n == 0 {
				msg := "Received interrupt, stopping after the current file (Ctrl+C again to abort)"
				if p := reporter.Progress(); p != "" {
					msg = "Received interrupt at " + p + ", stopping after the current file (Ctrl+C again to abort)"
				}
				reporter.Println(msg)
				stop.Cancel()
				continue
			}
			reporter.Println("Received second interrupt, aborting")
			cancel()
			return
		}
	}()

	run, plan, err := sess.Start(ctx, req)
	if err != nil {
		if errors.Is(err, session.ErrRejected) {
			return ExitRejected
		}
		fail("%v", err)
		return ExitStorageError
	}

	cancelOnStop(stop, run)

	reporter.Start(strings.TrimSpace(*companyID), len(plan.Tasks), plan.SaveDirectory)
	reporter.Consume(run.Events())
	snap := run.Wait().Snapshot()
	reporter.Summary(snap)

	if cfg.MetricsFile != "" {
		if err := recorder.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Warn().Err(err).Str("path", cfg.MetricsFile).Msg("cannot write metrics")
		}
	}

	return exitCode(snap.Status)
}

// exitCode maps the final status of a run to the process exit code. A run
// that completed exits successfully even if some files failed.
func exitCode(s downloader.Status) int {
	switch {
	case !s.Terminal():
		return ExitGeneralError
	case s == downloader.StatusCancelled:
		return ExitCancelled
	default:
		return ExitSuccess
	}
}

// cancelOnStop cancels run once stop is cancelled. An interrupt that
// arrived before the run was submitted cancels it immediately.
func cancelOnStop(stop *downloader.Token, run *downloader.Run) {
	if stop.Cancelled() {
		run.Cancel()
		return
	}
	go func() {
		select {
		case <-stop.Done():
			run.Cancel()
		case <-run.Done():
		}
	}()
}

// planOutput is the JSON form of a validated request.
type planOutput struct {
	SaveDirectory string      `json:"save_directory"`
	Pace          string      `json:"pace"`
	MinDelayMS    int64       `json:"min_delay_ms"`
	MaxDelayMS    int64       `json:"max_delay_ms"`
	Tasks         []task.Task `json:"tasks"`
}

func printPlan(plan session.Plan) int {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	err := enc.Encode(planOutput{
		SaveDirectory: plan.SaveDirectory,
		Pace:          plan.Window.Label,
		MinDelayMS:    plan.Window.Min.Milliseconds(),
		MaxDelayMS:    plan.Window.Max.Milliseconds(),
		Tasks:         plan.Tasks,
	})
	if err != nil {
		fail("%v", err)
		return ExitGeneralError
	}
	return ExitSuccess
}
