package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/YenHsinCHEN/MopsDownloader/internal/config"
	"github.com/YenHsinCHEN/MopsDownloader/internal/progress"
	"github.com/YenHsinCHEN/MopsDownloader/internal/storage"
)

// pdfResult is the validation outcome of one saved file.
type pdfResult struct {
	Name  string
	Size  int64
	Pages int
	Err   error
}

// runValidate checks every saved PDF in the save location with pdfcpu.
// Reports that only start with the %PDF marker but are otherwise broken
// are reported as invalid.
func runValidate(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	dir := fs.String("dir", "", "Save location: a directory or a bucket URL")
	configPath := fs.String("config", "", "YAML configuration file")
	envFile := fs.String("env-file", ".env", "Environment file to load")
	settingsPath := fs.String("settings", "", "Settings file (default: user config directory)")

	fs.Usage = func() {
		fmt.Fprintln(stderr, `Usage: mopsdl validate [options]

Parse every saved PDF in the save location and report files that are not
valid PDF documents.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		return ExitInvalidArgs
	}

	cfg, err := loadConfig(*configPath, *envFile, config.Config{SaveDirectory: *dir})
	if err != nil {
		fail("%v", err)
		return ExitInvalidArgs
	}
	logger := newLogger(cfg.LogLevel)

	location := saveDirectory(cfg, *settingsPath, logger)
	if location == "" {
		fail("no save directory; use -dir or 'mopsdl settings -set-dir'")
		return ExitInvalidArgs
	}

	ctx, cancel := interruptContext()
	defer cancel()

	store, err := storage.Open(ctx, location)
	if err != nil {
		fail("%v", err)
		return ExitStorageError
	}
	defer store.Close()

	results, err := validatePDFs(ctx, store)
	if err != nil {
		fail("%v", err)
		return ExitStorageError
	}

	if len(results) == 0 {
		fmt.Fprintf(stderr, "[mopsdl] No PDF files in %s\n", store.URL())
		return ExitSuccess
	}

	rows := make([][]string, 0, len(results))
	invalid := 0
	for _, r := range results {
		status := "ok, " + strconv.Itoa(r.Pages) + " pages"
		if r.Err != nil {
			invalid++
			status = "INVALID: " + r.Err.Error()
		}
		rows = append(rows, []string{r.Name, progress.FormatBytes(r.Size), status})
	}
	progress.Table(stdout, rows)

	fmt.Fprintf(stderr, "[mopsdl] Checked: %d | Valid: %d | Invalid: %d\n", len(results), len(results)-invalid, invalid)
	if invalid > 0 {
		return ExitValidationFailed
	}
	return ExitSuccess
}

// validatePDFs reads and validates every .pdf object in store.
func validatePDFs(ctx context.Context, store *storage.Store) ([]pdfResult, error) {
	objs, err := store.List(ctx, ".pdf")
	if err != nil {
		return nil, err
	}

	api.DisableConfigDir()
	conf := model.NewDefaultConfiguration()

	results := make([]pdfResult, 0, len(objs))
	for _, obj := range objs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := store.ReadAll(ctx, obj.Name)
		if err != nil {
			return nil, err
		}

		r := pdfResult{Name: obj.Name, Size: obj.Size}
		if err := api.Validate(bytes.NewReader(data), conf); err != nil {
			r.Err = err
		} else if r.Pages, err = api.PageCount(bytes.NewReader(data), conf); err != nil {
			r.Err = err
		}
		results = append(results, r)
	}
	return results, nil
}
