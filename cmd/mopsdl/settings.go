package main

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/YenHsinCHEN/MopsDownloader/internal/storage"
)

// runSettings shows or changes the persisted save directory.
func runSettings(args []string) int {
	fs := flag.NewFlagSet("settings", flag.ContinueOnError)
	fs.SetOutput(stderr)

	setDir := fs.String("set-dir", "", "Persist this save directory or bucket URL")
	settingsPath := fs.String("settings", "", "Settings file (default: user config directory)")

	fs.Usage = func() {
		fmt.Fprintln(stderr, `Usage: mopsdl settings [options]

Show the persisted save directory, or change it with -set-dir. The value is
used by download and validate when -dir is not given.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		return ExitInvalidArgs
	}

	store, err := openSettings(*settingsPath)
	if err != nil {
		fail("%v", err)
		return ExitGeneralError
	}

	if *setDir != "" {
		dir := strings.TrimSpace(*setDir)
		if _, err := storage.BucketURL(dir); err != nil {
			fail("%v", err)
			return ExitInvalidArgs
		}
		if err := store.SetSaveDirectory(dir); err != nil {
			fail("%v", err)
			return ExitGeneralError
		}
	}

	dir, err := store.SaveDirectory()
	if err != nil {
		fail("%v", err)
		return ExitGeneralError
	}
	if dir == "" {
		dir = "(not set)"
	}
	fmt.Fprintf(stdout, "save_directory: %s\n", dir)
	fmt.Fprintf(stderr, "[mopsdl] Settings file: %s\n", store.Path())
	return ExitSuccess
}
