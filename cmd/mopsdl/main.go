package main

import (
	"fmt"
	"io"
	"os"
)

// Exit codes
const (
	ExitSuccess          = 0
	ExitGeneralError     = 1
	ExitInvalidArgs      = 2
	ExitStorageError     = 3
	ExitRejected         = 4
	ExitCancelled        = 5
	ExitValidationFailed = 6
)

// Output streams, replaced in tests.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return ExitInvalidArgs
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "download":
		return runDownload(cmdArgs)
	case "validate":
		return runValidate(cmdArgs)
	case "settings":
		return runSettings(cmdArgs)
	case "help", "-h", "--help":
		printUsage()
		return ExitSuccess
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", command)
		printUsage()
		return ExitInvalidArgs
	}
}

func printUsage() {
	fmt.Fprintln(stderr, `Usage: mopsdl <command> [options]

Commands:
  download  Download quarterly financial reports and annual reports of a company
  validate  Check that every saved PDF in the save location can be parsed
  settings  Show or change the persisted save directory

Run 'mopsdl <command> -h' for command-specific help.`)
}
