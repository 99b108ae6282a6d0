package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
)

// Exit codes
const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitInvalidArgs  = 2
	ExitPrecondition = 3
	ExitStorageError = 4
	ExitIncomplete   = 5
	ExitCancelled    = 6
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// A .env next to the binary is a convenience for local runs; absence
	// is not an error.
	_ = godotenv.Load()

	if len(args) == 0 {
		printUsage()
		return ExitInvalidArgs
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "reconcile":
		return runReconcile(cmdArgs)
	case "plan":
		return runPlan(cmdArgs)
	case "detect":
		return runDetect(cmdArgs)
	case "help", "-h", "--help":
		printUsage()
		return ExitSuccess
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		return ExitInvalidArgs
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: goesfill <command> [options]

Commands:
  reconcile  Scan a local GOES archive, then fetch every missing scan
  plan       Show per-day presence ladders and missing slots (no network)
  detect     Report the dominant sampling interval of a local archive

Run 'goesfill <command> -h' for command-specific help.`)
}
