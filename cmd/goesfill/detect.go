package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jtn0123/goesfill/internal/schedule"
)

func runDetect(args []string) int {
	fs := flag.NewFlagSet("detect", flag.ExitOnError)

	root := fs.String("root", "", "Local archive directory (required)")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: goesfill detect [options]

Scan the local archive and report the dominant sampling interval of its
timestamped artifacts.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}
	if *root == "" {
		fmt.Fprintln(os.Stderr, "Error: -root is required")
		fs.Usage()
		return ExitInvalidArgs
	}

	observed, err := scanObserved(*root, time.Time{}, time.Time{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitPrecondition
	}

	interval := schedule.DetectInterval(observed)
	if len(observed) < 2 {
		fmt.Printf("%d artifacts; too few to vote, assuming %d minutes\n", len(observed), interval)
	} else {
		fmt.Printf("%d artifacts; dominant interval %d minutes\n", len(observed), interval)
	}
	return ExitSuccess
}
