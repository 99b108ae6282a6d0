package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/jtn0123/goesfill/internal/analyze"
)

func runPlan(args []string) int {
	fs := flag.NewFlagSet("plan", flag.ExitOnError)

	root := fs.String("root", "", "Local archive directory (required)")
	interval := fs.Int("interval", 0, "Sampling interval in minutes (0 = detect)")
	start := fs.String("start", "", "Range start, e.g. 20231002_100000")
	end := fs.String("end", "", "Range end")
	verbose := fs.Bool("v", false, "Print every slot, not just the missing ones")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: goesfill plan [options]

Scan the local archive and show, per day, which scan slots are present
and which would be fetched by 'goesfill reconcile'. Touches no network.

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

	startAt, err := parseWhen(*start)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: -start: %v\n", err)
		return ExitInvalidArgs
	}
	endAt, err := parseWhen(*end)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: -end: %v\n", err)
		return ExitInvalidArgs
	}

	observed, err := scanObserved(*root, startAt, endAt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitPrecondition
	}

	res := analyze.AnalyzeRange(observed, *interval, startAt, endAt)

	fmt.Printf("Interval: %d minutes\n", res.IntervalMinutes)
	for _, day := range res.Days {
		present := 0
		for _, slot := range day.Slots {
			if slot.Present {
				present++
			}
		}
		fmt.Printf("%s: %d/%d slots present\n", day.Date, present, len(day.Slots))
		if *verbose {
			for _, slot := range day.Slots {
				mark := " "
				if slot.Present {
					mark = "x"
				}
				fmt.Printf("  [%s] %s\n", mark, slot.Label)
			}
		}
	}

	if len(res.Missing) == 0 {
		fmt.Println("Nothing to fetch.")
		return ExitSuccess
	}
	fmt.Printf("Would fetch %d scans:\n", len(res.Missing))
	for _, ts := range res.Missing {
		fmt.Printf("  %s\n", ts.Format("2006-01-02 15:04"))
	}
	return ExitSuccess
}
