package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"fleetopt/internal/buildinfo"
	"fleetopt/internal/model"
	"fleetopt/internal/opt"
	"fleetopt/internal/problemio"
)

// Exit codes: 1 internal error, 2 invalid input.
const (
	exitInternal = 1
	exitInput    = 2
)

func main() {
	input := flag.String("i", "", "read problem from this file instead of stdin")
	jobsCSV := flag.String("jobs-csv", "", "append jobs from a CSV file to the problem")
	output := flag.String("o", "", "write solution to this file instead of stdout")
	threads := flag.Int("t", 4, "number of parallel searches")
	explore := flag.Int("x", 5, "exploration level (0..5)")
	limit := flag.Duration("l", 0, "search time limit (0 means unlimited within iteration cap)")
	seed := flag.Int64("s", 0, "random seed (0 picks one)")
	version := flag.Bool("v", false, "print version and exit")
	// Accepted for CLI compatibility; geometry needs a routing backend.
	_ = flag.Bool("g", false, "add route geometry to the output (requires a routing backend; ignored)")
	flag.Parse()

	if *version {
		info := buildinfo.Info()
		fmt.Printf("fleetopt %s %s\n", info["version"], info["commit"])
		return
	}

	if err := run(*input, *jobsCSV, *output, opt.SolveOptions{
		Threads:          *threads,
		ExplorationLevel: *explore,
		TimeLimit:        *limit,
		Seed:             *seed,
	}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var ie *opt.InputError
		if errors.As(err, &ie) {
			os.Exit(exitInput)
		}
		os.Exit(exitInternal)
	}
}

func run(input, jobsCSV, output string, opts opt.SolveOptions) error {
	var r io.Reader = os.Stdin
	if input != "" {
		f, err := os.Open(input)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	loadStart := time.Now()
	var doc model.ProblemDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return &opt.InputError{Msg: "invalid JSON: " + err.Error()}
	}
	if jobsCSV != "" {
		f, err := os.Open(jobsCSV)
		if err != nil {
			return err
		}
		err = problemio.AppendJobsCSV(&doc, f)
		_ = f.Close()
		if err != nil {
			return &opt.InputError{Msg: err.Error()}
		}
	}
	in, err := opt.BuildInput(&doc)
	if err != nil {
		return err
	}
	loadingMs := time.Since(loadStart).Milliseconds()

	sol, _, err := opt.Solve(in, opts)
	if err != nil {
		return err
	}
	sol.Summary.ComputingTimes.LoadingMs = loadingMs

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		w = f
	}
	enc := json.NewEncoder(w)
	return enc.Encode(sol)
}
