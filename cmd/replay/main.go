package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/danielpatrickdp/veto/internal/app"
	"github.com/danielpatrickdp/veto/internal/config"
	"github.com/danielpatrickdp/veto/internal/logging"
	"github.com/danielpatrickdp/veto/internal/replay"
	"github.com/danielpatrickdp/veto/internal/store"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to veto.db (decision-log mode)")
	fixturePath := flag.String("fixture", "", "path to a fixture JSON file or directory (fixture mode)")
	configPath := flag.String("config", "", "config whose thresholds are replayed in decision-log mode")
	last := flag.Int("last", 200, "decision-log rows to re-evaluate")
	verbose := flag.Bool("v", false, "log tool calls to stderr")
	flag.Parse()

	if (*dbPath == "" && *fixturePath == "") || (*dbPath != "" && *fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json|dir [-v]")
		fmt.Fprintln(os.Stderr, "       replay --db path/to/veto.db [--config veto.yaml] [--last N]")
		os.Exit(2)
	}

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(*fixturePath, *verbose)
	} else {
		exitCode = runDBMode(*dbPath, *configPath, *last)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region fixture-mode

func runFixtureMode(path string, verbose bool) int {
	fixtures, names, err := loadFixtures(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}

	var opts logging.Options
	if verbose {
		opts = logging.Options{Level: "debug", Development: true}
	} else {
		opts = logging.Options{Level: "error"}
	}
	logger, err := logging.New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return 2
	}
	defer logger.Sync()

	scratch, err := os.MkdirTemp("", "veto-replay-")
	if err != nil {
		fmt.Fprintf(os.Stderr, "scratch dir: %v\n", err)
		return 2
	}
	defer os.RemoveAll(scratch)

	failed := 0
	for i, name := range names {
		dbPath := filepath.Join(scratch, fmt.Sprintf("%d.db", i))
		sum, err := replay.Run(context.Background(), fixtures[name], dbPath, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
			return 2
		}
		printSummary(name, sum)
		failed += sum.Failed
	}
	if failed > 0 {
		return 1
	}
	return 0
}

func loadFixtures(path string) (map[string]*replay.Fixture, []string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, err
	}
	if info.IsDir() {
		return replay.LoadDir(path)
	}
	f, err := replay.LoadFixture(path)
	if err != nil {
		return nil, nil, err
	}
	name := filepath.Base(path)
	return map[string]*replay.Fixture{name: f}, []string{name}, nil
}

func printSummary(name string, sum *replay.Summary) {
	fmt.Printf("%s: %s\n", name, sum.Description)
	fmt.Printf("%-22s| %-24s| %-17s| %s\n", "Step", "Tool", "Clock", "Result")
	fmt.Printf("%-22s+%-25s+%-18s+%s\n",
		"----------------------", "-------------------------", "------------------", "------")
	for _, r := range sum.Results {
		result := "OK"
		if !r.Passed {
			result = "FAIL"
		}
		fmt.Printf("%-22s| %-24s| %-17s| %s\n", r.StepID, r.Tool, r.At.Format("2006-01-02 15:04"), result)
		for _, p := range r.Problems {
			fmt.Printf("    %s\n", strings.ReplaceAll(p, "\n", "\n    "))
		}
	}
	fmt.Printf("\nSummary: %d total, %d pass, %d fail\n\n", sum.Total, sum.Passed, sum.Failed)
}

// #endregion fixture-mode

// #region db-mode

func runDBMode(dbPath, configPath string, last int) int {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 2
	}

	st, err := store.NewStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		return 2
	}
	defer st.Close()

	results, err := replay.Reevaluate(context.Background(), st.DB(), app.ConfidenceConfig(cfg), app.GuardrailConfig(cfg), last)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reevaluate: %v\n", err)
		return 2
	}
	if len(results) == 0 {
		fmt.Fprintln(os.Stderr, "no evaluated decisions found in decision_log")
		return 2
	}

	fmt.Printf("%-20s| %-24s| %-24s| %s\n", "Time", "Recorded", "Replayed", "Match")
	fmt.Printf("%-20s+%-25s+%-25s+%s\n",
		"--------------------", "-------------------------", "-------------------------", "------")
	diverge := 0
	for _, r := range results {
		match := "OK"
		if r.Changed {
			match = "DIFF"
			diverge++
		}
		fmt.Printf("%-20s| %-24s| %-24s| %s\n",
			r.CreatedAt.Format("2006-01-02T15:04:05Z"), label(r.Recorded, r.RecordedRule), label(r.Replayed, r.ReplayedRule), match)
	}
	fmt.Printf("\nSummary: %d total, %d match, %d diverge\n", len(results), len(results)-diverge, diverge)
	if diverge > 0 {
		return 1
	}
	return 0
}

func label(decision, rule string) string {
	if rule == "" {
		return decision
	}
	return decision + ":" + rule
}

// #endregion db-mode
