package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/veto/internal/logging"
	"github.com/danielpatrickdp/veto/internal/store"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to veto.db")
	last := flag.Int("last", 20, "show N most recent rows")
	refusals := flag.Bool("refusals", false, "list refusal events instead of plan decisions")
	overrides := flag.Bool("overrides", false, "with --refusals, only overridden refusals")
	evidence := flag.Bool("evidence", false, "show the recorded guardrail inputs under each decision")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/veto.db [--last N] [--refusals [--overrides]] [--evidence] [--json]")
		os.Exit(2)
	}

	st, err := store.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	ctx := context.Background()
	if *refusals {
		err = runRefusalMode(ctx, st, *last, *overrides, *jsonOut)
	} else {
		err = runDecisionMode(ctx, st, *last, *evidence, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region decision-mode

type decisionRow struct {
	CreatedAt  string                  `json:"created_at"`
	Date       string                  `json:"date"`
	Decision   string                  `json:"decision"`
	Rule       string                  `json:"rule,omitempty"`
	Confidence float64                 `json:"confidence"`
	Reason     string                  `json:"reason,omitempty"`
	Record     *logging.DecisionRecord `json:"record,omitempty"`
}

func runDecisionMode(ctx context.Context, st *store.Store, last int, evidence, jsonOut bool) error {
	entries, err := logging.RecentDecisions(ctx, st.DB(), last)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "no decisions logged")
		return nil
	}

	// store returns newest first, print chronologically
	rows := make([]decisionRow, len(entries))
	for i, e := range entries {
		row := decisionRow{
			CreatedAt:  e.CreatedAt.Format("2006-01-02T15:04:05Z"),
			Date:       e.Date,
			Decision:   e.Decision,
			Rule:       e.Rule,
			Confidence: e.Confidence,
			Reason:     e.Reason,
		}
		if e.EvidenceJSON != "" {
			var rec logging.DecisionRecord
			if err := json.Unmarshal([]byte(e.EvidenceJSON), &rec); err == nil {
				row.Record = &rec
			}
		}
		rows[len(entries)-1-i] = row
	}

	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("%-20s  %-10s  %-9s  %5s  %-26s  %s\n", "Time", "Date", "Decision", "Conf", "Rule", "State")
	fmt.Printf("%-20s+-%-10s+-%-9s+-%5s+-%-26s+-%s\n",
		"--------------------", "----------", "---------", "-----", "--------------------------", "----------")
	for _, r := range rows {
		rule, stateCol := "—", "—"
		if r.Rule != "" {
			rule = r.Rule
		}
		if r.Record != nil && r.Decision != "no_state" {
			stateCol = fmt.Sprintf("E%d F%d %s", r.Record.Energy, r.Record.Focus, r.Record.Phase)
		}
		fmt.Printf("%-20s  %-10s  %-9s  %4.0f%%  %-26s  %s\n",
			r.CreatedAt, r.Date, r.Decision, r.Confidence*100, rule, stateCol)
		if evidence && r.Record != nil {
			printRecord(r.Record)
		}
	}
	return nil
}

func printRecord(rec *logging.DecisionRecord) {
	fmt.Printf("    intended=%s days=%d similar=%d outcome=%.2f threshold=%.2f\n",
		orDash(rec.IntendedType), rec.DaysOfData, rec.SimilarStateCount, rec.OutcomeCorrelation, rec.Threshold)
	if rec.SimilarAttempts > 0 {
		fmt.Printf("    similar-state attempts=%d poor=%.0f%%\n", rec.SimilarAttempts, rec.SimilarPoorRate*100)
	}
	if rec.Overrides > 0 {
		fmt.Printf("    overrides=%d poor=%.0f%%\n", rec.Overrides, rec.OverridePoor*100)
	}
	if rec.RefusalID != "" {
		fmt.Printf("    refusal=%s\n", rec.RefusalID)
	}
}

// #endregion decision-mode

// #region refusal-mode

func runRefusalMode(ctx context.Context, st *store.Store, last int, overrodeOnly, jsonOut bool) error {
	refusals, err := st.RefusalsSince(ctx, "", overrodeOnly, last)
	if err != nil {
		return err
	}
	if len(refusals) == 0 {
		fmt.Fprintln(os.Stderr, "no refusals found")
		return nil
	}
	if jsonOut {
		return printJSON(refusals)
	}

	fmt.Printf("%-8s  %-10s  %5s  %-9s  %-8s  %s\n", "ID", "Date", "Conf", "Override", "Outcome", "Reason")
	fmt.Printf("%-8s+-%-10s+-%5s+-%-9s+-%-8s+-%s\n",
		"--------", "----------", "-----", "---------", "--------", "--------------------")
	for _, r := range refusals {
		outcome := "—"
		if r.OutcomeQuality != nil {
			outcome = string(*r.OutcomeQuality)
		}
		fmt.Printf("%-8s  %-10s  %4.0f%%  %-9v  %-8s  %s\n",
			shortID(r.ID), r.Date, r.ConfidenceAtRefusal*100, r.UserOverrode, outcome, r.Reason)
	}
	return nil
}

// #endregion refusal-mode

// #region output

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

// #endregion output
