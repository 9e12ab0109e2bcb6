package main

import (
	"testing"

	"github.com/danielpatrickdp/veto/internal/tools"
)

func TestToolCommands_CoverCatalog(t *testing.T) {
	cmds := toolCommands()
	if len(cmds) != 16 {
		t.Fatalf("expected 16 tool commands, got %d", len(cmds))
	}
	seen := map[string]bool{}
	for _, c := range cmds {
		seen[c.Name()] = true
	}
	for _, want := range []string{"assess", "start-segment", "query-patterns", "named-query"} {
		if !seen[want] {
			t.Errorf("missing command %s", want)
		}
	}
}

func TestCollectArgs_OnlyChangedFlags(t *testing.T) {
	var patterns tools.Tool
	for _, tl := range tools.NewCatalog(tools.Services{}, nil).List() {
		if tl.Name == "veto_query_patterns" {
			patterns = tl
		}
	}
	cmd := toolCommand(patterns)
	if err := cmd.Flags().Parse([]string{"--query-type", "state_correlation", "--energy-range", "3-6"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	args, err := collectArgs(cmd.Flags(), patterns.Params)
	if err != nil {
		t.Fatalf("collectArgs: %v", err)
	}
	if len(args) != 2 || args["query_type"] != "state_correlation" {
		t.Fatalf("unexpected args %v", args)
	}
	r := args["energy_range"].(map[string]any)
	if r["min"] != 3 || r["max"] != 6 {
		t.Errorf("unexpected range %v", r)
	}
	if _, ok := args["days_back"]; ok {
		t.Error("unset flag should not be forwarded")
	}
}

func TestParseRange_Invalid(t *testing.T) {
	for _, in := range []string{"5", "a-3", "3-b"} {
		if _, err := parseRange("energy-range", in); err == nil {
			t.Errorf("expected error for %q", in)
		}
	}
}
