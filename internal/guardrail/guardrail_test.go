package guardrail

import (
	"strings"
	"testing"

	"github.com/danielpatrickdp/veto/internal/dayclock"
	"github.com/danielpatrickdp/veto/internal/store"
)

func activeInput(energy, focus int, phase dayclock.Phase) Input {
	return Input{Energy: energy, Focus: focus, Phase: phase, Active: true}
}

func TestInactiveNeverRefuses(t *testing.T) {
	g := New(DefaultConfig())
	in := activeInput(2, 2, dayclock.AfternoonDip)
	in.Active = false
	in.Evidence.SimilarStateOutcomes = &SimilarOutcomes{Attempts: 10, PoorOutcomeRate: 1}

	d := g.Evaluate(in)
	if d.Active || d.Refusing {
		t.Fatalf("expected inactive pass-through, got %+v", d)
	}
	if d.Recommendation != store.Deep {
		t.Fatalf("expected deep, got %s", d.Recommendation)
	}
}

func TestShallowIntentSkipsRules(t *testing.T) {
	g := New(DefaultConfig())
	in := activeInput(2, 2, dayclock.Midday)
	in.IntendedType = store.Shallow

	d := g.Evaluate(in)
	if d.Refusing {
		t.Fatal("shallow intent must not be refused")
	}
	if !d.Active {
		t.Fatal("guardrail should still report active")
	}
}

func TestSimilarStateEvidenceWinsPriority(t *testing.T) {
	g := New(DefaultConfig())
	in := activeInput(3, 3, dayclock.AfternoonDip)
	in.IntendedType = store.Deep
	in.Evidence.SimilarStateOutcomes = &SimilarOutcomes{Attempts: 4, PoorOutcomeRate: 0.75}

	d := g.Evaluate(in)
	if !d.Refusing || d.Rule != RuleSimilarStateEvidence {
		t.Fatalf("expected similar-state refusal, got %+v", d)
	}
	if !strings.Contains(d.Reason, "75%") || !strings.Contains(d.Reason, "4 attempts") {
		t.Fatalf("reason should cite rate and attempts: %q", d.Reason)
	}
	if len(d.Triggers) != 3 {
		t.Fatalf("expected all three rules to trigger, got %d", len(d.Triggers))
	}
	if d.Recommendation != store.Shallow {
		t.Fatalf("expected shallow recommendation, got %s", d.Recommendation)
	}
}

func TestSimilarStateNeedsMinimumAttempts(t *testing.T) {
	g := New(DefaultConfig())
	in := activeInput(7, 7, dayclock.MorningPeak)
	in.Evidence.SimilarStateOutcomes = &SimilarOutcomes{Attempts: 2, PoorOutcomeRate: 1}

	if d := g.Evaluate(in); d.Refusing {
		t.Fatalf("two attempts must not refuse, got %+v", d)
	}

	in.Evidence.SimilarStateOutcomes = &SimilarOutcomes{Attempts: 3, PoorOutcomeRate: 0.49}
	if d := g.Evaluate(in); d.Refusing {
		t.Fatalf("rate below threshold must not refuse, got %+v", d)
	}

	in.Evidence.SimilarStateOutcomes = &SimilarOutcomes{Attempts: 3, PoorOutcomeRate: 0.5}
	if d := g.Evaluate(in); !d.Refusing {
		t.Fatal("rate at threshold must refuse")
	}
}

func TestAfternoonDipRule(t *testing.T) {
	g := New(DefaultConfig())

	d := g.Evaluate(activeInput(5, 9, dayclock.AfternoonDip))
	if !d.Refusing || d.Rule != RuleAfternoonDip {
		t.Fatalf("expected dip refusal, got %+v", d)
	}
	if !strings.Contains(d.Reason, "5/10") {
		t.Fatalf("reason should cite energy: %q", d.Reason)
	}

	if d := g.Evaluate(activeInput(6, 9, dayclock.AfternoonDip)); d.Refusing {
		t.Fatal("energy 6 during dip must pass")
	}
	if d := g.Evaluate(activeInput(5, 9, dayclock.Evening)); d.Refusing {
		t.Fatal("energy 5 outside dip must pass")
	}
}

func TestLowEnergyFocusRule(t *testing.T) {
	g := New(DefaultConfig())

	d := g.Evaluate(activeInput(4, 4, dayclock.MorningPeak))
	if !d.Refusing || d.Rule != RuleLowEnergyFocus {
		t.Fatalf("expected low energy/focus refusal, got %+v", d)
	}
	if !strings.Contains(d.Reason, "(4/10)") {
		t.Fatalf("reason should cite values: %q", d.Reason)
	}

	if d := g.Evaluate(activeInput(4, 5, dayclock.MorningPeak)); d.Refusing {
		t.Fatal("focus 5 must pass")
	}
}

func TestUnspecifiedIntentIsEvaluated(t *testing.T) {
	g := New(DefaultConfig())
	d := g.Evaluate(activeInput(2, 2, dayclock.Night))
	if !d.Refusing {
		t.Fatal("unspecified intent should be treated as deep")
	}
}
