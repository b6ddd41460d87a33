package rulesengine

import (
	"context"
	"testing"
)

func TestEngineRunFouledOutScenario(t *testing.T) {
	// scenario 1 from spec.md: a boolean-shaped any/all/not tree over two
	// foul-out regimes (40-minute and 48-minute games).
	notSixOrMore := leafCondition("personalFoulCount", "lessThan", NumberValue(6))
	rule, err := NewRule(&RuleConfig{
		Name: "fouledOut",
		Conditions: &Condition{Any: []*Condition{
			{All: []*Condition{
				leafCondition("gameDuration", "equal", NumberValue(40)),
				leafCondition("personalFoulCount", "greaterThanInclusive", NumberValue(5)),
			}},
			{All: []*Condition{
				leafCondition("gameDuration", "equal", NumberValue(48)),
				{Not: notSixOrMore},
			}},
		}},
		Event: EventConfig{Type: "fouledOut"},
	})
	if err != nil {
		t.Fatalf("NewRule: %v", err)
	}

	engine := NewEngine([]*Rule{rule}, nil)

	result, err := engine.Run(context.Background(), map[string]Value{
		"gameDuration":      NumberValue(40),
		"personalFoulCount": NumberValue(6),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Results) != 1 || len(result.FailureResults) != 0 {
		t.Fatalf("expected one success and no failures, got %d/%d", len(result.Results), len(result.FailureResults))
	}
	if len(result.Events) != 1 || result.Events[0].Type != "fouledOut" {
		t.Errorf("expected a single fouledOut success event, got %+v", result.Events)
	}

	engine2 := NewEngine([]*Rule{rule}, nil)
	failResult, err := engine2.Run(context.Background(), map[string]Value{
		"gameDuration":      NumberValue(40),
		"personalFoulCount": NumberValue(4),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(failResult.Results) != 0 || len(failResult.FailureResults) != 1 {
		t.Errorf("expected the rule to fail with fewer than 5 fouls, got %d/%d", len(failResult.Results), len(failResult.FailureResults))
	}
}

func TestEngineResultCountsPartitionRules(t *testing.T) {
	passing, err := NewRule(&RuleConfig{
		Name:       "passing",
		Conditions: &Condition{All: []*Condition{leafCondition("x", "equal", NumberValue(1))}},
		Event:      EventConfig{Type: "pass"},
	})
	if err != nil {
		t.Fatalf("NewRule: %v", err)
	}
	failing, err := NewRule(&RuleConfig{
		Name:       "failing",
		Conditions: &Condition{All: []*Condition{leafCondition("x", "equal", NumberValue(2))}},
		Event:      EventConfig{Type: "fail"},
	})
	if err != nil {
		t.Fatalf("NewRule: %v", err)
	}

	engine := NewEngine([]*Rule{passing, failing}, nil)
	result, err := engine.Run(context.Background(), map[string]Value{"x": NumberValue(1)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Results)+len(result.FailureResults) != len(engine.GetRules()) {
		t.Errorf("expected results to partition every rule exactly once")
	}
	if len(result.Results) != 1 || len(result.FailureResults) != 1 {
		t.Errorf("expected one pass and one fail, got %d/%d", len(result.Results), len(result.FailureResults))
	}
}

func TestEngineStopSkipsRemainingBuckets(t *testing.T) {
	highPriority := 10
	lowPriority := 1

	highRule, _ := NewRule(&RuleConfig{
		Name:       "high",
		Priority:   &highPriority,
		Conditions: &Condition{All: []*Condition{leafCondition("x", "equal", NumberValue(1))}},
		Event:      EventConfig{Type: "high"},
	})
	lowRule, _ := NewRule(&RuleConfig{
		Name:       "low",
		Priority:   &lowPriority,
		Conditions: &Condition{All: []*Condition{leafCondition("x", "equal", NumberValue(1))}},
		Event:      EventConfig{Type: "low"},
	})

	engine := NewEngine([]*Rule{highRule, lowRule}, nil)
	_ = engine.Subscribe("high", func(result *RuleResult) {
		engine.Stop()
	})

	result, err := engine.Run(context.Background(), map[string]Value{"x": NumberValue(1)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Results)+len(result.FailureResults) != 1 {
		t.Errorf("expected only the high-priority bucket to run, got %d results total", len(result.Results)+len(result.FailureResults))
	}
}

func TestEngineUpdateAndRemoveRuleByName(t *testing.T) {
	rule, _ := NewRule(&RuleConfig{
		Name:       "r1",
		Conditions: &Condition{All: []*Condition{leafCondition("x", "equal", NumberValue(1))}},
		Event:      EventConfig{Type: "t"},
	})
	engine := NewEngine([]*Rule{rule}, nil)

	updated, _ := NewRule(&RuleConfig{
		Name:       "r1",
		Conditions: &Condition{All: []*Condition{leafCondition("y", "equal", NumberValue(1))}},
		Event:      EventConfig{Type: "t2"},
	})
	if err := engine.UpdateRule(updated); err != nil {
		t.Fatalf("UpdateRule: %v", err)
	}
	if engine.GetRules()[0].RuleEvent.Type != "t2" {
		t.Errorf("expected the rule to be replaced")
	}

	if !engine.RemoveRuleByName("r1") {
		t.Error("expected RemoveRuleByName to report removal")
	}
	if len(engine.GetRules()) != 0 {
		t.Errorf("expected no rules left, got %d", len(engine.GetRules()))
	}
}
