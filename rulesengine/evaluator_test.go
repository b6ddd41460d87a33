package rulesengine

import (
	"math"
	"testing"
)

func newTestEvaluator(t *testing.T, facts map[string]Value) (*Evaluator, *Almanac) {
	t.Helper()
	almanac := NewAlmanac(nil, AlmanacOptions{})
	for id, v := range facts {
		if err := almanac.AddRuntimeFact(id, v); err != nil {
			t.Fatalf("AddRuntimeFact(%s): %v", id, err)
		}
	}
	registry := NewRegistry()
	for _, op := range DefaultOperators() {
		registry.AddOperator(op)
	}
	for _, dec := range DefaultDecorators() {
		registry.AddDecorator(dec)
	}
	return NewEvaluator(almanac, registry, NewConditionMap(), NewFactMap(), false), almanac
}

func TestEvaluateAllWeightedMean(t *testing.T) {
	// scenario 2 from spec's worked examples: weight=3 on a passing leaf,
	// weight=1 on a failing leaf, expect 0.75.
	evaluator, _ := newTestEvaluator(t, map[string]Value{
		"performance": NumberValue(100),
		"attendance":  NumberValue(0),
	})

	heavy, light := 3, 1
	cond := &Condition{All: []*Condition{
		{Fact: "performance", Operator: "equal", Value: LiteralValue(NumberValue(100)), Weight: &heavy},
		{Fact: "attendance", Operator: "equal", Value: LiteralValue(NumberValue(100)), Weight: &light},
	}}

	score, err := evaluator.Evaluate(cond)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if math.Abs(score-0.75) > 1e-9 {
		t.Errorf("expected score 0.75, got %v", score)
	}
	if cond.Result {
		t.Error("expected result false for a score below 1")
	}
}

func TestEvaluateAllEmptyIsVacuouslyTrue(t *testing.T) {
	evaluator, _ := newTestEvaluator(t, nil)
	cond := &Condition{All: []*Condition{}}
	score, err := evaluator.Evaluate(cond)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if score != 1 || !cond.Result {
		t.Errorf("expected an empty all to score 1/true, got %v/%v", score, cond.Result)
	}
}

func TestEvaluateAnyWeightedMax(t *testing.T) {
	// scenario 3: weight=2 expert-match wins over weight=1 novice-match.
	evaluator, _ := newTestEvaluator(t, map[string]Value{
		"skill1": StringValue("expert"),
		"skill2": StringValue("novice"),
	})

	heavy, light := 2, 1
	cond := &Condition{Any: []*Condition{
		{Fact: "skill1", Operator: "equal", Value: LiteralValue(StringValue("expert")), Weight: &heavy},
		{Fact: "skill2", Operator: "equal", Value: LiteralValue(StringValue("expert")), Weight: &light},
	}}

	score, err := evaluator.Evaluate(cond)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if score != 1 || !cond.Result {
		t.Errorf("expected score 1/true, got %v/%v", score, cond.Result)
	}
}

func TestEvaluateAnyEmptyIsVacuouslyFalse(t *testing.T) {
	evaluator, _ := newTestEvaluator(t, nil)
	cond := &Condition{Any: []*Condition{}}
	score, err := evaluator.Evaluate(cond)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if score != 0 || cond.Result {
		t.Errorf("expected an empty any to score 0/false, got %v/%v", score, cond.Result)
	}
}

func TestEvaluateNotIsBinaryInversion(t *testing.T) {
	evaluator, _ := newTestEvaluator(t, map[string]Value{"count": NumberValue(3)})
	cond := &Condition{Not: leafCondition("count", "lessThanInclusive", NumberValue(6))}

	score, err := evaluator.Evaluate(cond)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if score != 0 || cond.Result {
		t.Errorf("expected not(passing child) to score 0/false, got %v/%v", score, cond.Result)
	}
}

func TestEvaluateNeverShortCircuitsAllChildren(t *testing.T) {
	calls := 0
	registry := NewRegistry()
	probe, _ := NewOperator("probe", func(lhs, rhs Value) float64 {
		calls++
		if lhs.Equal(rhs) {
			return 1
		}
		return 0
	}, nil)
	registry.AddOperator(*probe)

	almanac := NewAlmanac(nil, AlmanacOptions{})
	_ = almanac.AddRuntimeFact("a", NumberValue(1))
	_ = almanac.AddRuntimeFact("b", NumberValue(2))
	_ = almanac.AddRuntimeFact("c", NumberValue(3))

	evaluator := NewEvaluator(almanac, registry, NewConditionMap(), NewFactMap(), false)
	cond := &Condition{All: []*Condition{
		{Fact: "a", Operator: "probe", Value: LiteralValue(NumberValue(99))}, // fails first
		{Fact: "b", Operator: "probe", Value: LiteralValue(NumberValue(2))},
		{Fact: "c", Operator: "probe", Value: LiteralValue(NumberValue(3))},
	}}

	if _, err := evaluator.Evaluate(cond); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected all 3 children to be evaluated despite an early failure, got %d calls", calls)
	}
}

func TestEvaluateChildrenRespectPriorityOrderButNotScore(t *testing.T) {
	// spec's child-ordering rule: children evaluate highest-priority first
	// (observable via side effects — here, the order probe is called in),
	// but the weighted aggregate is unaffected by that ordering.
	var order []string
	registry := NewRegistry()
	probe, _ := NewOperator("probe", func(lhs, rhs Value) float64 {
		order = append(order, lhs.Str)
		if lhs.Equal(rhs) {
			return 1
		}
		return 0
	}, nil)
	registry.AddOperator(*probe)

	almanac := NewAlmanac(nil, AlmanacOptions{})
	_ = almanac.AddRuntimeFact("low", StringValue("low"))
	_ = almanac.AddRuntimeFact("high", StringValue("high"))
	_ = almanac.AddRuntimeFact("mid", StringValue("mid"))

	evaluator := NewEvaluator(almanac, registry, NewConditionMap(), NewFactMap(), false)

	lowPri, midPri, highPri := 1, 5, 10
	cond := &Condition{All: []*Condition{
		{Fact: "low", Operator: "probe", Value: LiteralValue(StringValue("low")), Priority: &lowPri},
		{Fact: "high", Operator: "probe", Value: LiteralValue(StringValue("high")), Priority: &highPri},
		{Fact: "mid", Operator: "probe", Value: LiteralValue(StringValue("mid")), Priority: &midPri},
	}}

	score, err := evaluator.Evaluate(cond)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if score != 1 {
		t.Errorf("expected all children to pass regardless of evaluation order, got %v", score)
	}
	want := []string{"high", "mid", "low"}
	if len(order) != len(want) {
		t.Fatalf("expected %d evaluations, got %d (%v)", len(want), len(order), order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("expected evaluation order %v, got %v", want, order)
			break
		}
	}
}

func TestUnknownConditionReferenceErrors(t *testing.T) {
	evaluator, _ := newTestEvaluator(t, nil)
	cond := &Condition{ConditionRef: "missing"}
	if _, err := evaluator.Evaluate(cond); err == nil {
		t.Error("expected an UnknownCondition error")
	}
}

func TestUnknownConditionReferenceAllowed(t *testing.T) {
	almanac := NewAlmanac(nil, AlmanacOptions{})
	registry := NewRegistry()
	for _, op := range DefaultOperators() {
		registry.AddOperator(op)
	}
	evaluator := NewEvaluator(almanac, registry, NewConditionMap(), NewFactMap(), true)
	cond := &Condition{ConditionRef: "missing"}
	score, err := evaluator.Evaluate(cond)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if score != 0 || cond.Result {
		t.Errorf("expected an allowed-undefined reference to score 0/false, got %v/%v", score, cond.Result)
	}
}
