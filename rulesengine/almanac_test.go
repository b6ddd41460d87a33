package rulesengine

import (
	"sync"
	"testing"
)

func TestAlmanacConstantFactValue(t *testing.T) {
	almanac := NewAlmanac(nil, AlmanacOptions{})
	if err := almanac.AddRuntimeFact("age", NumberValue(30)); err != nil {
		t.Fatalf("AddRuntimeFact: %v", err)
	}
	v, err := almanac.FactValue("age", nil, "")
	if err != nil {
		t.Fatalf("FactValue: %v", err)
	}
	if v.Number != 30 {
		t.Errorf("expected 30, got %v", v.Number)
	}
}

func TestAlmanacUndefinedFactErrors(t *testing.T) {
	almanac := NewAlmanac(nil, AlmanacOptions{})
	if _, err := almanac.FactValue("missing", nil, ""); err == nil {
		t.Error("expected an UndefinedFact error")
	}
}

func TestAlmanacAllowUndefinedFacts(t *testing.T) {
	almanac := NewAlmanac(nil, AlmanacOptions{AllowUndefinedFacts: true})
	v, err := almanac.FactValue("missing", nil, "")
	if err != nil {
		t.Fatalf("FactValue: %v", err)
	}
	if !v.IsNull() {
		t.Errorf("expected null for an undefined fact, got %v", v)
	}
}

func TestAlmanacDynamicFactComputedOnceConcurrently(t *testing.T) {
	var calls int
	var mu sync.Mutex
	fact, err := NewDynamicFact("expensive", func(params map[string]interface{}, a *Almanac) (Value, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return NumberValue(42), nil
	}, nil)
	if err != nil {
		t.Fatalf("NewDynamicFact: %v", err)
	}

	facts := NewFactMap()
	facts.Store(fact)
	almanac := NewAlmanac(facts, AlmanacOptions{})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := almanac.FactValue("expensive", nil, "")
			if err != nil {
				t.Errorf("FactValue: %v", err)
				return
			}
			if v.Number != 42 {
				t.Errorf("expected 42, got %v", v.Number)
			}
		}()
	}
	wg.Wait()

	if calls != 1 {
		t.Errorf("expected the dynamic fact to compute exactly once, got %d calls", calls)
	}
}

func TestAlmanacPathProjection(t *testing.T) {
	almanac := NewAlmanac(nil, AlmanacOptions{})
	obj := ObjectValue(map[string]Value{
		"address": ObjectValue(map[string]Value{
			"city": StringValue("Springfield"),
		}),
	})
	if err := almanac.AddRuntimeFact("user", obj); err != nil {
		t.Fatalf("AddRuntimeFact: %v", err)
	}
	v, err := almanac.FactValue("user", nil, "address.city")
	if err != nil {
		t.Fatalf("FactValue: %v", err)
	}
	if v.Str != "Springfield" {
		t.Errorf("expected Springfield, got %v", v)
	}
}

func TestAlmanacEventOrdering(t *testing.T) {
	almanac := NewAlmanac(nil, AlmanacOptions{})
	_ = almanac.AddEvent(Event{Type: "first"}, "success")
	_ = almanac.AddEvent(Event{Type: "second"}, "failure")
	_ = almanac.AddEvent(Event{Type: "third"}, "success")

	all := almanac.GetEvents("")
	if len(all) != 3 || all[0].Type != "first" || all[1].Type != "third" || all[2].Type != "second" {
		t.Errorf("unexpected event ordering: %+v", all)
	}
}
