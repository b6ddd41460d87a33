package rulesengine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/asaskevich/EventBus"
	"golang.org/x/sync/errgroup"
)

// RuleEngineOptions configures an Engine's tolerance for gaps in the rule
// set and its event-param resolution behavior.
type RuleEngineOptions struct {
	AllowUndefinedFacts       bool
	AllowUndefinedConditions  bool
	ReplaceFactsInEventParams bool
}

// DefaultRuleEngineOptions returns the conservative defaults: undefined
// facts and conditions are errors, and event params are passed through
// unresolved.
func DefaultRuleEngineOptions() *RuleEngineOptions {
	return &RuleEngineOptions{}
}

// RunResult bundles everything one Run call produced.
type RunResult struct {
	Almanac        *Almanac
	Results        []*RuleResult
	FailureResults []*RuleResult
	Events         []Event
	FailureEvents  []Event
}

// Engine schedules a set of rules against a per-run Almanac, evaluating
// each priority bucket (highest first) concurrently and publishing every
// rule's success/failure, plus the rule's typed event when it passes, on
// its bus as results land.
type Engine struct {
	Rules                     []*Rule
	Operators                 *Registry
	Facts                     *FactMap
	Conditions                *ConditionMap
	Status                    string
	AllowUndefinedFacts       bool
	AllowUndefinedConditions  bool
	ReplaceFactsInEventParams bool

	prioritizedRules [][]*Rule
	bus              EventBus.Bus
	mu               sync.Mutex
}

// NewEngine constructs an Engine seeded with rules and the default
// operator/decorator set. A nil options uses DefaultRuleEngineOptions.
func NewEngine(rules []*Rule, options *RuleEngineOptions) *Engine {
	if options == nil {
		options = DefaultRuleEngineOptions()
	}

	registry := NewRegistry()
	for _, op := range DefaultOperators() {
		registry.AddOperator(op)
	}
	for _, dec := range DefaultDecorators() {
		registry.AddDecorator(dec)
	}

	e := &Engine{
		Rules:                     []*Rule{},
		Operators:                 registry,
		Facts:                     NewFactMap(),
		Conditions:                NewConditionMap(),
		Status:                    StatusReady,
		AllowUndefinedFacts:       options.AllowUndefinedFacts,
		AllowUndefinedConditions:  options.AllowUndefinedConditions,
		ReplaceFactsInEventParams: options.ReplaceFactsInEventParams,
		bus:                       EventBus.New(),
	}

	for _, r := range rules {
		_ = e.AddRule(r)
	}
	return e
}

// AddRule registers rule with the engine, invalidating the cached
// priority-bucket ordering.
func (e *Engine) AddRule(rule *Rule) error {
	if rule == nil {
		return fmt.Errorf("engine: rule is required")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Rules = append(e.Rules, rule)
	e.prioritizedRules = nil
	return nil
}

// AddRuleFromConfig builds a Rule from config and registers it.
func (e *Engine) AddRuleFromConfig(config *RuleConfig) error {
	rule, err := NewRule(config)
	if err != nil {
		return err
	}
	return e.AddRule(rule)
}

// UpdateRule replaces every rule sharing r's name with r.
func (e *Engine) UpdateRule(r *Rule) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	found := false
	for i, existing := range e.Rules {
		if existing.Name == r.Name {
			e.Rules[i] = r
			found = true
		}
	}
	if !found {
		return fmt.Errorf("engine: updateRule() rule %q not found", r.Name)
	}
	e.prioritizedRules = nil
	return nil
}

// RemoveRuleByName removes every rule with the given name, returning
// whether any rule matched.
func (e *Engine) RemoveRuleByName(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	filtered := e.Rules[:0:0]
	for _, r := range e.Rules {
		if r.Name != name {
			filtered = append(filtered, r)
		}
	}
	removed := len(filtered) != len(e.Rules)
	e.Rules = filtered
	e.prioritizedRules = nil
	return removed
}

// GetRules returns every rule registered with the engine.
func (e *Engine) GetRules() []*Rule {
	return e.Rules
}

// SetCondition registers a named, reusable condition addressable from any
// rule's leaf via `{"condition": name}`.
func (e *Engine) SetCondition(name string, cond *Condition) error {
	if name == "" {
		return NewInvalidConditionError("condition name is required")
	}
	if err := cond.Validate(); err != nil {
		return err
	}
	e.Conditions.Store(name, cond)
	return nil
}

// RemoveCondition removes a previously registered named condition.
func (e *Engine) RemoveCondition(name string) bool {
	_, ok := e.Conditions.Load(name)
	if ok {
		e.Conditions.Delete(name)
	}
	return ok
}

// AddOperator registers a custom operator, overriding any existing one of
// the same name.
func (e *Engine) AddOperator(op Operator) {
	Debugf("engine::addOperator name:%s", op.Name)
	e.Operators.AddOperator(op)
}

// RemoveOperator removes a custom operator by name.
func (e *Engine) RemoveOperator(name string) bool {
	return e.Operators.RemoveOperator(name)
}

// AddDecorator registers a custom decorator.
func (e *Engine) AddDecorator(dec Decorator) {
	e.Operators.AddDecorator(dec)
}

// RemoveDecorator removes a custom decorator by name.
func (e *Engine) RemoveDecorator(name string) bool {
	return e.Operators.RemoveDecorator(name)
}

// AddFact registers a fact definition with the engine, available to every
// subsequent run unless shadowed by a runtime fact.
func (e *Engine) AddFact(f *Fact) {
	Debugf("engine::addFact id:%s", f.ID)
	e.Facts.Store(f)
}

// RemoveFact removes a fact definition by id.
func (e *Engine) RemoveFact(id string) bool {
	_, ok := e.Facts.Load(id)
	if ok {
		e.Facts.Delete(id)
	}
	return ok
}

// GetFact returns a registered fact by id, or nil if none exists.
func (e *Engine) GetFact(id string) *Fact {
	f, ok := e.Facts.Load(id)
	if !ok {
		return nil
	}
	return f
}

// Subscribe registers a handler for "success", "failure", or a rule's own
// event type. "success"/"failure" is published as each rule result is
// processed during a run; the rule's event type only when the rule passes.
func (e *Engine) Subscribe(topic string, handler interface{}) error {
	return e.bus.Subscribe(topic, handler)
}

// prioritizeRules groups rules into descending-priority buckets, caching
// the result until a rule is added, updated, or removed.
func (e *Engine) prioritizeRules() [][]*Rule {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.prioritizedRules != nil {
		return e.prioritizedRules
	}

	buckets := make(map[int][]*Rule)
	for _, r := range e.Rules {
		buckets[r.Priority] = append(buckets[r.Priority], r)
	}

	keys := make([]int, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(keys)))

	ordered := make([][]*Rule, 0, len(keys))
	for _, k := range keys {
		ordered = append(ordered, buckets[k])
	}
	e.prioritizedRules = ordered
	return ordered
}

// Stop halts evaluation before the next priority bucket starts; rules
// already in flight in the current bucket are not cancelled.
func (e *Engine) Stop() *Engine {
	e.mu.Lock()
	e.Status = StatusFinished
	e.mu.Unlock()
	return e
}

func (e *Engine) status() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Status
}

// evaluateBucket concurrently evaluates every rule in a priority bucket.
// Each goroutine only scores its own rule; it never touches the almanac or
// the bus directly. Results are funneled over a channel and drained by a
// single collector loop below, so almanac.AddResult/AddEvent and every
// bus.Publish for this bucket run one at a time on one goroutine — the
// same serialized-accumulation shape the teacher's EvaluateRules uses its
// results channel for, just driven by errgroup instead of a raw
// WaitGroup+error channel.
func (e *Engine) evaluateBucket(ctx context.Context, rules []*Rule, almanac *Almanac) error {
	resultsCh := make(chan *RuleResult, len(rules))

	group, gctx := errgroup.WithContext(ctx)
	for _, rule := range rules {
		rule := rule
		group.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			result, err := rule.Evaluate(almanac, e.Operators, e.Conditions, e.Facts, e.AllowUndefinedConditions, e.ReplaceFactsInEventParams)
			if err != nil {
				return err
			}
			Debugf("engine::run rule:%s score:%f result:%t", result.Name, result.Score, result.Result)
			resultsCh <- result
			return nil
		})
	}

	go func() {
		_ = group.Wait()
		close(resultsCh)
	}()

	for result := range resultsCh {
		almanac.AddResult(result)
		outcome := "failure"
		if result.Result {
			outcome = "success"
		}
		if err := almanac.AddEvent(result.Event, outcome); err != nil {
			return err
		}
		e.bus.Publish(outcome, result)
		if result.Result {
			e.bus.Publish(result.Event.Type, result)
		}
	}

	return group.Wait()
}

// Run executes every registered rule against runtimeFacts (layered over
// the engine's registered facts for this run only) and returns the
// aggregated results. Priority buckets run strictly in descending order;
// rules within a bucket run concurrently.
func (e *Engine) Run(ctx context.Context, runtimeFacts map[string]Value) (*RunResult, error) {
	e.mu.Lock()
	e.Status = StatusRunning
	e.mu.Unlock()
	Debug("engine::run started")

	almanac := NewAlmanac(e.Facts, AlmanacOptions{AllowUndefinedFacts: e.AllowUndefinedFacts})
	for id, v := range runtimeFacts {
		if err := almanac.AddRuntimeFact(id, v); err != nil {
			return nil, err
		}
	}

	execCtx := NewExecutionContext(ctx)
	defer execCtx.Cancel()

	for _, bucket := range e.prioritizeRules() {
		if e.status() != StatusRunning {
			Debugf("engine::run status:%s; skipping remaining rules", e.status())
			execCtx.Cancel()
			break
		}
		if err := e.evaluateBucket(execCtx.Context, bucket, almanac); err != nil {
			return nil, err
		}
	}

	e.mu.Lock()
	e.Status = StatusFinished
	e.mu.Unlock()
	Debug("engine::run completed")

	return &RunResult{
		Almanac:        almanac,
		Results:        almanac.GetResults(),
		FailureResults: almanac.GetFailureResults(),
		Events:         almanac.GetEvents("success"),
		FailureEvents:  almanac.GetEvents("failure"),
	}, nil
}
