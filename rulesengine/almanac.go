package rulesengine

import (
	"fmt"
	"sync"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"
)

// PathResolver resolves a dotted/bracketed path against a fact's raw value.
// The default implementation is backed by gjson; any well-defined callback
// satisfies the core, so callers may substitute their own dialect.
type PathResolver func(raw interface{}, path string) (interface{}, bool)

// DefaultPathResolver resolves path with gjson.Get against the JSON
// projection of raw.
func DefaultPathResolver(raw interface{}, path string) (interface{}, bool) {
	v := ValueFromRaw(raw)
	encoded, err := v.MarshalJSON()
	if err != nil {
		return nil, false
	}
	result := gjson.GetBytes(encoded, path)
	if !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}

// AlmanacOptions configures a new Almanac.
type AlmanacOptions struct {
	AllowUndefinedFacts bool
	PathResolver        PathResolver
}

// Almanac is the per-run fact environment: it holds runtime facts layered
// over the engine's registered facts, memoizes dynamic computations, and
// accumulates the events and rule results produced during one run. An
// Almanac is never reused across runs.
type Almanac struct {
	mu                  sync.RWMutex
	facts               map[string]*Fact
	cache               sync.Map // cache key -> Value
	group               singleflight.Group
	allowUndefinedFacts bool
	pathResolver        PathResolver
	successEvents       []Event
	failureEvents       []Event
	results             []*RuleResult
	failureResults      []*RuleResult
}

// NewAlmanac creates an Almanac seeded with the engine's registered facts.
func NewAlmanac(registered *FactMap, opts AlmanacOptions) *Almanac {
	resolver := opts.PathResolver
	if resolver == nil {
		resolver = DefaultPathResolver
	}
	a := &Almanac{
		facts:               make(map[string]*Fact),
		allowUndefinedFacts: opts.AllowUndefinedFacts,
		pathResolver:        resolver,
	}
	if registered != nil {
		registered.Range(func(id string, f *Fact) bool {
			a.facts[id] = f
			return true
		})
	}
	return a
}

// AddFact registers or overrides a fact for the lifetime of this run only.
func (a *Almanac) AddFact(f *Fact) {
	Debugf("almanac::addFact id:%s", f.ID)
	a.mu.Lock()
	a.facts[f.ID] = f
	a.mu.Unlock()
}

// AddRuntimeFact registers a constant fact computed outside the engine,
// e.g. values supplied to Engine.Run for this invocation only.
func (a *Almanac) AddRuntimeFact(id string, value Value) error {
	f, err := NewConstantFact(id, value, nil)
	if err != nil {
		return err
	}
	a.AddFact(f)
	return nil
}

func (a *Almanac) getFact(id string) (*Fact, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	f, ok := a.facts[id]
	return f, ok
}

// FactValue resolves a fact's value, optionally projected through path,
// memoizing dynamic computations by (factId, params) and deduplicating
// concurrent computation of the same key via singleflight. A dynamic fact
// with caching disabled is computed on every lookup.
func (a *Almanac) FactValue(factID string, params map[string]interface{}, path string) (Value, error) {
	f, ok := a.getFact(factID)
	if !ok {
		if a.allowUndefinedFacts {
			return NullValue(), nil
		}
		return Value{}, NewUndefinedFactError(factID)
	}

	value, err := a.resolve(f, params)
	if err != nil {
		return Value{}, err
	}

	if path != "" && IsObjectLike(value.Raw()) {
		Debugf("almanac::factValue extracting path %s from fact %s", path, factID)
		raw, found := a.pathResolver(value.Raw(), path)
		if !found {
			if a.allowUndefinedFacts {
				return NullValue(), nil
			}
			return Value{}, NewUndefinedFactError(fmt.Sprintf("%s (path %s)", factID, path))
		}
		return ValueFromRaw(raw), nil
	}
	return value, nil
}

func (a *Almanac) resolve(f *Fact, params map[string]interface{}) (Value, error) {
	if f.IsConstant() {
		return f.Value, nil
	}

	cacheKey, cacheable, err := f.CacheKey(params)
	if err != nil {
		return Value{}, err
	}
	if !cacheable {
		return f.Calculate(params, a)
	}
	if cached, ok := a.cache.Load(cacheKey); ok {
		Debugf("almanac::factValue cache hit for fact:%s", f.ID)
		return cached.(Value), nil
	}

	groupKey := fmt.Sprintf("%s:%d", f.ID, cacheKey)
	result, err, _ := a.group.Do(groupKey, func() (interface{}, error) {
		// A caller that missed the cache just as another call finished
		// lands here after that call returned; the value is cached by then.
		if cached, ok := a.cache.Load(cacheKey); ok {
			return cached.(Value), nil
		}
		Debugf("almanac::factValue cache miss for fact:%s; computing", f.ID)
		v, err := f.Calculate(params, a)
		if err != nil {
			return Value{}, err
		}
		a.cache.Store(cacheKey, v)
		return v, nil
	})
	if err != nil {
		return Value{}, err
	}
	return result.(Value), nil
}

// GetValue interprets cv as either a literal Value or a FactReference and
// resolves it against this almanac.
func (a *Almanac) GetValue(cv *ConditionValue) (Value, error) {
	if cv == nil {
		return NullValue(), nil
	}
	if cv.IsReference() {
		return a.FactValue(cv.Ref.Fact, cv.Ref.Params, cv.Ref.Path)
	}
	return cv.Literal, nil
}

// AddEvent records a success or failure event for this run.
func (a *Almanac) AddEvent(event Event, outcome string) error {
	switch outcome {
	case "success":
		a.successEvents = append(a.successEvents, event)
	case "failure":
		a.failureEvents = append(a.failureEvents, event)
	default:
		return fmt.Errorf(`outcome required: "success" | "failure"`)
	}
	return nil
}

// GetEvents returns events for outcome ("success", "failure", or "" for
// both in success-then-failure order).
func (a *Almanac) GetEvents(outcome string) []Event {
	switch outcome {
	case "success":
		return a.successEvents
	case "failure":
		return a.failureEvents
	default:
		all := make([]Event, 0, len(a.successEvents)+len(a.failureEvents))
		all = append(all, a.successEvents...)
		all = append(all, a.failureEvents...)
		return all
	}
}

// AddResult records a rule's result for this run, partitioning it into
// the success or failure list by its outcome.
func (a *Almanac) AddResult(result *RuleResult) {
	if result.Result {
		a.results = append(a.results, result)
	} else {
		a.failureResults = append(a.failureResults, result)
	}
}

// GetResults returns the rule results that succeeded this run; failed
// results are returned by GetFailureResults.
func (a *Almanac) GetResults() []*RuleResult { return a.results }

// GetFailureResults returns only the rule results that did not succeed.
func (a *Almanac) GetFailureResults() []*RuleResult { return a.failureResults }
