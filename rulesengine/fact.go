package rulesengine

import (
	"errors"

	"github.com/mitchellh/hashstructure/v2"
)

const (
	constantFact = "CONSTANT"
	dynamicFact  = "DYNAMIC"
)

// DynamicFactCallback computes a fact's value for a given set of
// parameters. It must be deterministic for identical params within one
// almanac — the memoization cache relies on that.
type DynamicFactCallback func(params map[string]interface{}, almanac *Almanac) (Value, error)

// FactOptions configures a registered fact. Priority orders sibling leaf
// evaluation within all/any when the leaf itself sets none. Cache controls
// whether dynamic computations are memoized per (factId, params).
type FactOptions struct {
	Cache    bool
	Priority int
}

func DefaultFactOptions() FactOptions {
	return FactOptions{Cache: true, Priority: 1}
}

// Fact is a named input: either a constant Value, or a computation over
// params and the almanac. Facts registered on the Engine survive across
// runs; facts added directly to an Almanac are per-run only.
type Fact struct {
	ID       string
	Value    Value
	Compute  DynamicFactCallback
	kind     string
	Priority int
	Options  FactOptions
}

// NewConstantFact creates a fact with a fixed Value.
func NewConstantFact(id string, value Value, options *FactOptions) (*Fact, error) {
	if id == "" {
		return nil, errors.New("fact: id required")
	}
	opts := resolveFactOptions(options)
	return &Fact{ID: id, Value: value, kind: constantFact, Priority: opts.Priority, Options: opts}, nil
}

// NewDynamicFact creates a fact computed on demand via cb.
func NewDynamicFact(id string, cb DynamicFactCallback, options *FactOptions) (*Fact, error) {
	if id == "" {
		return nil, errors.New("fact: id required")
	}
	if cb == nil {
		return nil, errors.New("fact: computation required")
	}
	opts := resolveFactOptions(options)
	return &Fact{ID: id, Compute: cb, kind: dynamicFact, Priority: opts.Priority, Options: opts}, nil
}

func resolveFactOptions(options *FactOptions) FactOptions {
	if options == nil {
		return DefaultFactOptions()
	}
	opts := *options
	if opts.Priority == 0 {
		opts.Priority = 1
	}
	return opts
}

func (f *Fact) IsConstant() bool { return f.kind == constantFact }
func (f *Fact) IsDynamic() bool  { return f.kind == dynamicFact }

// Calculate resolves the fact's value. Constant facts ignore params.
func (f *Fact) Calculate(params map[string]interface{}, almanac *Almanac) (Value, error) {
	if f.IsConstant() {
		return f.Value, nil
	}
	return f.Compute(params, almanac)
}

// CacheKey hashes (factId, params) into a memoization key. Returns
// (0, false) when the fact opts out of caching.
func (f *Fact) CacheKey(params map[string]interface{}) (uint64, bool, error) {
	if !f.Options.Cache {
		return 0, false, nil
	}
	hash, err := hashstructure.Hash(struct {
		ID     string
		Params map[string]interface{}
	}{ID: f.ID, Params: params}, hashstructure.FormatV2, nil)
	if err != nil {
		return 0, false, err
	}
	return hash, true, nil
}
