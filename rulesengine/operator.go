package rulesengine

import (
	"errors"
	"strings"
	"sync"
)

// Operator is a named comparator returning a score in [0,1]. Validate, if
// set, gates Evaluate: a rejected LHS forces score 0 without invoking the
// callback.
type Operator struct {
	Name     string
	Evaluate func(lhs, rhs Value) float64
	Validate func(lhs Value) bool
}

// NewOperator constructs an Operator, defaulting Validate to "always
// accept" when nil.
func NewOperator(name string, evaluate func(lhs, rhs Value) float64, validate func(lhs Value) bool) (*Operator, error) {
	if name == "" {
		return nil, errors.New("operator: missing name")
	}
	if evaluate == nil {
		return nil, errors.New("operator: missing evaluate callback")
	}
	if validate == nil {
		validate = func(Value) bool { return true }
	}
	return &Operator{Name: name, Evaluate: evaluate, Validate: validate}, nil
}

// run applies Validate then Evaluate, clamping the result into [0,1].
func (o *Operator) run(lhs, rhs Value) float64 {
	if !o.Validate(lhs) {
		return 0
	}
	return clampScore(o.Evaluate(lhs, rhs))
}

// Decorator wraps an operator's evaluator, e.g. lifting it over array
// elements, swapping operands, or negating the result. Decorators compose
// by name-prefixing with ":": "d1:d2:op" resolves to
// d1.Wrap(..., d2.Wrap(..., op.Evaluate)).
type Decorator struct {
	Name string
	Wrap func(lhs, rhs Value, next func(lhs, rhs Value) float64) float64
}

func NewDecorator(name string, wrap func(lhs, rhs Value, next func(lhs, rhs Value) float64) float64) (*Decorator, error) {
	if name == "" {
		return nil, errors.New("decorator: missing name")
	}
	if wrap == nil {
		return nil, errors.New("decorator: missing wrap callback")
	}
	return &Decorator{Name: name, Wrap: wrap}, nil
}

// Registry owns named operators and decorators and resolves (possibly
// colon-chained) names into a single evaluator.
type Registry struct {
	mu         sync.RWMutex
	operators  map[string]Operator
	decorators map[string]Decorator
	resolved   sync.Map // chained name -> func(lhs, rhs Value) float64
}

func NewRegistry() *Registry {
	return &Registry{
		operators:  make(map[string]Operator),
		decorators: make(map[string]Decorator),
	}
}

func (r *Registry) AddOperator(op Operator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.operators[op.Name] = op
	r.resolved = sync.Map{} // a redefinition can change any chain ending in it
}

func (r *Registry) RemoveOperator(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.operators[name]
	if ok {
		delete(r.operators, name)
		r.resolved = sync.Map{}
	}
	return ok
}

func (r *Registry) AddDecorator(dec Decorator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decorators[dec.Name] = dec
	r.resolved = sync.Map{}
}

func (r *Registry) RemoveDecorator(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.decorators[name]
	if ok {
		delete(r.decorators, name)
		r.resolved = sync.Map{}
	}
	return ok
}

// Get resolves name (e.g. "not:everyFact:greaterThan") into a single
// evaluator. The suffix must name a base operator; every remaining segment
// must name a decorator, composed right-to-left over the base.
func (r *Registry) Get(name string) (func(lhs, rhs Value) float64, error) {
	if cached, ok := r.resolved.Load(name); ok {
		return cached.(func(lhs, rhs Value) float64), nil
	}

	segments := strings.Split(name, ":")
	baseName := segments[len(segments)-1]

	r.mu.RLock()
	base, ok := r.operators[baseName]
	r.mu.RUnlock()
	if !ok {
		return nil, &UnknownOperatorError{Name: baseName}
	}

	evaluator := base.run

	for i := len(segments) - 2; i >= 0; i-- {
		decName := segments[i]
		r.mu.RLock()
		dec, ok := r.decorators[decName]
		r.mu.RUnlock()
		if !ok {
			return nil, &UnknownDecoratorError{Name: decName}
		}
		next := evaluator
		evaluator = func(lhs, rhs Value) float64 {
			return clampScore(dec.Wrap(lhs, rhs, next))
		}
	}

	r.resolved.Store(name, evaluator)
	return evaluator, nil
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
