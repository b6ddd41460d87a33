package rulesengine

import (
	"encoding/json"
	"sync"

	"github.com/asaskevich/EventBus"
)

// RuleConfig is the user-facing shape used to construct a Rule, typically
// decoded straight off a JSON rule definition.
type RuleConfig struct {
	Name       string      `json:"name"`
	Priority   *int        `json:"priority,omitempty"`
	Conditions *Condition  `json:"conditions"`
	Event      EventConfig `json:"event"`
	OnSuccess  EventHandler
	OnFailure  EventHandler
}

// Rule pairs a named, weighted condition tree with the event to emit when
// it scores a perfect 1.0. Each rule owns a private bus so OnSuccess and
// OnFailure subscriptions stay scoped to that rule even though the engine
// also republishes the same result on its own bus.
type Rule struct {
	Name       string
	Priority   int
	Conditions *Condition
	RuleEvent  Event
	bus        EventBus.Bus
	mu         sync.Mutex
}

// NewRule validates config and constructs a Rule. Priority defaults to 1;
// name and an event type are required.
func NewRule(config *RuleConfig) (*Rule, error) {
	if config.Name == "" {
		return nil, NewMissingRuleNameError()
	}
	if config.Event.Type == "" {
		return nil, NewMissingEventTypeError()
	}
	priority := 1
	if config.Priority != nil {
		if *config.Priority <= 0 {
			return nil, NewInvalidPriorityValueError()
		}
		priority = *config.Priority
	}
	if config.Conditions == nil {
		return nil, NewInvalidConditionError("rule requires conditions")
	}
	if err := config.Conditions.Validate(); err != nil {
		return nil, err
	}

	r := &Rule{
		Name:     config.Name,
		Priority: priority,
		Conditions: config.Conditions,
		RuleEvent: Event{Type: config.Event.Type, Params: config.Event.Params},
		bus:      EventBus.New(),
	}

	if config.OnSuccess != nil {
		if err := r.bus.Subscribe("success", config.OnSuccess); err != nil {
			return nil, err
		}
	}
	if config.OnFailure != nil {
		if err := r.bus.Subscribe("failure", config.OnFailure); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Rule) GetName() string            { return r.Name }
func (r *Rule) GetPriority() int            { return r.Priority }
func (r *Rule) GetEvent() Event             { return r.RuleEvent }
func (r *Rule) GetConditions() *Condition   { return r.Conditions }

// OnSuccess subscribes an additional handler, invoked when the rule scores
// a perfect 1.0.
func (r *Rule) OnSuccess(handler EventHandler) error {
	return r.bus.Subscribe("success", handler)
}

// OnFailure subscribes an additional handler, invoked when the rule's
// score falls short of 1.0.
func (r *Rule) OnFailure(handler EventHandler) error {
	return r.bus.Subscribe("failure", handler)
}

// ToJSON renders the rule as a JSON-marshalable map, or a string when
// stringify is true.
func (r *Rule) ToJSON(stringify bool) (interface{}, error) {
	props := map[string]interface{}{
		"name":       r.Name,
		"priority":   r.Priority,
		"conditions": r.Conditions,
		"event":      r.RuleEvent,
	}
	if stringify {
		encoded, err := json.Marshal(props)
		if err != nil {
			return nil, err
		}
		return string(encoded), nil
	}
	return props, nil
}

// Evaluate scores the rule's conditions against almanac using the given
// registries, publishes the success/failure result on the rule's private
// bus, and returns the annotated result.
func (r *Rule) Evaluate(almanac *Almanac, operators *Registry, conditions *ConditionMap, facts *FactMap, allowUndefinedConditions, replaceFactsInEventParams bool) (*RuleResult, error) {
	annotated := r.Conditions.Clone()
	evaluator := NewEvaluator(almanac, operators, conditions, facts, allowUndefinedConditions)

	score, err := evaluator.Evaluate(annotated)
	if err != nil {
		return nil, err
	}

	result := NewRuleResult(r.Name, r.Priority, annotated, r.RuleEvent)
	result.setOutcome(score)

	if replaceFactsInEventParams {
		if err := result.ResolveEventParams(almanac); err != nil {
			return nil, err
		}
	}

	outcome := "failure"
	if result.Result {
		outcome = "success"
	}
	r.mu.Lock()
	r.bus.Publish(outcome, result)
	r.mu.Unlock()

	return result, nil
}
