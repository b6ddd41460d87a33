package rulesengine

import "encoding/json"

// RuleResult is the outcome of evaluating one rule: its final weighted
// score, the pass/fail derived from it, the event it would emit, and the
// fully annotated condition tree (every node's Score/Result, every leaf's
// FactResult/ValueResult) for inspection or debugging.
type RuleResult struct {
	Name       string     `json:"name"`
	Priority   int        `json:"priority"`
	Conditions *Condition `json:"conditions"`
	Event      Event      `json:"event"`
	Score      float64    `json:"score"`
	Result     bool       `json:"result"`
}

func NewRuleResult(name string, priority int, conditions *Condition, event Event) *RuleResult {
	return &RuleResult{
		Name:       name,
		Priority:   priority,
		Conditions: conditions,
		Event:      event,
	}
}

func (r *RuleResult) setOutcome(score float64) {
	r.Score = score
	r.Result = score >= 1
}

// ResolveEventParams replaces any fact-reference values nested in the
// event's params with their resolved facts, mirroring what leaf value
// resolution does for conditions. Only top-level params are inspected, so
// a param like `{"fact": "accountBalance"}` resolves to that fact's value.
func (r *RuleResult) ResolveEventParams(almanac *Almanac) error {
	if r.Event.Params == nil {
		return nil
	}
	resolved := make(map[string]interface{}, len(r.Event.Params))
	for key, raw := range r.Event.Params {
		obj, ok := raw.(map[string]interface{})
		if !ok {
			resolved[key] = raw
			continue
		}
		factID, ok := obj["fact"].(string)
		if !ok {
			resolved[key] = raw
			continue
		}
		params, _ := obj["params"].(map[string]interface{})
		path, _ := obj["path"].(string)
		value, err := almanac.FactValue(factID, params, path)
		if err != nil {
			return err
		}
		resolved[key] = value.Raw()
	}
	r.Event.Params = resolved
	return nil
}

// ToJSON renders the result as a JSON-marshalable map, or a string when
// stringify is true.
func (r *RuleResult) ToJSON(stringify bool) (interface{}, error) {
	encoded, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	if stringify {
		return string(encoded), nil
	}
	var generic map[string]interface{}
	if err := json.Unmarshal(encoded, &generic); err != nil {
		return nil, err
	}
	return generic, nil
}
