package rulesengine

import (
	"encoding/json"
)

// FactReference is the `{fact, params?, path?}` shape a leaf's `value` may
// take instead of a literal, comparing fact-to-fact.
type FactReference struct {
	Fact   string                 `json:"fact"`
	Params map[string]interface{} `json:"params,omitempty"`
	Path   string                 `json:"path,omitempty"`
}

// ConditionValue is a leaf's `value`: either a literal Value or a
// FactReference. Which one is determined at unmarshal time by probing for
// a "fact" key in an object-shaped payload.
type ConditionValue struct {
	Ref     *FactReference
	Literal Value
}

func LiteralValue(v Value) *ConditionValue {
	return &ConditionValue{Literal: v}
}

func FactRefValue(ref FactReference) *ConditionValue {
	return &ConditionValue{Ref: &ref}
}

func (cv *ConditionValue) IsReference() bool {
	return cv != nil && cv.Ref != nil
}

func (cv ConditionValue) MarshalJSON() ([]byte, error) {
	if cv.Ref != nil {
		return json.Marshal(cv.Ref)
	}
	return json.Marshal(cv.Literal)
}

func (cv *ConditionValue) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err == nil {
		if factRaw, ok := probe["fact"]; ok {
			var factID string
			if err := json.Unmarshal(factRaw, &factID); err == nil {
				ref := FactReference{Fact: factID}
				if paramsRaw, ok := probe["params"]; ok {
					_ = json.Unmarshal(paramsRaw, &ref.Params)
				}
				if pathRaw, ok := probe["path"]; ok {
					_ = json.Unmarshal(pathRaw, &ref.Path)
				}
				cv.Ref = &ref
				return nil
			}
		}
	}
	var lit Value
	if err := lit.UnmarshalJSON(data); err != nil {
		return err
	}
	cv.Literal = lit
	return nil
}

// Condition is a node in the recursive condition tree (spec.md §3). Exactly
// one of All/Any/Not/ConditionRef/Fact is set per node. Score/Result and,
// for leaves, FactResult/ValueResult are populated by the Condition
// Evaluator during a rule run, on a tree that was deep-copied from the
// rule's static conditions so the rule itself is never mutated.
type Condition struct {
	All          []*Condition    `json:"all,omitempty"`
	Any          []*Condition    `json:"any,omitempty"`
	Not          *Condition      `json:"not,omitempty"`
	ConditionRef string          `json:"condition,omitempty"`
	Fact         string          `json:"fact,omitempty"`
	Operator     string          `json:"operator,omitempty"`
	Value        *ConditionValue `json:"value,omitempty"`
	Path         string          `json:"path,omitempty"`
	Params       map[string]interface{} `json:"params,omitempty"`
	Priority     *int            `json:"priority,omitempty"`
	Weight       *int            `json:"weight,omitempty"`
	Name         string          `json:"name,omitempty"`

	Score       float64 `json:"score"`
	Result      bool    `json:"result"`
	FactResult  *Value  `json:"factResult,omitempty"`
	ValueResult *Value  `json:"valueResult,omitempty"`
}

// IsBooleanNode reports whether this node is all/any/not rather than a
// leaf or a named-condition reference.
func (c *Condition) IsBooleanNode() bool {
	return c != nil && (c.All != nil || c.Any != nil || c.Not != nil)
}

// IsReference reports whether this node is a `{condition: name}` reference.
func (c *Condition) IsReference() bool {
	return c != nil && c.ConditionRef != ""
}

// IsLeaf reports whether this node is a fact/operator/value comparison.
func (c *Condition) IsLeaf() bool {
	return c != nil && !c.IsBooleanNode() && !c.IsReference()
}

// GetWeight returns the node's weight, defaulting to 1.
func (c *Condition) GetWeight() int {
	if c.Weight == nil {
		return 1
	}
	return *c.Weight
}

// GetPriority returns the node's own priority if set, else falls back to
// the referenced fact's registered priority (for leaves), else 1.
func (c *Condition) GetPriority(facts *FactMap) int {
	if c.Priority != nil {
		return *c.Priority
	}
	if c.IsLeaf() && facts != nil {
		if f, ok := facts.Load(c.Fact); ok {
			return f.Priority
		}
	}
	return 1
}

// Validate enforces the shape invariants from spec.md §3/§7.
func (c *Condition) Validate() error {
	if c.Priority != nil && *c.Priority <= 0 {
		return NewInvalidConditionError("priority must be greater than zero")
	}
	if c.Weight != nil && *c.Weight <= 0 {
		return NewInvalidConditionError("weight must be greater than zero")
	}

	shapeCount := 0
	if c.All != nil {
		shapeCount++
	}
	if c.Any != nil {
		shapeCount++
	}
	if c.Not != nil {
		shapeCount++
	}
	if c.ConditionRef != "" {
		shapeCount++
	}
	leafShaped := c.Fact != "" || c.Operator != "" || c.Value != nil
	if leafShaped {
		shapeCount++
	}

	if shapeCount == 0 {
		return NewInvalidConditionError(`condition root must contain a single instance of "all", "any", "not", "condition", or a leaf`)
	}
	if shapeCount > 1 {
		return NewInvalidConditionError("exactly one of all/any/not/condition/fact must be present")
	}

	if leafShaped {
		if c.Fact == "" || c.Operator == "" || c.Value == nil {
			return NewInvalidConditionError("leaf conditions require fact, operator, and value")
		}
	}
	if c.All != nil && len(c.All) == 0 {
		return NewInvalidConditionError("all must be a non-empty array")
	}
	if c.Any != nil && len(c.Any) == 0 {
		return NewInvalidConditionError("any must be a non-empty array")
	}

	return nil
}

// UnmarshalJSON validates the node after decoding so malformed rule JSON
// fails fast at construction, per spec.md §7.
func (c *Condition) UnmarshalJSON(data []byte) error {
	type alias Condition
	aux := (*alias)(c)
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	return c.Validate()
}

// Clone deep-copies a condition tree, used both when realizing a named
// condition reference (clone-on-project, so the shared definition is
// never mutated by one rule's evaluation) and when a Rule builds its
// per-evaluation annotated tree.
func (c *Condition) Clone() *Condition {
	if c == nil {
		return nil
	}
	clone := *c
	clone.All = cloneConditionSlice(c.All)
	clone.Any = cloneConditionSlice(c.Any)
	clone.Not = c.Not.Clone()
	if c.Value != nil {
		v := *c.Value
		clone.Value = &v
	}
	if c.Priority != nil {
		p := *c.Priority
		clone.Priority = &p
	}
	if c.Weight != nil {
		w := *c.Weight
		clone.Weight = &w
	}
	if c.Params != nil {
		params := make(map[string]interface{}, len(c.Params))
		for k, v := range c.Params {
			params[k] = v
		}
		clone.Params = params
	}
	clone.FactResult = nil
	clone.ValueResult = nil
	return &clone
}

func cloneConditionSlice(src []*Condition) []*Condition {
	if src == nil {
		return nil
	}
	out := make([]*Condition, len(src))
	for i, c := range src {
		out[i] = c.Clone()
	}
	return out
}
