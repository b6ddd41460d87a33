package rulesengine

import "sync"

// Event is emitted when a rule's conditions are evaluated, carrying
// whatever Params the rule's configuration supplied (after fact-reference
// resolution, when ReplaceFactsInEventParams is set).
type Event struct {
	Type   string                 `json:"type"`
	Params map[string]interface{} `json:"params,omitempty"`
}

// EventConfig is the user-facing shape of a rule's event before it is
// attached to the rule.
type EventConfig struct {
	Type   string
	Params map[string]interface{}
}

// EventHandler is invoked by OnSuccess/OnFailure subscriptions.
type EventHandler func(result *RuleResult)

const (
	StatusReady    = "READY"
	StatusRunning  = "RUNNING"
	StatusFinished = "FINISHED"
)

// FactMap is a concurrency-safe registry of facts, shared by the Engine
// and copied into each run's Almanac.
type FactMap struct {
	mu    sync.RWMutex
	facts map[string]*Fact
}

func NewFactMap() *FactMap {
	return &FactMap{facts: make(map[string]*Fact)}
}

func (m *FactMap) Store(f *Fact) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.facts == nil {
		m.facts = make(map[string]*Fact)
	}
	m.facts[f.ID] = f
}

func (m *FactMap) Load(id string) (*Fact, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.facts[id]
	return f, ok
}

func (m *FactMap) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.facts, id)
}

// Range calls fn for every registered fact in an unspecified order,
// stopping early if fn returns false.
func (m *FactMap) Range(fn func(id string, f *Fact) bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for id, f := range m.facts {
		if !fn(id, f) {
			return
		}
	}
}

// ConditionMap is a concurrency-safe registry of named, reusable
// conditions addressable via a leaf's `condition` reference.
type ConditionMap struct {
	mu         sync.RWMutex
	conditions map[string]*Condition
}

func NewConditionMap() *ConditionMap {
	return &ConditionMap{conditions: make(map[string]*Condition)}
}

func (m *ConditionMap) Store(name string, c *Condition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conditions == nil {
		m.conditions = make(map[string]*Condition)
	}
	m.conditions[name] = c
}

func (m *ConditionMap) Load(name string) (*Condition, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.conditions[name]
	return c, ok
}

func (m *ConditionMap) Delete(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conditions, name)
}
