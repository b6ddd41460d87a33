package rulesengine

import (
	"fmt"
	"sort"
)

// Evaluator walks a rule's (deep-copied) condition tree against an
// Almanac and a Registry, annotating every node with its Score/Result and,
// for leaves, FactResult/ValueResult. Unlike a boolean engine, no branch
// ever short-circuits: every child contributes to its parent's weighted
// score, so all of them are evaluated regardless of siblings' outcomes.
type Evaluator struct {
	almanac                  *Almanac
	operators                *Registry
	conditions                *ConditionMap
	allowUndefinedConditions bool
	facts                     *FactMap
}

func NewEvaluator(almanac *Almanac, operators *Registry, conditions *ConditionMap, facts *FactMap, allowUndefinedConditions bool) *Evaluator {
	return &Evaluator{
		almanac:                  almanac,
		operators:                operators,
		conditions:               conditions,
		allowUndefinedConditions: allowUndefinedConditions,
		facts:                    facts,
	}
}

// Evaluate scores cond in place and returns its score.
func (e *Evaluator) Evaluate(cond *Condition) (float64, error) {
	switch {
	case cond.IsReference():
		return e.evaluateReference(cond)
	case cond.All != nil:
		return e.evaluateAll(cond)
	case cond.Any != nil:
		return e.evaluateAny(cond)
	case cond.Not != nil:
		return e.evaluateNot(cond)
	case cond.IsLeaf():
		return e.evaluateLeaf(cond)
	default:
		return 0, NewInvalidConditionError("condition has no evaluable shape")
	}
}

func (e *Evaluator) evaluateReference(cond *Condition) (float64, error) {
	named, ok := e.conditions.Load(cond.ConditionRef)
	if !ok {
		if e.allowUndefinedConditions {
			cond.Score = 0
			cond.Result = false
			return 0, nil
		}
		return 0, &UnknownConditionError{Name: cond.ConditionRef}
	}

	projected := named.Clone()
	score, err := e.Evaluate(projected)
	if err != nil {
		return 0, err
	}

	cond.All = projected.All
	cond.Any = projected.Any
	cond.Not = projected.Not
	cond.Fact = projected.Fact
	cond.Operator = projected.Operator
	cond.Value = projected.Value
	cond.Path = projected.Path
	cond.Params = projected.Params
	cond.Score = score
	cond.Result = projected.Result
	cond.FactResult = projected.FactResult
	cond.ValueResult = projected.ValueResult
	return score, nil
}

// evaluateAll scores the weighted mean of its children: Σ(weight_i *
// score_i) / Σ(weight_i). An empty list is vacuously true (score 1), per
// the same convention the teacher's boolean `all` used for a zero-length
// conjunction.
func (e *Evaluator) evaluateAll(cond *Condition) (float64, error) {
	if len(cond.All) == 0 {
		cond.Score = 1
		cond.Result = true
		return 1, nil
	}

	scores, err := e.evaluateChildren(cond.All)
	if err != nil {
		return 0, err
	}

	var weightedSum, totalWeight float64
	for i, child := range cond.All {
		w := float64(child.GetWeight())
		weightedSum += w * scores[i]
		totalWeight += w
	}

	score := 1.0
	if totalWeight > 0 {
		score = weightedSum / totalWeight
	}
	score = clampScore(score)
	cond.Score = score
	cond.Result = score >= 1
	return score, nil
}

// evaluateAny scores its best-performing child: pick i* maximizing
// weight_i * score_i, and take that child's own score (not the weighted
// product) as the node's score. Ties keep the first maximizer. An empty
// list is vacuously false (score 0).
func (e *Evaluator) evaluateAny(cond *Condition) (float64, error) {
	if len(cond.Any) == 0 {
		cond.Score = 0
		cond.Result = false
		return 0, nil
	}

	scores, err := e.evaluateChildren(cond.Any)
	if err != nil {
		return 0, err
	}

	bestIdx := 0
	bestWeighted := -1.0
	for i, child := range cond.Any {
		w := float64(child.GetWeight())
		weighted := w * scores[i]
		if weighted > bestWeighted {
			bestWeighted = weighted
			bestIdx = i
		}
	}

	score := clampScore(scores[bestIdx])
	cond.Score = score
	cond.Result = score >= 1
	return score, nil
}

// evaluateNot is a binary inversion, not a continuous one: a fully
// satisfied child (score 1) flips to 0, anything else flips to 1. Partial
// scores don't have a natural complement in this algebra, so `not` always
// resolves to a hard pass/fail.
func (e *Evaluator) evaluateNot(cond *Condition) (float64, error) {
	childScore, err := e.Evaluate(cond.Not)
	if err != nil {
		return 0, err
	}
	score := 0.0
	if childScore < 1 {
		score = 1
	}
	cond.Score = score
	cond.Result = score >= 1
	return score, nil
}

// evaluateChildren runs every child and returns its score indexed by its
// original position in the slice. Children are evaluated in descending
// priority order (stable on ties) so side effects like cache fills and
// dynamic fact computation happen in priority order, but the returned
// scores are position-addressed, so reordering never changes the parent's
// aggregate: callers index scores[i] against children[i], not against
// evaluation order.
func (e *Evaluator) evaluateChildren(children []*Condition) ([]float64, error) {
	order := make([]int, len(children))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return children[order[a]].GetPriority(e.facts) > children[order[b]].GetPriority(e.facts)
	})

	scores := make([]float64, len(children))
	for _, i := range order {
		s, err := e.Evaluate(children[i])
		if err != nil {
			return nil, fmt.Errorf("condition %d: %w", i, err)
		}
		scores[i] = s
	}
	return scores, nil
}

func (e *Evaluator) evaluateLeaf(cond *Condition) (float64, error) {
	lhs, err := e.almanac.FactValue(cond.Fact, cond.Params, cond.Path)
	if err != nil {
		return 0, err
	}

	rhs, err := e.almanac.GetValue(cond.Value)
	if err != nil {
		return 0, err
	}

	evaluate, err := e.operators.Get(cond.Operator)
	if err != nil {
		return 0, err
	}

	score := clampScore(evaluate(lhs, rhs))
	cond.Score = score
	cond.Result = score >= 1
	cond.FactResult = &lhs
	cond.ValueResult = &rhs
	return score, nil
}
