package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nimbit-scoreengine/ruleweight/rulesengine"
)

func main() {
	ruleRaw := []byte(`{
  "name": "fouledOut",
  "conditions": {
    "any": [
      {
        "all": [
          { "fact": "gameDuration", "operator": "equal", "value": 40 },
          { "fact": "personalFoulCount", "operator": "greaterThanInclusive", "value": 5 }
        ]
      },
      {
        "all": [
          { "fact": "gameDuration", "operator": "equal", "value": 48, "weight": 2 },
          { "not": { "fact": "personalFoulCount", "operator": "lessThan", "value": 6 }, "weight": 3 }
        ]
      }
    ]
  },
  "event": {
    "type": "fouledOut",
    "params": {
      "firstName": { "fact": "user", "path": "lastName" },
      "message": "Player has fouled out!"
    }
  }
}`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var ruleConfig rulesengine.RuleConfig
	if err := json.Unmarshal(ruleRaw, &ruleConfig); err != nil {
		panic(err)
	}
	rule, err := rulesengine.NewRule(&ruleConfig)
	if err != nil {
		panic(err)
	}

	engine := rulesengine.NewEngine([]*rulesengine.Rule{rule}, &rulesengine.RuleEngineOptions{
		AllowUndefinedFacts:       true,
		ReplaceFactsInEventParams: true,
	})

	// personalFoulLimit is a dynamic fact: computed once per run and
	// memoized thereafter, even if referenced from multiple conditions.
	personalFoulLimit, err := rulesengine.NewDynamicFact("personalFoulLimit", func(params map[string]interface{}, almanac *rulesengine.Almanac) (rulesengine.Value, error) {
		return rulesengine.NumberValue(50), nil
	}, nil)
	if err != nil {
		panic(err)
	}
	engine.AddFact(personalFoulLimit)

	_ = engine.Subscribe("fouledOut", func(result *rulesengine.RuleResult) {
		fmt.Printf("fouledOut event: %+v\n", result.Event.Params)
	})

	facts := map[string]rulesengine.Value{
		"personalFoulCount": rulesengine.NumberValue(6),
		"gameDuration":      rulesengine.NumberValue(40),
		"user": rulesengine.ObjectValue(map[string]rulesengine.Value{
			"lastName": rulesengine.StringValue("Jones"),
		}),
	}

	result, err := engine.Run(ctx, facts)
	if err != nil {
		panic(err)
	}
	fmt.Printf("score summary: %d passed, %d failed\n", len(result.Results), len(result.FailureResults))
	for _, r := range result.Results {
		fmt.Printf("rule %q scored %.3f\n", r.Name, r.Score)
	}

	// The validation engine answers a different question: with only a
	// partial fact set, which rules could still pass, and what would the
	// missing facts need to be?
	validator := rulesengine.NewValidationEngine(engine)
	classification, err := validator.FindSatisfiedRules(map[string]rulesengine.Value{
		"gameDuration": rulesengine.NumberValue(40),
	}, "")
	if err != nil {
		panic(err)
	}
	fmt.Printf("classification summary: %+v\n", classification.Summary)
}
