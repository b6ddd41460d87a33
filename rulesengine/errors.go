package rulesengine

import "fmt"

// UndefinedFactError is raised when a condition references a fact the
// almanac has no registration for and AllowUndefinedFacts is false.
type UndefinedFactError struct {
	Message string
	Code    string
}

func (e *UndefinedFactError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewUndefinedFactError(factID string) *UndefinedFactError {
	return &UndefinedFactError{
		Message: fmt.Sprintf("undefined fact: %s", factID),
		Code:    "UNDEFINED_FACT",
	}
}

// InvalidRuleError is raised at rule construction time: bad priority, no
// event type, a falsy (and non-zero) name.
type InvalidRuleError struct {
	Message string
	Code    string
}

func (e *InvalidRuleError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewInvalidRuleError(message, code string) *InvalidRuleError {
	return &InvalidRuleError{Message: message, Code: code}
}

func NewInvalidPriorityValueError() *InvalidRuleError {
	return NewInvalidRuleError("priority must be greater than zero", "INVALID_PRIORITY_VALUE")
}

func NewMissingEventTypeError() *InvalidRuleError {
	return NewInvalidRuleError("event type is required", "MISSING_EVENT_TYPE")
}

func NewMissingRuleNameError() *InvalidRuleError {
	return NewInvalidRuleError("rule name must be defined", "MISSING_RULE_NAME")
}

// InvalidConditionError is raised at condition construction time: no
// shape discriminator or more than one, a leaf missing fact/operator/value,
// an empty all/any, or a non-positive priority/weight. A JSON shape
// mismatch (not given an array, all/any given a single object) is rejected
// by encoding/json's own type error instead.
type InvalidConditionError struct {
	Message string
	Code    string
}

func (e *InvalidConditionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewInvalidConditionError(message string) *InvalidConditionError {
	return &InvalidConditionError{Message: message, Code: "INVALID_CONDITION"}
}

// UnknownOperatorError is raised when the registry cannot resolve the
// suffix segment of a (possibly decorator-chained) operator name.
type UnknownOperatorError struct {
	Name string
}

func (e *UnknownOperatorError) Error() string {
	return fmt.Sprintf("UNKNOWN_OPERATOR: unknown operator: %s", e.Name)
}

// UnknownDecoratorError is raised when a prefix segment of a chained
// operator name does not name a registered decorator.
type UnknownDecoratorError struct {
	Name string
}

func (e *UnknownDecoratorError) Error() string {
	return fmt.Sprintf("UNKNOWN_DECORATOR: unknown decorator: %s", e.Name)
}

// UnknownConditionError is raised when a `{condition: name}` reference
// does not resolve and AllowUndefinedConditions is false.
type UnknownConditionError struct {
	Name string
}

func (e *UnknownConditionError) Error() string {
	return fmt.Sprintf("UNKNOWN_CONDITION: no condition %q exists", e.Name)
}
