package rulesengine

import "reflect"

// IsObjectLike reports whether value decodes to a map, as opposed to a
// scalar or array — used when deciding whether a path projection is
// meaningful for a given fact value.
func IsObjectLike(value interface{}) bool {
	return value != nil && reflect.ValueOf(value).Kind() == reflect.Map
}
