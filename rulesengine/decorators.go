package rulesengine

// DefaultDecorators returns the built-in operator decorators from the
// spec's §4.1 table. Each preserves the [0,1] scoring algebra so they
// compose freely with each other and with any custom operator.
func DefaultDecorators() []Decorator {
	return []Decorator{
		mustDecorator("everyFact", func(lhs, rhs Value, next func(Value, Value) float64) float64 {
			if !lhs.IsArray() {
				return 0
			}
			if len(lhs.Array) == 0 {
				return 1
			}
			var sum float64
			for _, elem := range lhs.Array {
				sum += next(elem, rhs)
			}
			return sum / float64(len(lhs.Array))
		}),
		mustDecorator("someFact", func(lhs, rhs Value, next func(Value, Value) float64) float64 {
			if !lhs.IsArray() {
				return 0
			}
			if len(lhs.Array) == 0 {
				return 0
			}
			max := 0.0
			for i, elem := range lhs.Array {
				s := next(elem, rhs)
				if i == 0 || s > max {
					max = s
				}
			}
			return max
		}),
		mustDecorator("everyValue", func(lhs, rhs Value, next func(Value, Value) float64) float64 {
			if !rhs.IsArray() {
				return 0
			}
			if len(rhs.Array) == 0 {
				return 1
			}
			var sum float64
			for _, elem := range rhs.Array {
				sum += next(lhs, elem)
			}
			return sum / float64(len(rhs.Array))
		}),
		mustDecorator("someValue", func(lhs, rhs Value, next func(Value, Value) float64) float64 {
			if !rhs.IsArray() {
				return 0
			}
			if len(rhs.Array) == 0 {
				return 0
			}
			max := 0.0
			for i, elem := range rhs.Array {
				s := next(lhs, elem)
				if i == 0 || s > max {
					max = s
				}
			}
			return max
		}),
		mustDecorator("swap", func(lhs, rhs Value, next func(Value, Value) float64) float64 {
			return next(rhs, lhs)
		}),
		mustDecorator("not", func(lhs, rhs Value, next func(Value, Value) float64) float64 {
			if next(lhs, rhs) < 1 {
				return 1
			}
			return 0
		}),
	}
}

func mustDecorator(name string, wrap func(lhs, rhs Value, next func(Value, Value) float64) float64) Decorator {
	dec, err := NewDecorator(name, wrap)
	if err != nil {
		panic(err)
	}
	return *dec
}
