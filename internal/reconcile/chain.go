package reconcile

// Strategy supplies one indicator for a district, or reports it cannot.
type Strategy struct {
	Name  string
	Value func(district string) (float64, bool)
}

// Chain is the ordered fallback policy of one indicator. Strategies are tried
// in order until one yields a value.
type Chain struct {
	Attribute string
	// Primary names the strategy backed by the source table. Any other
	// strategy that resolves a value counts as a substitution.
	Primary    string
	Strategies []Strategy
}

// Resolve returns the first value found and the name of the strategy that
// produced it.
func (c Chain) Resolve(district string) (float64, string, bool) {
	for _, s := range c.Strategies {
		if v, ok := s.Value(district); ok {
			return v, s.Name, true
		}
	}
	return 0, "", false
}

// Substituted reports whether strategy is a fallback rather than the source table.
func (c Chain) Substituted(strategy string) bool {
	return strategy != c.Primary
}

// FromMap looks the district up in m.
func FromMap(name string, m map[string]float64) Strategy {
	return Strategy{Name: name, Value: func(d string) (float64, bool) {
		v, ok := m[d]
		return v, ok
	}}
}

// Constant yields v for every district.
func Constant(name string, v float64) Strategy {
	return Strategy{Name: name, Value: func(string) (float64, bool) { return v, true }}
}
