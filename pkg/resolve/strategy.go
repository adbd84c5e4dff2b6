// Package resolve derives canonical patient, therapist, session time and size
// attributes from a file record and the auxiliary lookups that happen to be loaded.
//
// Every attribute is produced by an ordered Chain of strategies. Each strategy
// either yields a value or declines; the first value wins. Resolvers never fail:
// when every strategy declines a fixed sentinel is returned instead.
package resolve

// Strategy is one ranked source for a resolved value.
type Strategy[In, Out any] struct {
	Name    string
	Resolve func(In) (Out, bool)
}

// Chain evaluates strategies in priority order.
type Chain[In, Out any] []Strategy[In, Out]

// Resolve returns the first value produced by the chain and the name of the
// strategy that produced it. ok is false when every strategy declined.
func (c Chain[In, Out]) Resolve(in In) (out Out, source string, ok bool) {
	for _, s := range c {
		if v, found := s.Resolve(in); found {
			return v, s.Name, true
		}
	}
	return out, "", false
}

// ResolveOr returns the chain's value or fallback when every strategy declined.
func (c Chain[In, Out]) ResolveOr(in In, fallback Out) Out {
	if v, _, ok := c.Resolve(in); ok {
		return v
	}
	return fallback
}
