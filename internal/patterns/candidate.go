package patterns

import "sort"

// Candidate is one proposed value for a field. Lower Priority wins; among
// equal priorities the earliest Line wins.
type Candidate[T any] struct {
	Value    T
	Priority int
	Line     int
	Rule     string
}

// Candidates collects proposals for a single field.
type Candidates[T any] []Candidate[T]

// Add appends a proposal.
func (c *Candidates[T]) Add(value T, priority, line int, rule string) {
	*c = append(*c, Candidate[T]{Value: value, Priority: priority, Line: line, Rule: rule})
}

// Sorted returns a copy ordered by priority, then line, then insertion.
func (c Candidates[T]) Sorted() Candidates[T] {
	out := make(Candidates[T], len(c))
	copy(out, c)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].Line < out[j].Line
	})
	return out
}

// Best returns the winning proposal.
func (c Candidates[T]) Best() (Candidate[T], bool) {
	if len(c) == 0 {
		var zero Candidate[T]
		return zero, false
	}
	return c.Sorted()[0], true
}
