package assertion

import "errors"

// ErrEmptyQueue is returned by PopFront on an empty queue.
var ErrEmptyQueue = errors.New("assertion queue is empty")

// Domain tells which events a container's assertions are evaluated on.
type Domain int

const (
	// DomainReport assertions are evaluated once per emitted report.
	DomainReport Domain = iota + 1
	// DomainCycle assertions are evaluated at the end of a cycle.
	DomainCycle
)

// String returns the domain name used in diagnostics.
func (d Domain) String() string {
	switch d {
	case DomainReport:
		return "report"
	case DomainCycle:
		return "cycle"
	default:
		return "unknown"
	}
}

// Queue holds one-shot assertions consumed in push order.
type Queue struct {
	domain Domain
	ctx    Context
	items  []Assertion
}

// NewQueue creates an empty queue whose members are bound to ctx.
func NewQueue(domain Domain, ctx Context) *Queue {
	return &Queue{
		domain: domain,
		ctx:    ctx,
		items:  make([]Assertion, 0, 16),
	}
}

// Domain returns the queue's domain.
func (q *Queue) Domain() Domain {
	return q.domain
}

// PushBack binds and appends assertions in order.
func (q *Queue) PushBack(as ...Assertion) {
	for _, a := range as {
		a.Bind(q.ctx)
		q.items = append(q.items, a)
	}
}

// PopFront removes and returns the earliest pushed assertion.
func (q *Queue) PopFront() (Assertion, error) {
	if len(q.items) == 0 {
		return nil, ErrEmptyQueue
	}

	a := q.items[0]
	q.items[0] = nil // release for GC

	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	return a, nil
}

// Len returns the number of queued assertions.
func (q *Queue) Len() int {
	return len(q.items)
}

// Empty reports whether nothing is queued.
func (q *Queue) Empty() bool {
	return len(q.items) == 0
}

// Clear drops all queued assertions.
func (q *Queue) Clear() {
	for i := range q.items {
		q.items[i] = nil
	}
	q.items = q.items[:0]
}

// All returns the queued assertions in order without removing them. The
// slice must not be modified.
func (q *Queue) All() []Assertion {
	return q.items
}

// Set holds permanent assertions, evaluated on every event.
type Set struct {
	domain Domain
	ctx    Context
	items  []Assertion
}

// NewSet creates an empty set whose members are bound to ctx.
func NewSet(domain Domain, ctx Context) *Set {
	return &Set{domain: domain, ctx: ctx}
}

// Domain returns the set's domain.
func (s *Set) Domain() Domain {
	return s.domain
}

// Add binds and inserts assertions. Duplicates are kept.
func (s *Set) Add(as ...Assertion) {
	for _, a := range as {
		a.Bind(s.ctx)
		s.items = append(s.items, a)
	}
}

// Len returns the number of members.
func (s *Set) Len() int {
	return len(s.items)
}

// Empty reports whether the set has no members.
func (s *Set) Empty() bool {
	return len(s.items) == 0
}

// Clear removes all members.
func (s *Set) Clear() {
	s.items = nil
}

// All returns the members. The slice must not be modified.
func (s *Set) All() []Assertion {
	return s.items
}
