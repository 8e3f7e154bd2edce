package domain

import (
	"strings"
	"time"
)

type ClauseKind string

const (
	ClauseText          ClauseKind = "text"
	ClauseCategories    ClauseKind = "categories"
	ClausePaid          ClauseKind = "paid"
	ClauseDateFrom      ClauseKind = "date_from"
	ClauseDateTo        ClauseKind = "date_to"
	ClauseDateAfter     ClauseKind = "date_after"
	ClauseOnlyAvailable ClauseKind = "only_available"
	ClauseInitiators    ClauseKind = "initiators"
	ClauseStates        ClauseKind = "states"
)

// Clause is one named predicate. Which value field is set depends on Kind.
type Clause struct {
	Kind   ClauseKind
	Text   string
	IDs    []int64
	Bool   bool
	Time   time.Time
	States []EventState
}

// Criteria is an ordered conjunction of clauses. Builders return a copy,
// and empty inputs add nothing.
type Criteria struct {
	clauses []Clause
}

func NewCriteria() Criteria { return Criteria{} }

func (c Criteria) with(cl Clause) Criteria {
	out := make([]Clause, len(c.clauses), len(c.clauses)+1)
	copy(out, c.clauses)
	return Criteria{clauses: append(out, cl)}
}

// Text matches annotation or description, case-insensitively.
func (c Criteria) Text(s string) Criteria {
	s = strings.TrimSpace(s)
	if s == "" {
		return c
	}
	return c.with(Clause{Kind: ClauseText, Text: s})
}

func (c Criteria) Categories(ids []int64) Criteria {
	if len(ids) == 0 {
		return c
	}
	return c.with(Clause{Kind: ClauseCategories, IDs: append([]int64(nil), ids...)})
}

func (c Criteria) Paid(v *bool) Criteria {
	if v == nil {
		return c
	}
	return c.with(Clause{Kind: ClausePaid, Bool: *v})
}

// DateFrom and DateTo are inclusive bounds on the event date.
func (c Criteria) DateFrom(t *time.Time) Criteria {
	if t == nil {
		return c
	}
	return c.with(Clause{Kind: ClauseDateFrom, Time: t.UTC()})
}

func (c Criteria) DateTo(t *time.Time) Criteria {
	if t == nil {
		return c
	}
	return c.with(Clause{Kind: ClauseDateTo, Time: t.UTC()})
}

// DateAfter is a strict lower bound.
func (c Criteria) DateAfter(t time.Time) Criteria {
	return c.with(Clause{Kind: ClauseDateAfter, Time: t.UTC()})
}

func (c Criteria) OnlyAvailable(v bool) Criteria {
	if !v {
		return c
	}
	return c.with(Clause{Kind: ClauseOnlyAvailable, Bool: true})
}

func (c Criteria) Initiators(ids []int64) Criteria {
	if len(ids) == 0 {
		return c
	}
	return c.with(Clause{Kind: ClauseInitiators, IDs: append([]int64(nil), ids...)})
}

func (c Criteria) States(states ...EventState) Criteria {
	if len(states) == 0 {
		return c
	}
	return c.with(Clause{Kind: ClauseStates, States: append([]EventState(nil), states...)})
}

func (c Criteria) Clauses() []Clause {
	return append([]Clause(nil), c.clauses...)
}

func (c Criteria) Has(kind ClauseKind) bool {
	for _, cl := range c.clauses {
		if cl.Kind == kind {
			return true
		}
	}
	return false
}

func (c Criteria) Match(e *Event) bool {
	for _, cl := range c.clauses {
		if !cl.Match(e) {
			return false
		}
	}
	return true
}

func (cl Clause) Match(e *Event) bool {
	switch cl.Kind {
	case ClauseText:
		needle := strings.ToLower(cl.Text)
		return strings.Contains(strings.ToLower(e.Annotation), needle) ||
			strings.Contains(strings.ToLower(e.Description), needle)
	case ClauseCategories:
		return containsID(cl.IDs, e.CategoryID)
	case ClausePaid:
		return e.Paid == cl.Bool
	case ClauseDateFrom:
		return !e.EventDate.Before(cl.Time)
	case ClauseDateTo:
		return !e.EventDate.After(cl.Time)
	case ClauseDateAfter:
		return e.EventDate.After(cl.Time)
	case ClauseOnlyAvailable:
		return e.ParticipantLimit == 0 || e.ConfirmedRequests < e.ParticipantLimit
	case ClauseInitiators:
		return containsID(cl.IDs, e.InitiatorID)
	case ClauseStates:
		for _, s := range cl.States {
			if e.State == s {
				return true
			}
		}
		return false
	}
	return false
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

type Order int

const (
	OrderNatural Order = iota
	OrderEventDateAsc
)

// Page is offset based. From is an absolute offset, not a page index.
type Page struct {
	From int
	Size int
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

func (p Page) Normalize() Page {
	if p.From < 0 {
		p.From = 0
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}
