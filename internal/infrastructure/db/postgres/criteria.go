package postgres

import (
	"fmt"
	"strings"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
	"github.com/lib/pq"
)

// whereClause translates criteria into a WHERE fragment with positional
// args starting at $1. An empty criteria yields "".
func whereClause(c domain.Criteria) (string, []any) {
	var (
		parts []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	for _, cl := range c.Clauses() {
		switch cl.Kind {
		case domain.ClauseText:
			p := next("%" + escapeLike(cl.Text) + "%")
			parts = append(parts, fmt.Sprintf("(annotation ILIKE %s OR description ILIKE %s)", p, p))
		case domain.ClauseCategories:
			parts = append(parts, "category_id = ANY("+next(pq.Array(cl.IDs))+")")
		case domain.ClausePaid:
			parts = append(parts, "paid = "+next(cl.Bool))
		case domain.ClauseDateFrom:
			parts = append(parts, "event_date >= "+next(cl.Time))
		case domain.ClauseDateTo:
			parts = append(parts, "event_date <= "+next(cl.Time))
		case domain.ClauseDateAfter:
			parts = append(parts, "event_date > "+next(cl.Time))
		case domain.ClauseOnlyAvailable:
			if cl.Bool {
				parts = append(parts, "(participant_limit = 0 OR confirmed_requests < participant_limit)")
			}
		case domain.ClauseInitiators:
			parts = append(parts, "initiator_id = ANY("+next(pq.Array(cl.IDs))+")")
		case domain.ClauseStates:
			states := make([]string, 0, len(cl.States))
			for _, s := range cl.States {
				states = append(states, string(s))
			}
			parts = append(parts, "state = ANY("+next(pq.Array(states))+")")
		}
	}

	if len(parts) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(parts, " AND "), args
}

func buildFindQuery(c domain.Criteria, p domain.Page, o domain.Order) (string, []any) {
	where, args := whereClause(c)

	order := "ORDER BY id ASC"
	if o == domain.OrderEventDateAsc {
		order = "ORDER BY event_date ASC, id ASC"
	}

	args = append(args, p.Size, p.From)
	q := fmt.Sprintf("SELECT %s FROM events %s %s LIMIT $%d OFFSET $%d",
		eventColumns, where, order, len(args)-1, len(args))
	return q, args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
