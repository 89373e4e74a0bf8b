package dataverse

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// fieldPattern is the shape of a Dataverse logical or navigation name.
var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Expr is a $filter expression.
type Expr interface {
	render() (string, error)
}

type eqExpr struct {
	field string
	value any
}

// Eq compares field to value. Strings are quoted with embedded single
// quotes doubled; bools, integers and GUIDs are rendered bare.
func Eq(field string, value any) Expr {
	return eqExpr{field: field, value: value}
}

func (e eqExpr) render() (string, error) {
	if !fieldPattern.MatchString(e.field) {
		return "", fmt.Errorf("invalid field name %q", e.field)
	}
	lit, err := literal(e.value)
	if err != nil {
		return "", fmt.Errorf("field %s: %w", e.field, err)
	}
	return e.field + " eq " + lit, nil
}

type andExpr []Expr

// And joins expressions with "and". Nil entries are skipped, so optional
// filters can be passed unconditionally.
func And(exprs ...Expr) Expr {
	return andExpr(exprs)
}

func (a andExpr) render() (string, error) {
	parts := make([]string, 0, len(a))
	for _, e := range a {
		if e == nil {
			continue
		}
		s, err := e.render()
		if err != nil {
			return "", err
		}
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " and "), nil
}

func literal(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "null", nil
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'", nil
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uuid.UUID:
		return x.String(), nil
	default:
		return "", fmt.Errorf("unsupported literal type %T", v)
	}
}

// Expand requests a navigation property, optionally with its own $select.
type Expand struct {
	Property string
	Select   []string
}

func (e Expand) render() (string, error) {
	if !fieldPattern.MatchString(e.Property) {
		return "", fmt.Errorf("invalid navigation property %q", e.Property)
	}
	if len(e.Select) == 0 {
		return e.Property, nil
	}
	sel, err := joinFields(e.Select)
	if err != nil {
		return "", err
	}
	return e.Property + "($select=" + sel + ")", nil
}

// Query holds OData system query options for a collection request.
// The zero value requests everything.
type Query struct {
	Filter Expr
	Select []string
	Expand []Expand
	Top    int
}

// Encode renders the query as an escaped query string, options in the
// fixed order $select, $expand, $filter, $top. It fails on invalid field
// names or unsupported literal types.
func (q *Query) Encode() (string, error) {
	if q == nil {
		return "", nil
	}

	var parts []string
	add := func(key, val string) {
		parts = append(parts, key+"="+escape(val))
	}

	if len(q.Select) > 0 {
		sel, err := joinFields(q.Select)
		if err != nil {
			return "", err
		}
		add("$select", sel)
	}

	if len(q.Expand) > 0 {
		items := make([]string, 0, len(q.Expand))
		for _, e := range q.Expand {
			s, err := e.render()
			if err != nil {
				return "", err
			}
			items = append(items, s)
		}
		add("$expand", strings.Join(items, ","))
	}

	if q.Filter != nil {
		f, err := q.Filter.render()
		if err != nil {
			return "", err
		}
		if f != "" {
			add("$filter", f)
		}
	}

	if q.Top < 0 {
		return "", fmt.Errorf("invalid $top %d", q.Top)
	}
	if q.Top > 0 {
		add("$top", strconv.Itoa(q.Top))
	}

	return strings.Join(parts, "&"), nil
}

func joinFields(fields []string) (string, error) {
	for _, f := range fields {
		if !fieldPattern.MatchString(f) {
			return "", fmt.Errorf("invalid field name %q", f)
		}
	}
	return strings.Join(fields, ","), nil
}

// escape percent-encodes a query value, using %20 for spaces; OData
// services do not all treat '+' as a space.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
