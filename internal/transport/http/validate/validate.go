package validate

import (
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
)

// DateTimeLayout is the wire format of query and body timestamps.
const DateTimeLayout = "2006-01-02 15:04:05"

var validate = newValidator()

func newValidator() *validator.Validate {
	vv := validator.New(validator.WithRequiredStructEnabled())
	vv.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return vv
}

// DecodeJSON decodes the body into dst and validates its tags.
func DecodeJSON(r *http.Request, dst any) error {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		return domain.ErrValidationMeta("invalid json body", map[string]string{
			"body": "malformed JSON or invalid fields",
		})
	}
	return Struct(dst)
}

func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return domain.ErrValidation(err.Error())
	}
	meta := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		meta[fe.Field()] = fieldMessage(fe)
	}
	return domain.ErrValidationMeta("invalid field", meta)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be >= %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be <= %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be > %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return "is invalid"
	}
}

// PathID parses a positive int64 chi URL parameter.
func PathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrValidationMeta("invalid path param", map[string]string{name: "must be a positive integer"})
	}
	return id, nil
}

// Query reads typed parameters and remembers the first error.
type Query struct {
	values url.Values
	err    error
}

func NewQuery(r *http.Request) *Query { return &Query{values: r.URL.Query()} }

func (q *Query) Err() error { return q.err }

func (q *Query) fail(name, msg string) {
	if q.err == nil {
		q.err = domain.ErrValidationMeta("invalid query param", map[string]string{name: msg})
	}
}

func (q *Query) String(name string) string { return strings.TrimSpace(q.values.Get(name)) }

func (q *Query) Int(name string, def int) int {
	s := q.String(name)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		q.fail(name, "must be an integer")
		return def
	}
	return n
}

func (q *Query) Int64(name string) int64 {
	s := q.String(name)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		q.fail(name, "must be a positive integer")
		return 0
	}
	return n
}

// Int64s accepts repeated and comma separated values.
func (q *Query) Int64s(name string) []int64 {
	var out []int64
	for _, raw := range q.values[name] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				q.fail(name, "must be a list of integers")
				return nil
			}
			out = append(out, n)
		}
	}
	return out
}

func (q *Query) Strings(name string) []string {
	var out []string
	for _, raw := range q.values[name] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (q *Query) Bool(name string) *bool {
	s := q.String(name)
	if s == "" {
		return nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		q.fail(name, "must be a boolean")
		return nil
	}
	return &b
}

func (q *Query) Time(name string) *time.Time {
	s := q.String(name)
	if s == "" {
		return nil
	}
	t, err := time.ParseInLocation(DateTimeLayout, s, time.UTC)
	if err != nil {
		q.fail(name, "must match "+DateTimeLayout)
		return nil
	}
	return &t
}
