package link

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Result is a decoded GraphQL response body.
type Result struct {
	Data       json.RawMessage `json:"data,omitempty"`
	Errors     []GraphQLError  `json:"errors,omitempty"`
	Extensions map[string]any  `json:"extensions,omitempty"`
}

// Decode unmarshals Data into v.
func (r *Result) Decode(v any) error {
	if r == nil || len(r.Data) == 0 || string(r.Data) == "null" {
		return fmt.Errorf("link: result has no data")
	}
	return json.Unmarshal(r.Data, v)
}

// Clone returns a deep copy of r.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	out := &Result{
		Data:       slices.Clone(r.Data),
		Extensions: cloneMap(r.Extensions),
	}
	if r.Errors != nil {
		out.Errors = make([]GraphQLError, len(r.Errors))
		for i, e := range r.Errors {
			out.Errors[i] = GraphQLError{
				Message:    e.Message,
				Locations:  slices.Clone(e.Locations),
				Path:       cloneSlice(e.Path),
				Extensions: cloneMap(e.Extensions),
			}
		}
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneAny(v)
	}
	return out
}

func cloneSlice(s []any) []any {
	if s == nil {
		return nil
	}
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = cloneAny(v)
	}
	return out
}

func cloneAny(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		return cloneSlice(t)
	default:
		return v
	}
}

type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// GraphQLError is an application level error reported by the endpoint.
type GraphQLError struct {
	Message    string         `json:"message"`
	Locations  []Location     `json:"locations,omitempty"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e GraphQLError) Error() string {
	if len(e.Path) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (path %s)", e.Message, e.PathString())
}

// Code returns extensions.code, or "" when absent.
func (e GraphQLError) Code() string {
	c, _ := e.Extensions["code"].(string)
	return c
}

// PathString joins the path with dots, e.g. "teams.0.members".
func (e GraphQLError) PathString() string {
	parts := make([]string, len(e.Path))
	for i, p := range e.Path {
		switch v := p.(type) {
		case string:
			parts[i] = v
		case int:
			parts[i] = strconv.Itoa(v)
		default:
			parts[i] = fmt.Sprint(v)
		}
	}
	return strings.Join(parts, ".")
}

// UnmarshalJSON keeps list indexes in Path as ints.
func (e *GraphQLError) UnmarshalJSON(b []byte) error {
	type plain GraphQLError
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	for i, seg := range p.Path {
		if f, ok := seg.(float64); ok && f == float64(int(f)) {
			p.Path[i] = int(f)
		}
	}
	*e = GraphQLError(p)
	return nil
}
