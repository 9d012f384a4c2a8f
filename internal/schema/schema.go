// Package schema is the structural-contract enforcement layer. Every record
// must pass its declared descriptor before the ledger or journal commits it.
//
// Validation is pure and total: it never mutates the record and never
// panics on malformed input, it only returns a ValidationResult listing
// every violated field so a caller can report all problems at once.
package schema

import (
	"fmt"
	"regexp"
	"sort"
)

// Record is the candidate shape handed to the gate. Typed records convert
// themselves to a Record at the call site; the gate itself never does
// runtime type introspection beyond the declared field checks.
type Record map[string]any

// FieldError describes one violated field.
type FieldError struct {
	Field   string
	Rule    string // required, type, pattern, bounds, enum
	Message string
}

func (e FieldError) String() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationResult is transient and never persisted.
type ValidationResult struct {
	Schema string
	Errors []FieldError
}

// OK reports whether the record passed.
func (r ValidationResult) OK() bool { return len(r.Errors) == 0 }

// Details returns one formatted line per violated field, in field order.
func (r ValidationResult) Details() []string {
	out := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		out = append(out, e.String())
	}
	return out
}

type fieldType int

const (
	typeString fieldType = iota
	typeInt
	typeFloat
	typeStringList
	typeTime
)

// Field declares the contract for a single field.
type Field struct {
	Name     string
	Type     fieldType
	Required bool
	Pattern  *regexp.Regexp // string fields only
	Enum     []string       // string fields only; closed set
	Min, Max float64        // numeric fields; inclusive, used when Bounded
	Bounded  bool
	MinLen   int // string fields; 0 means no minimum
	MaxLen   int // string fields; 0 means no maximum
}

// Descriptor declares the full contract for one record kind.
type Descriptor struct {
	Kind   string
	Fields []Field
}

// Validate checks record against the descriptor registered for kind.
// An unknown kind fails with a single pseudo-field error rather than
// panicking; the gate is total.
func Validate(kind string, record Record) ValidationResult {
	desc, ok := descriptors[kind]
	if !ok {
		return ValidationResult{
			Schema: kind,
			Errors: []FieldError{{Field: "_kind", Rule: "enum", Message: fmt.Sprintf("unknown record kind %q", kind)}},
		}
	}
	return desc.validate(record)
}

// Kinds returns the registered record kinds in sorted order.
func Kinds() []string {
	out := make([]string, 0, len(descriptors))
	for k := range descriptors {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (d Descriptor) validate(record Record) ValidationResult {
	res := ValidationResult{Schema: d.Kind}
	for _, f := range d.Fields {
		val, present := record[f.Name]
		if !present || val == nil {
			if f.Required {
				res.Errors = append(res.Errors, FieldError{Field: f.Name, Rule: "required", Message: "field is required"})
			}
			continue
		}
		if errs := f.check(val); len(errs) > 0 {
			res.Errors = append(res.Errors, errs...)
		}
	}
	return res
}

func (f Field) check(val any) []FieldError {
	switch f.Type {
	case typeString:
		s, ok := val.(string)
		if !ok {
			return []FieldError{f.typeError("string", val)}
		}
		return f.checkString(s)
	case typeInt:
		n, ok := asInt(val)
		if !ok {
			return []FieldError{f.typeError("integer", val)}
		}
		return f.checkBounds(float64(n))
	case typeFloat:
		x, ok := asFloat(val)
		if !ok {
			return []FieldError{f.typeError("number", val)}
		}
		return f.checkBounds(x)
	case typeStringList:
		items, ok := val.([]string)
		if !ok {
			return []FieldError{f.typeError("string list", val)}
		}
		var errs []FieldError
		for _, item := range items {
			if len(f.Enum) > 0 && !inEnum(f.Enum, item) {
				errs = append(errs, FieldError{Field: f.Name, Rule: "enum",
					Message: fmt.Sprintf("%q is not one of %v", item, f.Enum)})
			}
		}
		return errs
	case typeTime:
		// Timestamps arrive pre-parsed; presence is all the gate checks.
		return nil
	}
	return nil
}

func (f Field) checkString(s string) []FieldError {
	var errs []FieldError
	if f.Required && s == "" {
		return []FieldError{{Field: f.Name, Rule: "required", Message: "field is required"}}
	}
	if f.MinLen > 0 && len(s) < f.MinLen {
		errs = append(errs, FieldError{Field: f.Name, Rule: "bounds",
			Message: fmt.Sprintf("length %d is below minimum %d", len(s), f.MinLen)})
	}
	if f.MaxLen > 0 && len(s) > f.MaxLen {
		errs = append(errs, FieldError{Field: f.Name, Rule: "bounds",
			Message: fmt.Sprintf("length %d exceeds maximum %d", len(s), f.MaxLen)})
	}
	if f.Pattern != nil && !f.Pattern.MatchString(s) {
		errs = append(errs, FieldError{Field: f.Name, Rule: "pattern",
			Message: fmt.Sprintf("%q does not match %s", s, f.Pattern)})
	}
	if len(f.Enum) > 0 && !inEnum(f.Enum, s) {
		errs = append(errs, FieldError{Field: f.Name, Rule: "enum",
			Message: fmt.Sprintf("%q is not one of %v", s, f.Enum)})
	}
	return errs
}

func (f Field) checkBounds(x float64) []FieldError {
	if !f.Bounded {
		return nil
	}
	if x < f.Min || x > f.Max {
		return []FieldError{{Field: f.Name, Rule: "bounds",
			Message: fmt.Sprintf("%v is outside [%v, %v]", x, f.Min, f.Max)}}
	}
	return nil
}

func (f Field) typeError(want string, got any) FieldError {
	return FieldError{Field: f.Name, Rule: "type", Message: fmt.Sprintf("expected %s, got %T", want, got)}
}

func asInt(val any) (int, bool) {
	switch n := val.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	}
	return 0, false
}

func asFloat(val any) (float64, bool) {
	switch x := val.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}

func inEnum(enum []string, s string) bool {
	for _, e := range enum {
		if e == s {
			return true
		}
	}
	return false
}
