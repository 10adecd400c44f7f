package tui

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/charmbracelet/huh"
	"github.com/shopspring/decimal"
)

var decimalType = reflect.TypeOf(decimal.Decimal{})

// binding ties one huh field to a struct field through a string proxy.
type binding struct {
	name  string
	proxy *string
	flag  *bool
	set   func(string) error
}

// FieldSet is a huh form generated from the json and validate tags of a record.
type FieldSet struct {
	Fields   []huh.Field
	bindings []binding
}

// BuildFields generates inputs for the exported fields of the struct behind ptr.
// Ids, read-only (validate:"-") and skipped json names get no input. Fields with
// a oneof rule become selects, bools become confirms.
func BuildFields(ptr any, skip ...string) (*FieldSet, error) {
	rv := reflect.ValueOf(ptr)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("want pointer to struct, got %T", ptr)
	}
	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipped[s] = true
	}

	fs := &FieldSet{}
	rv = rv.Elem()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := jsonName(sf)
		rule := sf.Tag.Get("validate")
		if name == "" || name == "id" || rule == "-" || skipped[name] {
			continue
		}
		field, b, err := buildField(rv.Field(i), name, rule)
		if err != nil {
			return nil, err
		}
		fs.Fields = append(fs.Fields, field)
		fs.bindings = append(fs.bindings, b)
	}
	return fs, nil
}

// Apply writes the proxies back into the record.
func (fs *FieldSet) Apply() error {
	for _, b := range fs.bindings {
		if b.proxy == nil {
			continue
		}
		if err := b.set(*b.proxy); err != nil {
			return fmt.Errorf("%s: %w", b.name, err)
		}
	}
	return nil
}

// Group returns the fields as one huh group.
func (fs *FieldSet) Group() *huh.Group {
	return huh.NewGroup(fs.Fields...)
}

func buildField(fv reflect.Value, name, rule string) (huh.Field, binding, error) {
	title := Humanize(name)
	b := binding{name: name}

	if fv.Kind() == reflect.Bool {
		flag := fv.Addr().Interface().(*bool)
		b.flag = flag
		return huh.NewConfirm().Title(title).Value(flag), b, nil
	}

	proxy := new(string)
	b.proxy = proxy
	switch {
	case fv.Type() == decimalType:
		d := fv.Interface().(decimal.Decimal)
		if !d.IsZero() {
			*proxy = d.String()
		}
		b.set = func(s string) error {
			s = strings.TrimSpace(s)
			if s == "" {
				fv.Set(reflect.ValueOf(decimal.Zero))
				return nil
			}
			v, err := decimal.NewFromString(s)
			if err != nil {
				return err
			}
			fv.Set(reflect.ValueOf(v))
			return nil
		}
	case fv.Kind() == reflect.Int:
		if fv.Int() != 0 {
			*proxy = strconv.FormatInt(fv.Int(), 10)
		}
		b.set = func(s string) error {
			s = strings.TrimSpace(s)
			if s == "" {
				fv.SetInt(0)
				return nil
			}
			v, err := strconv.Atoi(s)
			if err != nil {
				return err
			}
			fv.SetInt(int64(v))
			return nil
		}
	case fv.Kind() == reflect.String:
		*proxy = fv.String()
		b.set = func(s string) error {
			fv.SetString(strings.TrimSpace(s))
			return nil
		}
	default:
		return nil, b, fmt.Errorf("unsupported field %s of type %s", name, fv.Type())
	}

	if options := oneOf(rule); len(options) > 0 {
		opts := huh.NewOptions(options...)
		if !strings.Contains(rule, "required") {
			opts = append([]huh.Option[string]{huh.NewOption("(none)", "")}, opts...)
		}
		return huh.NewSelect[string]().Title(title).Options(opts...).Value(proxy), b, nil
	}

	input := huh.NewInput().Title(title).Value(proxy).Validate(checkerFor(fv.Type()))
	if d := describe(fv, rule); d != "" {
		input = input.Description(d)
	}
	if name == "password" {
		input = input.EchoMode(huh.EchoModePassword)
	}
	return input, b, nil
}

// checkerFor returns the per-keystroke parse check of a field type.
func checkerFor(t reflect.Type) func(string) error {
	switch {
	case t == decimalType:
		return func(s string) error {
			if strings.TrimSpace(s) == "" {
				return nil
			}
			if _, err := decimal.NewFromString(strings.TrimSpace(s)); err != nil {
				return fmt.Errorf("must be a number")
			}
			return nil
		}
	case t.Kind() == reflect.Int:
		return func(s string) error {
			if strings.TrimSpace(s) == "" {
				return nil
			}
			if _, err := strconv.Atoi(strings.TrimSpace(s)); err != nil {
				return fmt.Errorf("must be a whole number")
			}
			return nil
		}
	default:
		return func(string) error { return nil }
	}
}

func describe(fv reflect.Value, rule string) string {
	switch {
	case strings.Contains(rule, "datetime="):
		return "YYYY-MM-DD"
	case fv.Type() == decimalType:
		return "amount"
	}
	return ""
}

func jsonName(sf reflect.StructField) string {
	tag := sf.Tag.Get("json")
	if tag == "-" {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return sf.Name
	}
	return name
}

func oneOf(rule string) []string {
	for _, part := range strings.Split(rule, ",") {
		if v, ok := strings.CutPrefix(part, "oneof="); ok {
			return strings.Fields(v)
		}
	}
	return nil
}

// Humanize turns a json field name into a label: "accountNumber" -> "Account number".
func Humanize(name string) string {
	var sb strings.Builder
	for i, r := range name {
		switch {
		case i == 0:
			sb.WriteRune(unicode.ToUpper(r))
		case unicode.IsUpper(r):
			sb.WriteByte(' ')
			sb.WriteRune(unicode.ToLower(r))
		default:
			sb.WriteRune(r)
		}
	}
	out := sb.String()
	if strings.HasSuffix(out, " id") {
		out = strings.TrimSuffix(out, " id") + " ID"
	}
	return out
}
