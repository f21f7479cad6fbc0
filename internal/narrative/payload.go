package narrative

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"
)

// maxNormalizeDepth bounds the walk over values json cannot encode. Cycles
// are cut earlier by tracking the pointers, maps and slices on the current
// path.
const maxNormalizeDepth = 32

const cyclePlaceholder = "<cycle>"

// BuildPayload turns an application into the JSON text sent to the model.
//
// Strings, byte slices and json.RawMessage that already hold valid JSON pass
// through unchanged; other text is wrapped as {"raw_application": text}.
// Any other value is encoded with sorted map keys, and parts that cannot be
// encoded are replaced by a string form. The result is always valid,
// non-empty JSON.
func BuildPayload(application interface{}) string {
	switch v := application.(type) {
	case string:
		return passOrWrap(v)
	case []byte:
		return passOrWrap(string(v))
	case json.RawMessage:
		return passOrWrap(string(v))
	}

	out, err := encode(normalize(application))
	if err != nil {
		return wrapRaw(fmt.Sprintf("<%T>", application))
	}
	return out
}

func passOrWrap(text string) string {
	if json.Valid([]byte(text)) {
		return text
	}
	return wrapRaw(text)
}

func wrapRaw(text string) string {
	out, err := encode(map[string]string{"raw_application": text})
	if err != nil {
		// unreachable: a map of strings always encodes
		return `{"raw_application": ""}`
	}
	return out
}

func encode(v interface{}) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// normalize returns a value json can always encode. Encodable values are
// round-tripped into generic maps so every object ends up with sorted keys.
func normalize(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	n := &normalizer{seen: make(map[visit]struct{})}
	return n.value(reflect.ValueOf(v), 0)
}

type visit struct {
	ptr uintptr
	typ reflect.Type
	len int
}

type normalizer struct {
	seen map[visit]struct{}
}

func (n *normalizer) value(rv reflect.Value, depth int) interface{} {
	if !rv.IsValid() {
		return nil
	}
	if rv.CanInterface() {
		if generic, ok := roundTrip(rv.Interface()); ok {
			return generic
		}
	}
	if depth >= maxNormalizeDepth {
		return fmt.Sprintf("<%s>", rv.Type())
	}

	switch rv.Kind() {
	case reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return n.value(rv.Elem(), depth+1)

	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		return n.enter(visit{rv.Pointer(), rv.Type(), 0}, func() interface{} {
			return n.value(rv.Elem(), depth+1)
		})

	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		return n.enter(visit{rv.Pointer(), rv.Type(), 0}, func() interface{} {
			out := make(map[string]interface{}, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				out[mapKey(iter.Key())] = n.value(iter.Value(), depth+1)
			}
			return out
		})

	case reflect.Slice:
		if rv.IsNil() {
			return nil
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return base64.StdEncoding.EncodeToString(rv.Bytes())
		}
		return n.enter(visit{rv.Pointer(), rv.Type(), rv.Len()}, func() interface{} {
			return n.elements(rv, depth)
		})

	case reflect.Array:
		return n.elements(rv, depth)

	case reflect.Struct:
		return n.structValue(rv, depth)

	case reflect.Bool:
		return rv.Bool()
	case reflect.String:
		return rv.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Sprintf("%v", f)
		}
		return f
	}

	// chan, func, complex and unsafe pointers print without recursing.
	return fmt.Sprintf("%v", rv)
}

// enter runs walk unless v is already on the current path.
func (n *normalizer) enter(v visit, walk func() interface{}) interface{} {
	if _, ok := n.seen[v]; ok {
		return cyclePlaceholder
	}
	n.seen[v] = struct{}{}
	defer delete(n.seen, v)
	return walk()
}

func (n *normalizer) elements(rv reflect.Value, depth int) []interface{} {
	out := make([]interface{}, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = n.value(rv.Index(i), depth+1)
	}
	return out
}

func (n *normalizer) structValue(rv reflect.Value, depth int) interface{} {
	fields := structFields(rv.Type())
	out := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		fv, ok := fieldByIndex(rv, f.index)
		if !ok {
			continue
		}
		if f.omitEmpty && isEmptyValue(fv) {
			continue
		}
		out[f.name] = n.value(fv, depth+1)
	}
	return out
}

func roundTrip(v interface{}) (interface{}, bool) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var generic interface{}
	if err := dec.Decode(&generic); err != nil {
		return nil, false
	}
	return generic, true
}

type structField struct {
	name      string
	index     []int
	tagged    bool
	omitEmpty bool
}

// structFields lists the fields encoding/json emits for t. Fields of
// untagged embedded structs are promoted into the parent, a shallower field
// hides deeper ones of the same name, and a tie at one depth is broken by a
// json tag or else drops the name.
func structFields(t reflect.Type) []structField {
	type level struct {
		typ   reflect.Type
		index []int
	}

	var fields []structField
	claimed := make(map[string]bool)
	visited := make(map[reflect.Type]bool)
	next := []level{{typ: t}}

	for len(next) > 0 {
		current := next
		next = nil
		found := make(map[string][]structField)

		for _, l := range current {
			if visited[l.typ] {
				continue
			}
			visited[l.typ] = true

			for i := 0; i < l.typ.NumField(); i++ {
				sf := l.typ.Field(i)
				ft := sf.Type
				if ft.Kind() == reflect.Pointer {
					ft = ft.Elem()
				}
				if sf.Anonymous {
					if !sf.IsExported() && ft.Kind() != reflect.Struct {
						continue
					}
				} else if !sf.IsExported() {
					continue
				}

				tag := sf.Tag.Get("json")
				if tag == "-" {
					continue
				}
				name, opts, _ := strings.Cut(tag, ",")
				index := append(append([]int(nil), l.index...), i)

				if name == "" && sf.Anonymous && ft.Kind() == reflect.Struct {
					next = append(next, level{typ: ft, index: index})
					continue
				}

				f := structField{name: name, index: index, tagged: name != ""}
				if name == "" {
					f.name = sf.Name
				}
				for _, opt := range strings.Split(opts, ",") {
					if opt == "omitempty" {
						f.omitEmpty = true
					}
				}
				found[f.name] = append(found[f.name], f)
			}
		}

		for name, candidates := range found {
			if claimed[name] {
				continue
			}
			claimed[name] = true
			if f, ok := dominantField(candidates); ok {
				fields = append(fields, f)
			}
		}
	}
	return fields
}

func dominantField(candidates []structField) (structField, bool) {
	if len(candidates) == 1 {
		return candidates[0], true
	}
	var winner structField
	tagged := 0
	for _, f := range candidates {
		if f.tagged {
			winner = f
			tagged++
		}
	}
	return winner, tagged == 1
}

// fieldByIndex follows index through embedded pointers; a nil pointer on
// the way hides the field.
func fieldByIndex(rv reflect.Value, index []int) (reflect.Value, bool) {
	for i, x := range index {
		if i > 0 && rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				return reflect.Value{}, false
			}
			rv = rv.Elem()
		}
		rv = rv.Field(x)
	}
	return rv, true
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	}
	return false
}

func mapKey(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return k.String()
	}
	return fmt.Sprintf("%v", k)
}
