package llmtool

import (
	"fmt"
	"reflect"
	"strings"
)

// Struct tags read by FieldsFromStruct:
//
//	json:"name"          field name
//	prompt_desc:"..."    description shown to the model
//	prompt_type:"..."    overrides the rendered type
//	prompt:"optional"    marks a field optional ("-" skips it)
const (
	tagDesc   = "prompt_desc"
	tagType   = "prompt_type"
	tagPrompt = "prompt"
)

// FieldsFromStruct builds prompt fields from a Go struct so the response type
// and the prompt schema cannot drift apart.
func FieldsFromStruct(v any) ([]PromptField, error) {
	if v == nil {
		return nil, fmt.Errorf("llmtool: struct is nil")
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("llmtool: expected struct, got %s", t.Kind())
	}
	fields := make([]PromptField, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		opts := tagParts(f.Tag.Get(tagPrompt))
		if opts["-"] {
			continue
		}
		name := strings.Split(f.Tag.Get("json"), ",")[0]
		if name == "-" {
			continue
		}
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		typ := strings.TrimSpace(f.Tag.Get(tagType))
		if typ == "" {
			typ = typeString(f.Type)
		}
		fields = append(fields, PromptField{
			Name:        name,
			Type:        typ,
			Required:    !opts["optional"],
			Description: strings.TrimSpace(f.Tag.Get(tagDesc)),
		})
	}
	return fields, nil
}

// MustFieldsFromStruct panics on error; useful for prompt spec literals.
func MustFieldsFromStruct(v any) []PromptField {
	fields, err := FieldsFromStruct(v)
	if err != nil {
		panic(err)
	}
	return fields
}

func tagParts(tag string) map[string]bool {
	out := map[string]bool{}
	for _, part := range strings.Split(tag, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out[p] = true
		}
	}
	return out
}

func typeString(t reflect.Type) string {
	nullable := false
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
		nullable = true
	}
	var s string
	switch t.Kind() {
	case reflect.String:
		s = "string"
	case reflect.Bool:
		s = "bool"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		s = "int"
	case reflect.Float32, reflect.Float64:
		s = "number"
	case reflect.Slice, reflect.Array:
		s = "[]" + typeString(t.Elem())
	case reflect.Struct:
		s = "object"
	default:
		s = t.Kind().String()
	}
	if nullable {
		s += "|null"
	}
	return s
}
