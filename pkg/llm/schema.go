package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	invopop "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/synaptica-ai/clinextract/pkg/clinical"
)

// FieldSetSchema reflects the canonical record into a JSON Schema with the
// prompt descriptions attached to each property.
func FieldSetSchema() *invopop.Schema {
	r := &invopop.Reflector{
		AllowAdditionalProperties:  false,
		ExpandedStruct:             true,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
		Anonymous:                  true,
	}
	schema := r.Reflect(&clinical.FieldSet{})
	schema.Title = "Clinical field set"
	schema.Description = "Fields extracted from an emergency-medicine transcript. Unmentioned fields are empty strings."

	for _, fp := range fieldPrompts {
		if prop, ok := schema.Properties.Get(fp.Name); ok {
			prop.Description = fp.Description
		}
	}
	return schema
}

// payloadSchema accepts any scalar per canonical key, since models often
// answer numbers for vitals. Objects, arrays and unknown keys are rejected.
func payloadSchema() *invopop.Schema {
	base := FieldSetSchema()
	props := invopop.NewProperties()
	for pair := base.Properties.Oldest(); pair != nil; pair = pair.Next() {
		props.Set(pair.Key, &invopop.Schema{
			Description: pair.Value.Description,
			AnyOf: []*invopop.Schema{
				{Type: "string"},
				{Type: "number"},
				{Type: "boolean"},
				{Type: "null"},
			},
		})
	}
	return &invopop.Schema{
		Version:              invopop.Version,
		Type:                 "object",
		Properties:           props,
		AdditionalProperties: invopop.FalseSchema,
	}
}

var (
	compiledOnce   sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func payloadValidator() (*jsonschema.Schema, error) {
	compiledOnce.Do(func() {
		raw, err := json.Marshal(payloadSchema())
		if err != nil {
			compileErr = err
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("fieldset.json", bytes.NewReader(raw)); err != nil {
			compileErr = err
			return
		}
		compiledSchema, compileErr = compiler.Compile("fieldset.json")
	})
	return compiledSchema, compileErr
}

// Decode parses a JSON object into a FieldSet. Schema findings are not
// fatal: offending keys are dropped and reported as "<field>: <reason>".
func Decode(object string) (clinical.FieldSet, []string, error) {
	var payload interface{}
	if err := json.Unmarshal([]byte(object), &payload); err != nil {
		return clinical.FieldSet{}, nil, fmt.Errorf("parse JSON object: %w", err)
	}
	doc, ok := payload.(map[string]interface{})
	if !ok {
		return clinical.FieldSet{}, nil, errors.New("response JSON is not an object")
	}

	var findings []string
	validator, err := payloadValidator()
	if err != nil {
		return clinical.FieldSet{}, nil, fmt.Errorf("compile field set schema: %w", err)
	}
	if err := validator.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			findings = schemaFindings(ve)
		} else {
			findings = []string{"schema: " + err.Error()}
		}
	}

	scalars := make(map[string]interface{}, len(doc))
	for key, value := range doc {
		switch value.(type) {
		case map[string]interface{}, []interface{}:
			continue
		}
		if clinical.IsField(key) {
			scalars[key] = value
		}
	}
	fs, _ := clinical.FieldSetFromMap(scalars)
	return fs, findings, nil
}

func schemaFindings(ve *jsonschema.ValidationError) []string {
	var out []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		location := strings.TrimPrefix(e.InstanceLocation, "/")
		if location == "" {
			location = "schema"
		} else if i := strings.Index(location, "/"); i >= 0 {
			location = location[:i]
		}
		switch {
		case strings.HasSuffix(e.KeywordLocation, "/anyOf"):
			out = append(out, location+": expected a scalar value")
		case len(e.Causes) == 0:
			out = append(out, location+": "+e.Message)
		default:
			for _, cause := range e.Causes {
				walk(cause)
			}
		}
	}
	walk(ve)

	sort.Strings(out)
	unique := out[:0]
	for i, finding := range out {
		if i == 0 || finding != out[i-1] {
			unique = append(unique, finding)
		}
	}
	return unique
}
