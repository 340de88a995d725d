package protocol

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

// Validator checks inbound frames against the embedded JSON schemas.
type Validator struct {
	byType map[string]*jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	v := &Validator{byType: map[string]*jsonschema.Schema{}}
	for typ, name := range map[string]string{
		TypeHello:   "hello.schema.json",
		TypeObs:     "obs.schema.json",
		TypeControl: "control.schema.json",
	} {
		raw, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			return nil, err
		}
		s, err := jsonschema.CompileString("https://areastate.ai/schemas/"+name, string(raw))
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", name, err)
		}
		v.byType[typ] = s
	}
	return v, nil
}

// Validate checks one raw frame. Types without a schema pass.
func (v *Validator) Validate(typ string, raw []byte) error {
	s, ok := v.byType[strings.ToUpper(typ)]
	if !ok {
		return nil
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	return s.Validate(doc)
}
