package tone

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	schemavalidator "github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// PackFile is the YAML document that customises the built-in tones:
//
//	tones:
//	  - name: cynic
//	    template: |
//	      ... {{.Transcript}} ...
//	    intros: ["..."]
//
// Every field except name is optional; omitted fields keep the built-in
// value.
type PackFile struct {
	Tones []PackTone `json:"tones" yaml:"tones" jsonschema:"required,minItems=1"`
}

// PackTone overrides one tone.
type PackTone struct {
	Name         string   `json:"name" yaml:"name" jsonschema:"required,enum=mystic,enum=street,enum=cynic"`
	Template     string   `json:"template,omitempty" yaml:"template,omitempty" jsonschema:"minLength=1"`
	Intros       []string `json:"intros,omitempty" yaml:"intros,omitempty" jsonschema:"minItems=1"`
	NoActivity   []string `json:"no_activity,omitempty" yaml:"no_activity,omitempty" jsonschema:"minItems=1"`
	Confirmation string   `json:"confirmation,omitempty" yaml:"confirmation,omitempty" jsonschema:"minLength=1"`
}

const packSchemaURL = "resumo-tone-pack.json"

// PackSchema returns the JSON Schema of PackFile.
func PackSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		Anonymous:                  true,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
		AllowAdditionalProperties:  false,
	}
	return json.MarshalIndent(r.Reflect(&PackFile{}), "", "  ")
}

var compiledPackSchema = sync.OnceValues(func() (*schemavalidator.Schema, error) {
	doc, err := PackSchema()
	if err != nil {
		return nil, fmt.Errorf("reflect tone pack schema: %w", err)
	}
	c := schemavalidator.NewCompiler()
	if err := c.AddResource(packSchemaURL, bytes.NewReader(doc)); err != nil {
		return nil, fmt.Errorf("load tone pack schema: %w", err)
	}
	s, err := c.Compile(packSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile tone pack schema: %w", err)
	}
	return s, nil
})

// LoadPack validates data against the pack schema and decodes it.
func LoadPack(data []byte) (PackFile, error) {
	var pack PackFile

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return pack, fmt.Errorf("%w: tone pack: parse: %v", ErrConfiguration, err)
	}
	// Round-trip through JSON so the validator sees JSON types.
	raw, err := json.Marshal(doc)
	if err != nil {
		return pack, fmt.Errorf("%w: tone pack: %v", ErrConfiguration, err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return pack, fmt.Errorf("%w: tone pack: %v", ErrConfiguration, err)
	}

	schema, err := compiledPackSchema()
	if err != nil {
		return pack, err
	}
	if err := schema.Validate(generic); err != nil {
		return pack, fmt.Errorf("%w: tone pack: %v", ErrConfiguration, err)
	}

	if err := yaml.Unmarshal(data, &pack); err != nil {
		return pack, fmt.Errorf("%w: tone pack: decode: %v", ErrConfiguration, err)
	}
	return pack, nil
}

// LoadPackFile reads and validates the pack at path.
func LoadPackFile(path string) (PackFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PackFile{}, fmt.Errorf("read tone pack: %w", err)
	}
	return LoadPack(data)
}

// Build applies pack and then the per-tone template overrides to the
// built-in definitions and constructs every tone in canonical order.
// overrides is keyed by tone name.
func Build(pack PackFile, overrides map[string]string) ([]Tone, error) {
	defs := Defaults()
	index := make(map[string]*Definition, len(defs))
	for i := range defs {
		index[defs[i].Name] = &defs[i]
	}

	seen := make(map[string]bool, len(pack.Tones))
	for _, p := range pack.Tones {
		name := strings.ToLower(strings.TrimSpace(p.Name))
		def, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("%w: tone pack: unknown tone %q", ErrConfiguration, p.Name)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: tone pack: tone %q listed twice", ErrConfiguration, name)
		}
		seen[name] = true

		if p.Template != "" {
			def.Template = p.Template
		}
		if len(p.Intros) > 0 {
			def.Intros = p.Intros
		}
		if len(p.NoActivity) > 0 {
			def.NoActivity = p.NoActivity
		}
		if p.Confirmation != "" {
			def.Confirmation = p.Confirmation
		}
	}

	for name, tmpl := range overrides {
		def, ok := index[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("%w: template override for unknown tone %q", ErrConfiguration, name)
		}
		def.Template = tmpl
	}

	tones := make([]Tone, 0, len(defs))
	for _, def := range defs {
		t, err := New(def)
		if err != nil {
			return nil, err
		}
		tones = append(tones, t)
	}
	return tones, nil
}
