package recipe

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

type jsonRecipe struct {
	Name             string            `json:"name"`
	Description      json.RawMessage   `json:"description"`
	ShortDescription string            `json:"short_description"`
	Modules          []jsonModule      `json:"modules"`
	Args             []json.RawMessage `json:"args"`
}

type jsonModule struct {
	Wants       []string                   `json:"wants"`
	Name        string                     `json:"name"`
	RuntimeName string                     `json:"runtime_name"`
	Args        map[string]json.RawMessage `json:"args"`
}

// ParseJSON decodes a recipe manifest in the JSON wire format.
func ParseJSON(data []byte, filename string) (*Recipe, error) {
	var raw jsonRecipe
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		return nil, invalidf(filename, "decoding JSON: %v", err)
	}

	description, err := decodeDescription(raw.Description)
	if err != nil {
		return nil, invalidf(filename, "description: %v", err)
	}

	r := &Recipe{
		Name:             raw.Name,
		Description:      description,
		ShortDescription: raw.ShortDescription,
		Source:           filename,
	}

	for i, entry := range raw.Args {
		decl, err := decodeParameter(entry)
		if err != nil {
			return nil, invalidf(filename, "args[%d]: %v", i, err)
		}
		r.Args = append(r.Args, decl)
	}

	for i, m := range raw.Modules {
		spec := &ModuleSpec{
			Name:        m.Name,
			RuntimeName: m.RuntimeName,
			Wants:       append([]string(nil), m.Wants...),
			Args:        make(map[string]Arg, len(m.Args)),
		}
		for key, rawVal := range m.Args {
			v, err := decodeLiteral(rawVal)
			if err != nil {
				return nil, invalidf(filename, "modules[%d].args.%s: %v", i, key, err)
			}
			spec.Args[key] = ArgFromValue(v)
		}
		r.Modules = append(r.Modules, spec)
	}

	if err := validate(r); err != nil {
		return nil, err
	}
	return r, nil
}

// decodeDescription accepts either a list of lines or a single string.
func decodeDescription(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var lines []string
	if err := json.Unmarshal(raw, &lines); err == nil {
		return lines, nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, err
	}
	return []string{single}, nil
}

// decodeParameter reads one [key, help, default] tuple.
func decodeParameter(raw json.RawMessage) (*ParameterDeclaration, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return nil, err
	}
	if len(parts) < 1 || len(parts) > 3 {
		return nil, errTuple(len(parts))
	}

	var key, help string
	if err := json.Unmarshal(parts[0], &key); err != nil {
		return nil, err
	}
	if len(parts) > 1 {
		if err := json.Unmarshal(parts[1], &help); err != nil {
			return nil, err
		}
	}

	def := cty.NullVal(cty.DynamicPseudoType)
	if len(parts) > 2 {
		v, err := decodeLiteral(parts[2])
		if err != nil {
			return nil, err
		}
		def = v
	}
	return newParameter(key, help, def)
}

func newParameter(key, help string, def cty.Value) (*ParameterDeclaration, error) {
	decl := &ParameterDeclaration{Key: key, Help: help, Default: def}
	if strings.HasPrefix(key, "--") {
		decl.Optional = true
		decl.Key = strings.TrimPrefix(key, "--")
	}
	if decl.Key == "" {
		return nil, errEmptyKey
	}
	if !ValidKey(decl.Key) {
		return nil, errKeySyntax(decl.Key)
	}
	if !decl.Optional && !def.IsNull() {
		return nil, errRequiredDefault(decl.Key)
	}
	return decl, nil
}

// decodeLiteral converts an arbitrary JSON value into a typed cty value.
func decodeLiteral(raw json.RawMessage) (cty.Value, error) {
	ty, err := ctyjson.ImpliedType(raw)
	if err != nil {
		return cty.NilVal, err
	}
	return ctyjson.Unmarshal(raw, ty)
}
