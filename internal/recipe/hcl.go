package recipe

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// hclFile is the root of an HCL recipe file. One file may hold several recipes.
type hclFile struct {
	Recipes []*hclRecipe `hcl:"recipe,block"`
}

type hclRecipe struct {
	Name             string       `hcl:"name,label"`
	ShortDescription string       `hcl:"short_description,optional"`
	Description      []string     `hcl:"description,optional"`
	Params           []*hclParam  `hcl:"param,block"`
	Modules          []*hclModule `hcl:"module,block"`
}

type hclParam struct {
	Key      string         `hcl:"key,label"`
	Help     string         `hcl:"help,optional"`
	Optional bool           `hcl:"optional,optional"`
	Default  hcl.Expression `hcl:"default,optional"`
}

type hclModule struct {
	Name        string         `hcl:"name,label"`
	RuntimeName string         `hcl:"runtime_name,optional"`
	Wants       []string       `hcl:"wants,optional"`
	Args        hcl.Expression `hcl:"args,optional"`
}

// ParseHCL decodes every recipe block in an HCL document.
//
//	recipe "local_grep" {
//	  short_description = "Greps local files."
//	  param "paths" { help = "Paths to collect." }
//	  param "keywords" {
//	    optional = true
//	    default  = "password"
//	  }
//	  module "LocalFilesystemCollector" {
//	    args = { paths = "@paths" }
//	  }
//	}
func ParseHCL(data []byte, filename string) ([]*Recipe, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidRecipe, filename, diags)
	}

	var root hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidRecipe, filename, diags)
	}

	recipes := make([]*Recipe, 0, len(root.Recipes))
	for _, block := range root.Recipes {
		r, err := translateHCL(block, filename)
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, r)
	}
	return recipes, nil
}

func translateHCL(block *hclRecipe, filename string) (*Recipe, error) {
	r := &Recipe{
		Name:             block.Name,
		Description:      block.Description,
		ShortDescription: block.ShortDescription,
		Source:           filename,
	}

	for _, p := range block.Params {
		def, err := staticValue(p.Default)
		if err != nil {
			return nil, invalidf(filename, "param %q default: %v", p.Key, err)
		}
		key := p.Key
		if p.Optional {
			key = "--" + key
		}
		decl, err := newParameter(key, p.Help, def)
		if err != nil {
			return nil, invalidf(filename, "param %q: %v", p.Key, err)
		}
		r.Args = append(r.Args, decl)
	}

	for _, m := range block.Modules {
		spec := &ModuleSpec{
			Name:        m.Name,
			RuntimeName: m.RuntimeName,
			Wants:       append([]string(nil), m.Wants...),
			Args:        make(map[string]Arg),
		}
		args, err := staticValue(m.Args)
		if err != nil {
			return nil, invalidf(filename, "module %q args: %v", m.Name, err)
		}
		if !args.IsNull() {
			if !args.Type().IsObjectType() && !args.Type().IsMapType() {
				return nil, invalidf(filename, "module %q args must be an object, got %s", m.Name, args.Type().FriendlyName())
			}
			for it := args.ElementIterator(); it.Next(); {
				k, v := it.Element()
				spec.Args[k.AsString()] = ArgFromValue(v)
			}
		}
		r.Modules = append(r.Modules, spec)
	}

	if err := validate(r); err != nil {
		return nil, err
	}
	return r, nil
}

// staticValue evaluates an expression that may not reference anything.
func staticValue(expr hcl.Expression) (cty.Value, error) {
	if expr == nil {
		return cty.NullVal(cty.DynamicPseudoType), nil
	}
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return cty.NilVal, diags
	}
	return v, nil
}
