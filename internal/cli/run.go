package cli

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/recipegrid/internal/recipe"
	"github.com/spf13/cobra"
	"github.com/zclconf/go-cty/cty"
)

func (c *command) runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run RECIPE [PARAMETERS...] [--OPTION value]",
		Short: "Run a recipe",
		Long: `Run a recipe. Required parameters are positional, optional parameters are
flags. See "recipegrid run RECIPE --help" for the parameters of a recipe.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.ready(); err != nil {
				return err
			}
			if len(args) == 0 {
				return cmd.Help()
			}
			return usageError(fmt.Errorf("unknown recipe %q; run 'recipegrid list' to see the available recipes", args[0]))
		},
	}
	if c.app != nil {
		for _, r := range c.app.Catalog().All() {
			cmd.AddCommand(c.recipeCmd(r))
		}
	}
	return cmd
}

// recipeCmd exposes one recipe. Required parameters map to positional
// arguments in declaration order and optional parameters to flags; a
// boolean default makes a boolean flag. Only flags given on the command line
// are supplied so that unset ones resolve to the recipe's defaults.
func (c *command) recipeCmd(r *recipe.Recipe) *cobra.Command {
	required := r.RequiredParameters()
	optional := r.OptionalParameters()

	long := r.DescriptionText()
	if len(required) > 0 {
		var b strings.Builder
		b.WriteString(long)
		b.WriteString("\n\nParameters:\n")
		for _, p := range required {
			fmt.Fprintf(&b, "  %-20s %s\n", strings.ToUpper(p.Key), p.Help)
		}
		long = b.String()
	}

	cmd := &cobra.Command{
		Use:   usageLine(r),
		Short: summary(r),
		Long:  long,
		Args:  usageArgs(cobra.ExactArgs(len(required))),
		RunE: func(cmd *cobra.Command, args []string) error {
			supplied := make(map[string]cty.Value, len(args)+len(optional))
			for i, p := range required {
				supplied[p.Key] = cty.StringVal(args[i])
			}
			flags := cmd.Flags()
			for _, p := range optional {
				if !flags.Changed(p.Key) {
					continue
				}
				if p.IsBool() {
					v, err := flags.GetBool(p.Key)
					if err != nil {
						return usageError(err)
					}
					supplied[p.Key] = cty.BoolVal(v)
					continue
				}
				v, err := flags.GetString(p.Key)
				if err != nil {
					return usageError(err)
				}
				supplied[p.Key] = cty.StringVal(v)
			}

			res, err := c.app.Run(cmd.Context(), r.Name, supplied)
			if res == nil {
				return err
			}
			return verdictError(res, err)
		},
	}

	for _, p := range optional {
		if p.IsBool() {
			cmd.Flags().Bool(p.Key, p.Default.True(), p.Help)
		} else {
			cmd.Flags().String(p.Key, defaultString(p.Default), p.Help)
		}
	}
	return cmd
}

// usageLine renders the invocation of r, e.g. "local_grep PATHS [--keywords]".
func usageLine(r *recipe.Recipe) string {
	parts := []string{r.Name}
	for _, p := range r.RequiredParameters() {
		parts = append(parts, strings.ToUpper(p.Key))
	}
	for _, p := range r.OptionalParameters() {
		parts = append(parts, "[--"+p.Key+"]")
	}
	return strings.Join(parts, " ")
}
