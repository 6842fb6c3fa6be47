// Package recipe holds the format-agnostic recipe model and the loaders that
// translate manifest files into it.
//
// A recipe is a named pipeline template: an ordered list of modules wired by
// "wants" edges, plus the parameter declarations whose values are substituted
// into module arguments through "@key" placeholders. Two source formats are
// understood, both mapping onto the same model:
//
//   - JSON manifests, the canonical wire format (.json)
//   - HCL manifests, convenient for hand-written recipes (.hcl)
//
// A loaded *Recipe is immutable; nothing in the engine writes to it.
package recipe
