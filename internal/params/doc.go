// Package params resolves a recipe's declared parameters against the values
// a caller supplied and substitutes "@key" placeholders in module arguments.
//
// Everything here is a pure function of its inputs. A Recipe is never
// modified, so the same recipe can be prepared any number of times.
package params
