// Package dag builds the dependency graph of a recipe's modules and answers
// structural questions about it: roots, in-degrees, transitive dependents
// and a stable topological order.
//
// An edge runs from a dependency to its dependent, so "B wants A" becomes
// the edge A -> B. The graph carries no execution state; per-run state
// lives in node.Instance.
package dag
