// Package engine turns a recipe name and user parameters into a running
// pipeline.
//
// Preparation and execution are separate steps. Prepare resolves the
// parameters, builds the dependency graph, instantiates every module and
// calls SetUp on each of them. Every schema error surfaces there, before any
// module is Running. Execute hands the prepared plan to the scheduler.
package engine
