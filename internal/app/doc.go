// Package app contains the core application logic. It wires the module
// registry, the recipe catalog and the engine together, and owns the run
// lifecycle: health check server, report output and history journal. It is
// decoupled from any specific entrypoint like a CLI or server.
package app
