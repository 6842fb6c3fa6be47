// Package registry maps the module names used in recipes (for example
// "LocalFilesystemCollector") to the Go factories that build them.
//
// Module packages contribute their kinds through a Registrant, so the set
// of available modules is decided once at startup by whoever assembles the
// application, and is read-only afterwards.
package registry
