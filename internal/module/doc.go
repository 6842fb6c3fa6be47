// Package module defines the contract every pipeline stage (collector,
// processor or exporter) implements so the engine can construct it with
// resolved arguments, feed it upstream artifacts and observe its outcome
// without knowing what the stage actually does.
//
// A module kind is one implementation of the Module interface plus a Factory
// that creates fresh instances. Instances are never reused across runs.
//
//	type Collector struct{ paths []string }
//
//	func (c *Collector) SetUp(ctx context.Context, args module.Args) error {
//	    return args.Decode("paths", &c.paths)
//	}
//
//	func (c *Collector) Process(ctx context.Context, in module.Inputs) (module.Artifacts, error) {
//	    return module.Artifacts{"files": c.paths}, nil
//	}
package module
