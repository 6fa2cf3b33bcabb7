// Package operations runs the report pipeline.
//
// A run is an ordered list of steps held in a Registry: fetch, clean,
// enrich, aggregate, write and, when a CSV directory is configured,
// export_csv. Each step declares the step it depends on and reads its
// input from the shared OperationState. The Manager executes the steps
// in dependency order, stops at the first failure and marks the steps
// that did not get to run as skipped.
//
// Every run carries a run ID in its context, which the logger adds to each
// record, and is traced with one span for the run and one per step. When
// the run ends the Manager returns a Summary describing what was fetched,
// kept, enriched and written, even if the run failed part way.
//
// Example usage:
//
//	deps, err := operations.NewDeps(cfg, telemetry, logger)
//	if err != nil {
//		return err
//	}
//	manager, err := operations.NewManager(cfg, deps, logger)
//	if err != nil {
//		return err
//	}
//	summary, err := manager.Run(ctx)
package operations
