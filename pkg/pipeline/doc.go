// Package pipeline runs a fixed set of numbered stages against one base path.
//
// Stages are declared once in a Registry. Each stage lists the artifacts it requires and
// produces; the registry turns those declarations into a dependency graph and rejects a stage
// that consumes something no earlier stage produces. A Request selects any subset of stages,
// in any order and with duplicates; the Pipeline always executes the selection in ascending
// stage order.
//
// The pipeline trusts the caller: when a selected stage depends on a stage that was not
// selected, it logs a warning and runs the stage anyway, on the assumption that the artifacts
// are already on disk from an earlier run. The CheckInputs option turns that into a fatal
// check.
//
// External programs are run through the StageContext. Each stage declares what a non-zero
// exit means for it: most tools report problems on their own output and the run continues,
// a few are fatal. Launch failures, timeouts and cancellation are always fatal. The first
// fatal error halts the run; nothing is rolled back.
package pipeline
