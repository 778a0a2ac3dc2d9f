// Package workflow runs the demo pipeline.
//
// The Orchestrator walks the five stages in their fixed order. For each stage
// it decides whether to skip (skip flag, resume point, or fresh cached
// outputs), resolves declared inputs from the artifact store, and only then
// invokes the stage. A missing required input fails the stage before any
// generator is called. A failed recording stage suspends the run so it can be
// resumed once the operator supplies a recording; any other failure aborts it.
//
// There is no journal: what has completed is read back from the artifact
// store on every invocation.
package workflow
