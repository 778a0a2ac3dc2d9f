// Package stage defines the contract shared by every pipeline stage: the
// ordered stage names, artifact kinds, declared input selectors, the Handler
// interface, per-attempt results, and the bounded retry policy stages apply to
// their external generators.
package stage
