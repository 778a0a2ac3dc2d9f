// Package product loads the product specification a demo is generated from.
//
// The specification is a TOML document describing the product, the planned
// scene breakdown, judging weights, narration voice, and optional assets. It
// is validated once at load time with go-playground/validator struct tags;
// after that the pipeline treats it as read-only input for the content
// stages.
package product
