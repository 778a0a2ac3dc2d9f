// Package config loads, normalizes, and validates demoforge configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours environment fallbacks for generator credentials such
// as OPENAI_API_KEY and ELEVENLABS_API_KEY. Credentials are not required at
// load time; the doctor command and the run preflight report missing keys for
// the stages that need them.
package config
