// Package logs reads the demoforge log file for the `logs` command.
//
// Tail returns the last lines of the file, optionally narrowed to one run id,
// and Follow keeps polling for appended lines until its context ends.
package logs
