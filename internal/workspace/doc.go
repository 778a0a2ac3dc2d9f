// Package workspace manages the product run roots under paths.run_root.
//
// Each product slug owns one directory holding its artifact store. List
// reports their size and last activity; CleanStale removes roots nobody has
// touched within a retention window, skipping any root a running pipeline
// holds locked.
package workspace
