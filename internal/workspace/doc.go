// Package workspace manages scratch directories and moves directory trees
// into place.
//
// A Manager owns one scratch directory (the plugin loader's cache/plugins/tmp)
// that is wiped on Reset and Wipe; CreateSubdir hands out fresh per-request
// directories below it.
package workspace
