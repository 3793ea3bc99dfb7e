// Package source enumerates and reads the files of a project that may
// contain links.
//
// Files are selected by extension and excluded when their relative path
// contains one of the excluded directory names (dependency, build and VCS
// directories). Content is decoded as UTF-8; a UTF-8 or UTF-16 byte order
// mark is honoured. Files that cannot be read or decoded are reported as
// diagnostics and never abort the run.
package source
