// Package main provides the entry point for the linkaudit CLI.
//
// linkaudit audits the hyperlinks of a file-system-routed web project.
// It derives the set of served routes from the route directory, extracts
// every link from the project sources, and reports internal links that
// point to routes that do not exist.
//
// Usage:
//
//	linkaudit scan [project-root...]
//	linkaudit routes [project-root]
//	linkaudit compare [project-root]
//
// See --help for all available options.
package main

// main is the entry point for linkaudit.
func main() {
	Execute()
}
