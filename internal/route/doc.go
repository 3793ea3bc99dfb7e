// Package route derives the set of navigable application routes from a
// file-based routing tree.
//
// A directory is a route when it contains a route-defining file (a page,
// layout or handler entry point). The route is the directory path relative
// to the route root, written with forward slashes. Grouping segments,
// directory names wrapped in parentheses such as "(auth)", organize code
// only and never appear in the URL, so they are removed.
package route
