package model

import (
	"encoding/json"
	"sort"
	"strconv"
)

// Category is the classification bucket assigned to a link occurrence.
// Every occurrence belongs to exactly one category.
type Category string

const (
	// CategoryEmpty covers empty targets and placeholders such as "#".
	CategoryEmpty Category = "empty"

	// CategoryExternal covers absolute http(s) URLs.
	CategoryExternal Category = "external"

	// CategoryInternal covers links reconciled against the route table.
	CategoryInternal Category = "internal"

	// CategoryRelativeOrSpecial covers relative paths, mailto: and tel: links.
	// These are treated as valid and never reconciled.
	CategoryRelativeOrSpecial Category = "relative_or_special"
)

// Categories lists every category in report order.
var Categories = []Category{
	CategoryInternal,
	CategoryExternal,
	CategoryEmpty,
	CategoryRelativeOrSpecial,
}

// String returns the category identifier.
func (c Category) String() string {
	return string(c)
}

// LinkOccurrence is one raw link target extracted from a source file.
type LinkOccurrence struct {
	// Link is the target exactly as written in the source.
	Link string `json:"link"`

	// File is the path of the source file relative to the project root,
	// always using forward slashes.
	File string `json:"file"`

	// Line is the 1-based line number where the match starts.
	Line int `json:"line"`
}

// RouteSet is the set of navigable routes of an application.
// The zero value is an empty set ready to use.
type RouteSet struct {
	routes map[string]struct{}
}

// NewRouteSet creates a RouteSet containing the given routes.
func NewRouteSet(routes ...string) RouteSet {
	var rs RouteSet
	for _, r := range routes {
		rs.Add(r)
	}
	return rs
}

// Add inserts a route. Adding an existing route is a no-op.
func (rs *RouteSet) Add(route string) {
	if rs.routes == nil {
		rs.routes = make(map[string]struct{})
	}
	rs.routes[route] = struct{}{}
}

// Contains reports whether the route is in the set.
func (rs RouteSet) Contains(route string) bool {
	_, ok := rs.routes[route]
	return ok
}

// Len returns the number of routes.
func (rs RouteSet) Len() int {
	return len(rs.routes)
}

// Sorted returns the routes in lexical order.
func (rs RouteSet) Sorted() []string {
	routes := make([]string, 0, len(rs.routes))
	for r := range rs.routes {
		routes = append(routes, r)
	}
	sort.Strings(routes)
	return routes
}

// MarshalJSON encodes the set as a sorted JSON array.
func (rs RouteSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(rs.Sorted())
}

// UnmarshalJSON decodes a JSON array of routes.
func (rs *RouteSet) UnmarshalJSON(data []byte) error {
	var routes []string
	if err := json.Unmarshal(data, &routes); err != nil {
		return err
	}
	*rs = NewRouteSet(routes...)
	return nil
}

// Location returns "file:line" for display.
func (o LinkOccurrence) Location() string {
	return o.File + ":" + strconv.Itoa(o.Line)
}
