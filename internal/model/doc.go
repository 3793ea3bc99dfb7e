// Package model defines the core data structures used throughout linkaudit.
//
// This package contains the following main types:
//   - LinkOccurrence: A raw link target with its source location
//   - Category: The classification bucket assigned to every occurrence
//   - RouteSet: The set of navigable routes derived from the route tree
//   - Finding: A severity-tagged problem attached to a link
//   - AuditResult: The aggregate result of one audit run
//
// Models live in their own package so that the extraction, reconciliation,
// reporting and storage packages can share them without import cycles.
// All types are serializable to JSON for report output and history storage.
package model
