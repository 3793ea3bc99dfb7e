// Package pipeline runs the stages of a link audit in sequence.
//
// A project is audited by a Pipeline of Steps that each receive the
// accumulating AuditResult: route indexing, link extraction,
// classification, reconciliation and the optional external probe.
// A BatchProcessor audits several project roots concurrently, each with a
// fresh pipeline, using errgroup for the concurrency limit.
package pipeline
