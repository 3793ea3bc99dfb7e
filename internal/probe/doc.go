// Package probe checks a bounded sample of external links with a single
// HEAD request each.
//
// A response status of 400 or above yields a medium finding. A transport
// failure yields a low finding carrying a truncated reason. Successful
// probes yield nothing. Probes run concurrently with a fixed limit; when
// the context is cancelled the probes that already completed are kept.
package probe
