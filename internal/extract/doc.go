// Package extract pulls link targets out of source and markup files using
// textual patterns.
//
// Every pattern runs independently over the whole file content. A link
// written in two matching syntaxes (for example a Next.js <Link href="...">
// which also matches the generic href pattern) is reported once per
// pattern. Deduplication is left to the consumer.
package extract
