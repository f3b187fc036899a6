// Package domain defines the core types of the mail dispatcher.
//
// Types in this package are pure value objects with no I/O. They are the
// shared language between the contact loader, the composer, the ledger
// segregator and the dispatch engine.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No file handles, no network clients, no context.Context in struct fields
//   - Validation methods are allowed (they're pure functions on the type)
//   - Constants and enums belong here
package domain
