// Package repository defines the data access interfaces for saved topologies.
//
// A saved topology is a named document. The sqlite subpackage stores one row
// per component and per connection, each holding the record as JSON, so a
// damaged row costs that record only: Load skips it and reports it alongside
// the rest of the document.
//
// # Change detection
//
// Every save computes a BLAKE2b digest of the document. Saving content that
// matches the stored digest is a no-op, which keeps autosave and file-watch
// reloads from rewriting unchanged rows.
//
// # Testing
//
// The sqlite store is tested against in-memory databases.
package repository
