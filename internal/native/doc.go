// Package native is the typed storage engine underneath strata, built on
// SQLite.
//
// The engine stores every class as a table of typed columns. It knows
// nothing about managed values: callers hand it native values (Int, Float,
// Timestamp, ObjKey, ...) that already match the column type, and it
// rejects anything else with ILLEGAL_OPERATION.
//
// # Storage Layout
//
//   - _strata_classes: class registry; its autoincrement key is the TableKey
//   - "class:<Name>": one row per object, keyed by an autoincrement ObjKey
//     that is never reused
//   - "list:<Name>.<column>": ordered links for list-of-object properties
//   - PRAGMA user_version: the schema version
//
// Required columns are NOT NULL with the zero value of their type as the
// column default, so an object created without a value for them reads back
// as zero. Link columns are nullable and cleared when the target is
// deleted. Embedded children are deleted with their parent.
//
// Mixed columns hold a BSON document {t: tag, v: payload}.
//
// # Database Configuration
//
//   - journal_mode=DELETE: no sidecar files outlive Close
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
//   - one connection; all statements run inside the open transaction if any
//
// A file database holds an exclusive flock on <path>.lock while open.
//
// # Transactions
//
// Reads are allowed at any time. Every mutation requires an open write
// transaction (NOT_IN_WRITE_TRANSACTION otherwise). Results and lists are
// live: each access re-queries, so they always reflect committed and
// in-transaction changes.
package native
