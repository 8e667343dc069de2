// Package embedb is an embedded, transactional, document-oriented storage
// engine layered over an ordered key-value store. It serves local
// applications that need typed object persistence with secondary indexes,
// range and filter queries, sort/distinct/paging, change notifications, and
// JSON import/export, all within a single process without a server.
//
// A process opens one Instance per database file. Collections are declared
// once per Open via CollectionSchema and keep their assigned ids across
// reopens by name matching. All reads and writes happen inside a Txn: a
// write txn is exclusive across the whole instance, read txns share an
// MVCC snapshot taken at BeginTxn.
package embedb

// MinID is the smallest legal object id. Zero is reserved to mean
// "unassigned" so Put can auto-increment it.
const MinID int64 = 1

// MaxID is the largest legal object id.
const MaxID int64 = 1<<63 - 1
