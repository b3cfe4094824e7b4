// Package dbf reads, writes, and in-place updates dBase-family table files
// (.dbf) as written by dBase III, dBase IV, FoxBase, and Visual FoxPro, plus
// the paired memo side-file (.dbt or .fpt) that holds variable-length memo
// field payloads.
//
// Opening a file parses the header and field descriptors once; after that,
// Table offers random-access reads and writes by record and field index
// without re-parsing the schema. Appending new records keeps the header's
// record count and on-disk layout consistent.
//
// A Table is not safe for concurrent use: it owns one read/scratch buffer
// and one tracked file position. Multiple read-only Tables over the same
// underlying file are independent.
package dbf
