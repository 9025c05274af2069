// Package core implements the workbook-composition engine: it maps a
// declarative workbook document (sheets, cells, ranges, tables, formatting)
// onto a concrete OOXML spreadsheet, fills stored templates with placeholder
// data, and resolves table rows from a configured database.
//
// The engine is organized leaves-first:
//
//   - address.go: cell/range address parsing and column-offset arithmetic
//   - style.go: declarative style normalization onto excelize styles
//   - writer.go: cell, range and table writes against one sheet
//   - composer.go: per-sheet orchestration, sheet formatting, serialization
//   - filler.go: template placeholder substitution and row expansion
//   - datasource.go: row sources (pgx pool or database/sql) and query safety
//   - service.go: the request-facing surface tying all of it together
//
// Every composition is a single, self-contained, stateless transformation of
// one input document into one output buffer; the package keeps no mutable
// state across requests. It has no HTTP dependencies and is shared by the
// web server and the offline CLI.
package core
