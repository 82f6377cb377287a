// Package repository defines the data access interface for audit history.
//
// Every finished audit can be stored with its header, its metrics and one
// row per visited node, in walk order. The sqlite subpackage is the only
// implementation; it migrates its schema on open and writes each audit in
// a single transaction so a partial audit is never visible.
package repository
