// Package domain defines the core types for auditing a ring-shaped overlay.
//
// This package contains the value objects produced while walking the ring and
// consumed when checking it for consistency.
//
// # Addresses
//
// Address is a 160-bit overlay identifier written as "brunet:node:" followed
// by 32 base32 characters. Addresses are ordered as unsigned big-endian
// integers. Around the ring, left neighbors have larger addresses and right
// neighbors have smaller ones, wrapping at the ends of the space.
//
// # Records
//
// NeighborInfo is one node's answer to an Information.Info query. NodeRecord
// is what the crawler keeps for each visited node, and NodeSet maps addresses
// to records in the order they were visited.
//
// # Results
//
// Metrics is the fixed-shape summary computed over a NodeSet, and Audit bundles
// a NodeSet, its Metrics and the circumstances of the walk that produced it.
//
// # Design Principles
//
// - Immutable value objects where possible
// - No database or external dependencies
// - Pure domain logic without infrastructure concerns
package domain
