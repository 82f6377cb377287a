// Package crawler walks a ring overlay and records every node it visits.
//
// A walk starts at the entry node and repeatedly asks the current node for its
// neighbor table, moving to the right neighbor each time, until it has gone
// all the way around. Two small state machines drive it:
//
//   - Ladder handles unresponsive nodes. A target that fails NoResponseMax
//     times in a row sends the walk back to the last good node; RetryMax such
//     back-offs switch to that node's second-hop (right2) pointer; exhausting
//     the ladder again aborts the walk.
//   - WrapState detects completion in the cyclic address space. Moving right
//     visits decreasing addresses, so the walk is finished when it has seen an
//     address above the start and then one at or below it.
//
// The walk is strictly sequential: each target depends on the previous answer.
package crawler
