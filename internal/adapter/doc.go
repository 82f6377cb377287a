// Package adapter connects ringaudit to overlay nodes.
//
// The crawler only sees the Querier interface. XMLRPCClient implements it
// against the XML-RPC bridge every overlay node can expose: the entry node is
// asked for its own address through a local call, and every other node is
// reached by routing an Information.Info call through the overlay, either
// plainly or through the secure sender.
//
// # Responses
//
// ParseNeighborInfo turns the loosely typed XML-RPC struct into a
// domain.NeighborInfo. Missing optional fields default to empty or zero;
// missing required fields produce ErrMalformedResponse.
package adapter
