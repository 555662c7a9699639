// Package board holds the routing board model consumed by the autorouter:
// immutable items (pins, traces, vias, keepouts) indexed per layer in an
// R-tree, net connectivity queries, the mutation primitives used while
// routing, and snapshot transactions for speculative changes.
//
// All coordinates are integers in board units. Every item exposes one or
// more axis-aligned shape boxes per layer; diagonal traces are covered by a
// staircase of boxes, each addressed by its shape index.
package board
