// Package batch drives the router over a whole board.
//
// A Pipeline runs three stages on one worker goroutine:
//
//  1. Fanout: short stubs from SMD pins to nearby vias.
//  2. Autoroute: passes over all incomplete connections with rising ripup
//     costs until every connection is routed or a pass stops improving.
//  3. Optimize: ripup and reroute of single route items, keeping a change
//     only when it lowers the unrouted count, the via count or the
//     weighted trace length.
//
// Other goroutines may only request a stop and read progress state. Board
// changes of the optimizer are made inside board transactions and rolled
// back when rejected, so a stop always leaves a committed board.
package batch
