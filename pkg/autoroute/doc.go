// Package autoroute implements the per-connection maze search of the
// router. Free board space is decomposed on demand into rectangular
// regions ("rooms") joined by connectors ("doors"); a Dijkstra/A* search
// runs over the connector sections, changes layers through via candidates
// and may pass through obstacle regions of rippable traces and vias.
//
// The graph is owned by an Engine and reused between connections: regions
// are invalidated from the board change log, net dependent regions are
// dropped when the routed net changes, and search state is reset after
// every search.
package autoroute
