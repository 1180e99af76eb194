// Package graph holds the per-request dependency graph: course nodes, the
// synthetic choice nodes standing in for OR groups, and the typed edges
// between them. Build expands a required set against a catalog and Reduce
// prunes whatever completed courses already satisfy. The graph is mutated in
// place by later stages and discarded once a schedule exists.
package graph
