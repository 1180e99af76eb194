// Package resolver picks one branch for every OR choice reachable from the
// required courses, minimizing the number of courses that still have to be
// taken, then collapses the graph so only plain course nodes remain.
package resolver
