// Package engine runs the full scheduling pipeline for one request: catalog
// ingestion, graph construction, completed-course reduction, choice
// resolution and quarter leveling. Results can be kept in a store so front
// ends can look a run up again by id.
package engine
