// Package planner defines the scheduling request accepted by every front end
// (CLI, HTTP, interactive viewer) and the helpers that decode and normalize
// it. The pipeline itself lives in the engine subpackage.
package planner
