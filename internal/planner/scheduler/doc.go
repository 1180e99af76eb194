// Package scheduler levels a collapsed, course-only dependency graph into
// quarters. Each quarter takes as many available courses as its capacity
// allows, keeping corequisite courses together as one unit.
package scheduler
