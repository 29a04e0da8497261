// Package repository defines the data access interface for projects.
//
// A project is stored as one row plus its nodes and edges, which keep their
// render and edge order. SaveProject rewrites a project's graph in a single
// transaction. SavePositions and SaveViewport are the narrow writes issued
// while the user drags nodes or moves the camera.
//
// The sqlite subpackage implements the interface on modernc.org/sqlite and
// migrates its schema on open. Its tests run against in-memory databases.
package repository
