// Package handler implements the HTTP API of the flowcanvas server.
//
// # Handlers
//
// ProjectHandler serves projects and everything inside them: nodes, edges,
// groups, execution and import/export. Register mounts its routes on a
// ServeMux using method and wildcard patterns.
//
// Middleware provides panic recovery, request logging and CORS support.
//
// # Response Format
//
// Success responses return JSON data with appropriate status codes (200, 201,
// 204). Error responses return JSON with {error, details} structure. Missing
// projects, nodes and edges map to 404, a node that is already running or an
// occupied input to 409, and invalid graphs or requests to 400.
//
// Exports are the exception: they stream the document in the requested
// format with a Content-Disposition header.
//
// # Server-Sent Events
//
// The /events endpoint is served by the hub package.
package handler
