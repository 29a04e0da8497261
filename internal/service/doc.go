// Package service implements the project operations behind the HTTP API and
// the CLI.
//
// ProjectService keeps every open project in memory behind its own mutex and
// writes through to the repository after each mutation. Node execution is
// split around that mutex: contexts are built and results stored under it,
// while the generation call runs unlocked, so edits stay responsive while a
// node renders. A node that is already running cannot be started again.
//
// # Event System
//
// Every mutation publishes an Event on the EventBus. The hub package fans
// those out to Server-Sent Events clients, optionally filtered by project.
package service
