// Package server provides HTTP routing, middleware, and the task status handler for the search CLI.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [Logging] and [Recover] are the stock middleware.
//
// The [BasicRouter] implementation registers "METHOD path" patterns on an [http.ServeMux].
//
// # Status Handler
//
// [StatusHandler] exposes a running search task:
//
//	GET  /status → JSON snapshot (id, status, progress, description, error)
//	POST /cancel → requests cooperative cancellation, answers 202 with the snapshot
//
// Cancellation is only observed by the task at its checkpoints, so a client polls /status
// until the status reads CANCELED.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
//
// [Serve] runs a router until its context is canceled and then shuts down gracefully.
package server
