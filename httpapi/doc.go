// Package httpapi serves a novelAuth Engine over HTTP with JSON bodies.
//
// Sessions travel as a signed cookie carrying only the session id
// (see package jwt); every other session field stays in Redis. [Server.Router]
// mounts the routes on a gorilla/mux router behind two middlewares:
// [RequestContext] stamps an X-Request-ID and the client address into the
// request context, and the session middleware resumes the caller's session
// and rewrites the cookie whenever the session id changes.
//
// # Routes
//
//	GET  /session                     current identity and pending flash
//	GET  /csrf                        anti-forgery token for the session
//	POST /login                       credential login
//	POST /logout                      session termination
//	POST /settings/password           password change
//	GET  /admin/users                 member listing (admin)
//	POST /admin/users/{id}/premium    premium toggle (admin)
//	GET  /metrics                     Prometheus exposition, when mounted
//
// # What this package must NOT do
//
//   - Make authentication decisions; every decision is the Engine's.
//   - Return internal error detail; bodies carry [novelAuth.PublicMessage] only.
//   - Access Redis or the credential store directly.
package httpapi
