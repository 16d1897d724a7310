// Package api wires the HTTP surface: the gorilla/mux router, the
// middleware pipeline (request id, logging, recovery, CORS, session gate,
// rate limit, tenant resolution), and one handler group per domain.
// Handlers translate between JSON envelopes and the domain packages; the
// rules themselves live in those packages.
package api
