// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Overview
//
// This package offers the response envelope used by every API endpoint, an
// error taxonomy that maps domain failures to HTTP status codes, request
// parsing helpers, and common HTTP middleware.
//
// # Response Envelope
//
// All endpoints answer with the same JSON shape:
//
//	{"success": true, "message": "...", "data": {...}, "errors": [...]}
//
// Success responses:
//
//	httputil.WriteSuccess(w, "relatório criado", report)
//	httputil.WriteCreated(w, "equipamento criado", equipment)
//
// Error responses go through the taxonomy so handlers never pick raw status
// codes:
//
//	httputil.WriteErr(w, httputil.NotFound("relatório não encontrado"))
//	httputil.WriteErr(w, httputil.Forbidden("permissão insuficiente"))
//	httputil.WriteErr(w, err) // unknown errors become 500
//
// # Request Parsing
//
//	var req CreateReportRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // error response already written
//	}
//	id, err := httputil.ParsePathInt64(r, "id")
//	limit := httputil.ParseQueryInt(r, "limit", 20)
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware(),
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware(logger),
//		httputil.CORSMiddleware(origins),
//	)
//
// # Related Packages
//
//   - pkg/auth: authentication middleware
//   - pkg/tenant: tenant resolution middleware
package httputil
