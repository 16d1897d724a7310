// Package auth provides session tokens, identity, and the authentication
// gate every protected route passes through.
//
// # Overview
//
// Login exchanges credentials for a signed JWT (HS256, 24h). The Gate
// middleware validates the token on each request and then re-checks live
// state: the user must still exist and be active, and the user's
// organization must be active and not suspended. A token that was valid at
// issue time stops working the moment the account or tenant is disabled.
//
// Failure modes answer with distinct messages so operators can tell a
// missing header from an expired token from a suspended tenant. Token
// problems are 401; account and tenant state problems are 403.
//
// # Usage
//
//	tm := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
//	gate := auth.NewGate(tm, userStore, orgService, logger)
//	router.Use(gate.Middleware)
//
// Handlers read the caller with auth.IdentityFromContext(ctx).
package auth
