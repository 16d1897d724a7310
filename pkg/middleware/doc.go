// Package middleware holds request throttling for the API server. Limits
// are keyed per tenant so one noisy organization cannot starve the rest;
// requests without a resolved tenant fall back to a per-user or per-IP
// key. Two limiter implementations share one interface: an in-process
// token bucket for single-node deployments and a Redis counter for
// multi-node ones.
package middleware
