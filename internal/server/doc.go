// Package server assembles the HTTP stack: routing, request identifiers,
// request logging, security headers, CORS, rate limiting, and session
// authentication around the API handlers.
package server
