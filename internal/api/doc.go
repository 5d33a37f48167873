// Package api implements the HTTP handlers for the reelroom service:
// credential and session endpoints, the authenticated catalog listing,
// Range-aware media streaming, and watch-progress tracking.
package api
