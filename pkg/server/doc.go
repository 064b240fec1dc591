// Package server runs the HTTP server that receives webhook events and
// serves health and metrics endpoints.
package server
