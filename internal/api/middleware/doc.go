// Package middleware provides HTTP middleware for the API layer.
//
// Includes CORS handling and per-client rate limiting. Request metrics
// middleware lives in infrastructure/monitoring next to the collectors
// it feeds.
package middleware
