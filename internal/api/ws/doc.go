// Package ws streams pool status over WebSocket.
//
// Clients send JSON frames ({"type": "status"}, {"type": "subscribe",
// "interval_ms": 1000}, {"type": "ping"}) and receive pool_status
// snapshots either on demand or on a subscription cadence.
package ws
