// Package connection provides connection lifecycle management for the
// editor bridge.
//
// This package handles:
//   - Connection state tracking across attempts
//   - Exponential backoff for reconnection attempts
//   - Jitter to spread retry storms
//   - Optional automatic reconnection on connection loss
//
// # Retry Strategy
//
// Retry is manual by default: the editor user presses reconnect, the
// manager runs one attempt and records the outcome. When automatic
// reconnection is enabled, a lost connection is retried with exponential
// backoff:
//
//  1. Initial delay: 1 second
//  2. Exponential increase: 2s, 4s, 8s, 16s, 32s
//  3. Maximum delay: 60 seconds
//  4. Continue at 60s until successful
//  5. Reset to 1s on successful reconnection
//
// # Jitter
//
//	actual_delay = base_delay + random(0, base_delay * 0.25)
//
// The most recent failure text is kept on the manager so a UI can show
// why the bridge is offline without scraping logs.
package connection
