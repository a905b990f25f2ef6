// Package persistence saves bridge state to disk so it survives restarts.
package persistence
