// Package discovery locates agent servers on the local network via mDNS.
//
// The agent server advertises itself as a _game-genie._tcp service. The
// bridge browses for it when no host is configured and falls back to the
// configured default endpoint otherwise. Browsing aggregates addresses
// from multiple interfaces into a single entry per instance name.
package discovery
