// Package editor defines the collaborators the command handlers talk to
// and the handler set itself.
//
// The collaborators are interfaces: the scene graph dumper, the asset
// file store, the LLM client and the log sink live outside the core.
// Handlers receive them at construction and register on a dispatcher.
//
// Handler parameters degrade gracefully: a missing or non-string param
// becomes the empty string rather than a hard failure. Each handler
// documents which params it reads and what an empty value means for it.
package editor
