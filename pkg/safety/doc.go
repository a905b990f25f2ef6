// Package safety implements the pre-execution scanner for AI-supplied
// source text.
//
// The gate is a heuristic, not a security boundary. It scans for an
// explicit deny-list of dangerous calls and for broader category patterns
// (filesystem path manipulation, socket construction, reflection and
// code loading) using substring and regex matching, not semantic
// analysis. Obfuscated dangerous code will pass; callers must treat a
// "safe" verdict as best-effort screening only.
//
// A rejected snippet may still be run, but only through an explicit,
// logged, user-confirmed override recorded in an OverrideLog keyed by the
// snippet's digest.
package safety
