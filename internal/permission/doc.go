// Package permission defines the vocabulary an agent profile uses to
// describe tool consent: actions (allow/deny/ask), the operations they
// apply to, and the error shape a denial takes.
//
// Enforcement itself lives elsewhere — pattern-based bash matching and
// doom-loop detection were generalized onto internal/approval and
// internal/executor respectively, where they gate every backend rather
// than just agent-declared policy. This package keeps only the shared
// types both sides agree on.
package permission
