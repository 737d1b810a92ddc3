// Package workflow implements a declarative, permission-aware state machine
// that attaches to arbitrary business documents.
//
// A Definition declares named states, guarded transitions between them and
// the permissions that guard those transitions. Definitions are built once,
// registered, and are read-only afterwards, so a single Definition is safe
// to share across goroutines. A Workflow binds a registered Definition to a
// (document, actor) pair for the duration of one logical operation: it
// reports the current state, enumerates the transitions the actor may
// perform, and executes transitions atomically, appending an audit history
// entry and emitting a transition event on success.
package workflow
