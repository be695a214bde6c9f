// Package flows contains pure-function orchestrators for the verify and
// resend operations. Each runner takes a deps struct of injected
// functions, so the host package owns sentinel errors, metrics IDs, and
// persistence while the decision sequence stays testable in isolation.
//
// # What this package must NOT do
//
//   - Hold state between calls: runners are pure orchestration.
//   - Import sessionguard or any sibling internal package.
package flows
