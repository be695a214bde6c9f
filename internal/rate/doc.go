// Package rate provides the in-process fixed-window rate limit primitive
// behind Guard.CheckRateLimit.
//
// # Window semantics
//
// One counter per normalized endpoint key (query string stripped). A key's
// first request, or any request arriving at or after the window's reset
// time, opens a fresh window with count 1; otherwise the counter
// increments until the window's quota is spent. Denials report how long
// until the window resets, rounded up to whole seconds.
//
// # Scope
//
// Counters live in process memory only. They are a UX throttle for a
// single client context, not a security control: they are not shared
// across tabs and real enforcement remains server-side.
//
// # What this package must NOT do
//
//   - Perform or block network I/O: callers honor the verdict.
//   - Be imported outside the sessionguard module.
package rate
