// Package password scores candidate passwords for strength before they
// are submitted. It is client-side guidance only: the backend enforces
// the real policy, and acceptance here never substitutes for it.
//
// # Scoring
//
// Composition rules apply independently and additively; a missing class
// appends a violation instead of contributing points. Two penalty rules
// (common-password substring, repeated character runs) subtract from the
// score with a floor of zero. The final score is clamped to [0, 100] and
// banded into weak/medium/strong. Validity is the hard gate (a password
// is valid iff it has no violations); strength stays advisory.
//
// # What this package must NOT do
//
//   - Perform I/O or keep state; Validate is a pure function.
//   - Import any other sessionguard package.
//   - Log or retain the passwords it scores.
package password
