package password

import "strings"

// Strength bands a final score: strong >= 80, medium >= 50, else weak.
type Strength uint8

const (
	// Weak marks scores below 50.
	Weak Strength = iota
	// Medium marks scores in [50, 80).
	Medium
	// Strong marks scores of 80 and above.
	Strong
)

// String implements fmt.Stringer.
func (s Strength) String() string {
	switch s {
	case Strong:
		return "strong"
	case Medium:
		return "medium"
	default:
		return "weak"
	}
}

// Assessment is the outcome of scoring one candidate password.
// Valid is true iff Errors is empty; Strength derives only from Score.
type Assessment struct {
	Valid    bool
	Errors   []string
	Strength Strength
	Score    int
}

const (
	minLength    = 8
	bonusLength  = 12
	specialChars = "!@#$%^&*()_+-=[]{}|;':\",./<>?`~\\"
)

// Violation messages are stable strings the UI renders inline.
const (
	errTooShort     = "too short"
	errNoUppercase  = "missing uppercase letter"
	errNoLowercase  = "missing lowercase letter"
	errNoDigit      = "missing digit"
	errNoSpecial    = "missing special character"
	errTooCommon    = "too common"
	errRepeatedRuns = "repeated characters"
)

// commonPasswords is matched case-insensitively as a substring, so
// "Password1!" is still flagged. The list mirrors the most frequent
// entries in public breach corpora.
var commonPasswords = []string{
	"password",
	"123456",
	"12345678",
	"qwerty",
	"abc123",
	"letmein",
	"welcome",
	"monkey",
	"dragon",
	"iloveyou",
	"admin",
	"football",
}

// Validate scores a candidate password. Deterministic for identical
// input; never performs I/O.
func Validate(pw string) Assessment {
	a := Assessment{}

	switch {
	case len(pw) < minLength:
		a.Errors = append(a.Errors, errTooShort)
	case len(pw) >= bonusLength:
		a.Score += 25
	default:
		a.Score += 15
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range pw {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune(specialChars, r):
			hasSpecial = true
		}
	}

	if hasUpper {
		a.Score += 20
	} else {
		a.Errors = append(a.Errors, errNoUppercase)
	}
	if hasLower {
		a.Score += 20
	} else {
		a.Errors = append(a.Errors, errNoLowercase)
	}
	if hasDigit {
		a.Score += 15
	} else {
		a.Errors = append(a.Errors, errNoDigit)
	}
	if hasSpecial {
		a.Score += 20
	} else {
		a.Errors = append(a.Errors, errNoSpecial)
	}

	lowered := strings.ToLower(pw)
	for _, common := range commonPasswords {
		if strings.Contains(lowered, common) {
			a.Errors = append(a.Errors, errTooCommon)
			a.Score -= 30
			break
		}
	}
	if a.Score < 0 {
		a.Score = 0
	}

	if hasRepeatedRun(pw) {
		a.Errors = append(a.Errors, errRepeatedRuns)
		a.Score -= 10
	}
	if a.Score < 0 {
		a.Score = 0
	}
	if a.Score > 100 {
		a.Score = 100
	}

	switch {
	case a.Score >= 80:
		a.Strength = Strong
	case a.Score >= 50:
		a.Strength = Medium
	default:
		a.Strength = Weak
	}

	a.Valid = len(a.Errors) == 0
	return a
}

// hasRepeatedRun reports three or more identical consecutive characters.
func hasRepeatedRun(pw string) bool {
	run := 1
	var prev rune
	for i, r := range pw {
		if i > 0 && r == prev {
			run++
			if run >= 3 {
				return true
			}
		} else {
			run = 1
		}
		prev = r
	}
	return false
}
