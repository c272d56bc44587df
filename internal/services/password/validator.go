// Copyright 2026 The Slabseller Accounts Authors
// Licensed under the EUPL-1.2

package password

import (
	"fmt"
	"strings"
	"unicode"
)

// Validator validates passwords against various criteria
type Validator struct {
	MinLength           int
	RequireUppercase    bool
	RequireLowercase    bool
	RequireDigit        bool
	RequireSpecial      bool
	RejectNumeric       bool
	CheckUserSimilarity bool
}

// DefaultValidator returns the validator applied to recovered passwords.
// It only enforces MinLength; composition rules are left to the identity
// provider's own policy.
func DefaultValidator() *Validator {
	return &Validator{
		MinLength: MinLength,
	}
}

// Violation is a single failed rule.
type Violation struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationError wraps all violations of one password
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "password validation failed"
	}
	return e.Violations[0].Message
}

// Codes returns the codes of all violations.
func (e *ValidationError) Codes() []string {
	codes := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		codes[i] = v.Code
	}
	return codes
}

// Result holds all violations
type Result struct {
	Valid      bool
	Violations []Violation
}

// Err returns the violations as an error, or nil for a valid password.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return &ValidationError{Violations: r.Violations}
}

// Validate checks a password against all configured rules
func (v *Validator) Validate(password string, userAttributes ...string) Result {
	var violations []Violation

	if len(password) < v.MinLength {
		violations = append(violations, Violation{
			Code:    "min_length",
			Message: fmt.Sprintf("Password must be at least %d characters long.", v.MinLength),
		})
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	if v.RequireUppercase && !hasUpper {
		violations = append(violations, Violation{
			Code:    "no_uppercase",
			Message: "Password must contain at least one uppercase letter.",
		})
	}

	if v.RequireLowercase && !hasLower {
		violations = append(violations, Violation{
			Code:    "no_lowercase",
			Message: "Password must contain at least one lowercase letter.",
		})
	}

	if v.RequireDigit && !hasDigit {
		violations = append(violations, Violation{
			Code:    "no_digit",
			Message: "Password must contain at least one digit.",
		})
	}

	if v.RequireSpecial && !hasSpecial {
		violations = append(violations, Violation{
			Code:    "no_special",
			Message: "Password must contain at least one special character.",
		})
	}

	if v.RejectNumeric && isEntirelyNumeric(password) {
		violations = append(violations, Violation{
			Code:    "entirely_numeric",
			Message: "Password cannot be entirely numeric.",
		})
	}

	if v.CheckUserSimilarity && len(userAttributes) > 0 {
		if isSimilarToUserAttributes(password, userAttributes) {
			violations = append(violations, Violation{
				Code:    "too_similar",
				Message: "Password is too similar to your personal information.",
			})
		}
	}

	return Result{
		Valid:      len(violations) == 0,
		Violations: violations,
	}
}

func isEntirelyNumeric(password string) bool {
	for _, r := range password {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(password) > 0
}

// isSimilarToUserAttributes compares against each attribute and, for email
// addresses, against the local part as well.
func isSimilarToUserAttributes(password string, attributes []string) bool {
	passwordLower := strings.ToLower(password)

	for _, attr := range attributes {
		if attr == "" {
			continue
		}
		candidates := []string{strings.ToLower(attr)}
		if local, _, ok := strings.Cut(candidates[0], "@"); ok && local != "" {
			candidates = append(candidates, local)
		}

		for _, c := range candidates {
			if len(c) >= 3 && strings.Contains(passwordLower, c) {
				return true
			}
			if strings.Contains(c, passwordLower) {
				return true
			}
			if similarity(passwordLower, c) > 0.7 {
				return true
			}
		}
	}

	return false
}

func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	lcs := longestCommonSubsequence(a, b)
	maxLen := max(len(a), len(b))

	return float64(lcs) / float64(maxLen)
}

func longestCommonSubsequence(a, b string) int {
	m, n := len(a), len(b)
	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if a[i-1] == b[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
			} else {
				dp[i][j] = max(dp[i-1][j], dp[i][j-1])
			}
		}
	}

	return dp[m][n]
}
