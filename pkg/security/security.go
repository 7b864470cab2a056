// Package security provides the pre-execution security gate and the
// post-execution result shaper for QueryGate.
//
// The gate evaluates every outgoing query against an immutable Policy as an
// ordered rule pipeline: cheap structural checks first, regex-heavy checks
// next, substring and word checks last, so invalid input is rejected at
// minimum cost and the security-critical checks take precedence over softer
// policy checks. A rejection never reaches a backend.
//
// The shaper masks values of result fields whose names match the policy's
// sensitive-field substrings. Both sides are pure, stateless, and reentrant.
package security

import (
	"regexp"
	"strings"

	"github.com/querygate/querygate/pkg/errors"
)

// Policy is the immutable security policy evaluated by a Gate.
type Policy struct {
	// ReadOnly rejects any mutating operation
	ReadOnly bool `yaml:"read_only" json:"read_only"`
	// BlockedKeywords are rejected as case-insensitive substrings
	BlockedKeywords []string `yaml:"blocked_keywords" json:"blocked_keywords"`
	// BlockedResources are table/view names rejected as whole words
	BlockedResources []string `yaml:"blocked_resources" json:"blocked_resources"`
	// SensitiveFields are masked in results on case-insensitive substring match
	SensitiveFields []string `yaml:"sensitive_fields" json:"sensitive_fields"`
	// MaxQueryLength bounds the accepted query text length (0 = unlimited)
	MaxQueryLength int `yaml:"max_query_length" json:"max_query_length"`
	// MaxRows bounds the number of rows a result may carry before truncation
	MaxRows int `yaml:"max_rows" json:"max_rows"`
}

// DefaultPolicy returns the production default policy: read-only, the
// standard blocked keyword set, and the common sensitive field names.
func DefaultPolicy() Policy {
	return Policy{
		ReadOnly: true,
		BlockedKeywords: []string{
			"DROP", "DELETE", "UPDATE", "INSERT", "ALTER", "CREATE",
			"TRUNCATE", "GRANT", "REVOKE", "EXEC", "EXECUTE",
			"xp_", "sp_", "--", ";--", "/*", "*/",
		},
		BlockedResources: nil,
		SensitiveFields: []string{
			"password", "pwd", "secret", "token", "api_key",
			"ssn", "social_security", "credit_card", "card_number",
		},
		MaxQueryLength: 10000,
		MaxRows:        10000,
	}
}

// Reason identifies why a query was rejected. The taxonomy is closed.
type Reason string

const (
	// ReasonEmptyRequest covers empty or whitespace-only query text
	ReasonEmptyRequest Reason = "empty_request"
	// ReasonTooLong covers query text over the policy length limit
	ReasonTooLong Reason = "too_long"
	// ReasonReadOnlyViolation covers mutating operations in read-only mode
	ReasonReadOnlyViolation Reason = "read_only_violation"
	// ReasonSuspiciousPattern covers injection heuristic matches
	ReasonSuspiciousPattern Reason = "suspicious_pattern"
	// ReasonBlockedKeyword covers configured blocked keyword matches
	ReasonBlockedKeyword Reason = "blocked_keyword"
	// ReasonBlockedResource covers references to blocked tables or views
	ReasonBlockedResource Reason = "blocked_resource"
)

// ErrorType maps a rejection reason onto the structured error taxonomy.
func (r Reason) ErrorType() errors.ErrorType {
	switch r {
	case ReasonEmptyRequest:
		return errors.ErrorTypeEmptyRequest
	case ReasonTooLong:
		return errors.ErrorTypeTooLong
	case ReasonReadOnlyViolation:
		return errors.ErrorTypeReadOnlyViolation
	case ReasonSuspiciousPattern:
		return errors.ErrorTypeSuspiciousPattern
	case ReasonBlockedKeyword:
		return errors.ErrorTypeBlockedKeyword
	case ReasonBlockedResource:
		return errors.ErrorTypeBlockedResource
	default:
		return errors.ErrorTypeInternal
	}
}

// Verdict is the outcome of validating one query: accepted, or rejected with
// a reason from the closed taxonomy and a caller-facing message.
type Verdict struct {
	Allowed bool
	Reason  Reason
	Message string
}

// Accept returns an accepting verdict.
func Accept() Verdict {
	return Verdict{Allowed: true}
}

// Reject returns a rejecting verdict with the given reason and message.
func Reject(reason Reason, message string) Verdict {
	return Verdict{Reason: reason, Message: message}
}

// Err converts the verdict into a typed error, or nil when accepted.
func (v Verdict) Err() error {
	if v.Allowed {
		return nil
	}
	return errors.New(v.Reason.ErrorType(), v.Message)
}

// Patterns that indicate write operations. Word-boundary aware and
// case-insensitive, matching mutating statements anywhere in the text.
var writePatterns = compilePatterns([]string{
	`\bINSERT\s+INTO\b`,
	`\bUPDATE\s+\w+\s+SET\b`,
	`\bDELETE\s+FROM\b`,
	`\bDROP\s+(TABLE|DATABASE|INDEX|VIEW|SCHEMA)\b`,
	`\bTRUNCATE\s+TABLE\b`,
	`\bALTER\s+(TABLE|DATABASE|INDEX|VIEW|SCHEMA)\b`,
	`\bCREATE\s+(TABLE|DATABASE|INDEX|VIEW|SCHEMA)\b`,
	`\bGRANT\b`,
	`\bREVOKE\b`,
	`\bEXEC(UTE)?\s+`,
})

// Patterns that indicate potential injection: statement chaining, tautological
// OR conditions, union probing, file primitives, timing primitives, and
// privileged procedure invocation.
var injectionPatterns = compilePatterns([]string{
	`;\s*--`,
	`'\s*OR\s+'`,
	`'\s*OR\s+1\s*=\s*1`,
	`UNION\s+SELECT`,
	`INTO\s+OUTFILE`,
	`LOAD_FILE`,
	`BENCHMARK\s*\(`,
	`SLEEP\s*\(`,
	`WAITFOR\s+DELAY`,
	`xp_cmdshell`,
	`sp_executesql`,
})

func compilePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile(`(?i)` + p)
	}
	return compiled
}

// Gate is a compiled, reusable evaluator for one Policy. It is stateless
// beyond the compiled policy and safe for concurrent use.
type Gate struct {
	policy           Policy
	blockedKeywords  []string         // upper-cased for substring match
	blockedResources []*regexp.Regexp // whole-word, case-insensitive
	sensitiveFields  []string         // lower-cased for substring match
}

// NewGate compiles the policy into a Gate.
func NewGate(policy Policy) *Gate {
	g := &Gate{policy: policy}

	g.blockedKeywords = make([]string, len(policy.BlockedKeywords))
	for i, kw := range policy.BlockedKeywords {
		g.blockedKeywords[i] = strings.ToUpper(kw)
	}

	g.blockedResources = make([]*regexp.Regexp, len(policy.BlockedResources))
	for i, name := range policy.BlockedResources {
		g.blockedResources[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(name) + `\b`)
	}

	g.sensitiveFields = make([]string, len(policy.SensitiveFields))
	for i, f := range policy.SensitiveFields {
		g.sensitiveFields[i] = strings.ToLower(f)
	}

	return g
}

// Policy returns the policy the gate was compiled from.
func (g *Gate) Policy() Policy {
	return g.policy
}

// Validate evaluates the query text against the policy. Rules run in order
// and the first match wins; an accepting verdict means every rule passed.
func (g *Gate) Validate(query string) Verdict {
	if strings.TrimSpace(query) == "" {
		return Reject(ReasonEmptyRequest, "empty query provided")
	}

	if g.policy.MaxQueryLength > 0 && len(query) > g.policy.MaxQueryLength {
		return Reject(ReasonTooLong, "query exceeds maximum length")
	}

	if g.policy.ReadOnly {
		for _, pattern := range writePatterns {
			if pattern.MatchString(query) {
				return Reject(ReasonReadOnlyViolation, "write operations are not allowed in read-only mode")
			}
		}
	}

	for _, pattern := range injectionPatterns {
		if pattern.MatchString(query) {
			return Reject(ReasonSuspiciousPattern, "query contains potentially dangerous patterns")
		}
	}

	queryUpper := strings.ToUpper(query)
	for i, kw := range g.blockedKeywords {
		if strings.Contains(queryUpper, kw) {
			return Reject(ReasonBlockedKeyword, "query contains blocked keyword: "+g.policy.BlockedKeywords[i])
		}
	}

	for i, re := range g.blockedResources {
		if re.MatchString(query) {
			return Reject(ReasonBlockedResource, "access to resource '"+g.policy.BlockedResources[i]+"' is not allowed")
		}
	}

	return Accept()
}
