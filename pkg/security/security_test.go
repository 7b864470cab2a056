package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querygate/querygate/pkg/errors"
)

func readOnlyPolicy() Policy {
	return Policy{
		ReadOnly:       true,
		MaxQueryLength: 10000,
	}
}

func TestValidateAccepted(t *testing.T) {
	gate := NewGate(readOnlyPolicy())

	for _, query := range []string{
		"SELECT * FROM users",
		"SELECT id, name FROM orders WHERE status = $1",
		"  select count(*) from t  ",
		"WITH cte AS (SELECT 1 AS n) SELECT n FROM cte",
	} {
		verdict := gate.Validate(query)
		assert.True(t, verdict.Allowed, query)
		assert.NoError(t, verdict.Err())
	}
}

func TestValidateEmptyRequest(t *testing.T) {
	gate := NewGate(readOnlyPolicy())

	for _, query := range []string{"", "   ", "\n\t "} {
		verdict := gate.Validate(query)
		require.False(t, verdict.Allowed)
		assert.Equal(t, ReasonEmptyRequest, verdict.Reason)
	}
}

func TestValidateTooLong(t *testing.T) {
	policy := readOnlyPolicy()
	policy.MaxQueryLength = 64
	gate := NewGate(policy)

	verdict := gate.Validate("SELECT '" + strings.Repeat("x", 100) + "'")
	require.False(t, verdict.Allowed)
	assert.Equal(t, ReasonTooLong, verdict.Reason)
	assert.True(t, errors.IsType(verdict.Err(), errors.ErrorTypeTooLong))
}

func TestValidateReadOnly(t *testing.T) {
	gate := NewGate(readOnlyPolicy())

	tests := []struct {
		name  string
		query string
	}{
		{"delete", "DELETE FROM users"},
		{"insert", "INSERT INTO users (id) VALUES (1)"},
		{"update", "UPDATE users SET name = 'x'"},
		{"drop", "DROP TABLE users"},
		{"truncate", "TRUNCATE TABLE users"},
		{"alter", "ALTER TABLE users ADD COLUMN x INT"},
		{"create", "CREATE TABLE t (id INT)"},
		{"grant", "GRANT SELECT ON users TO bob"},
		{"revoke", "REVOKE SELECT ON users FROM bob"},
		{"execute", "EXEC dbo.refresh_stats"},
		{"lowercase", "delete from users"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := gate.Validate(tt.query)
			require.False(t, verdict.Allowed, tt.query)
			assert.Equal(t, ReasonReadOnlyViolation, verdict.Reason)
		})
	}
}

func TestValidateWriteAllowedWhenNotReadOnly(t *testing.T) {
	gate := NewGate(Policy{ReadOnly: false, MaxQueryLength: 10000})

	verdict := gate.Validate("DELETE FROM users")
	assert.True(t, verdict.Allowed)
}

func TestValidateSuspiciousPattern(t *testing.T) {
	gate := NewGate(readOnlyPolicy())

	tests := []struct {
		name  string
		query string
	}{
		{"comment after semicolon", "SELECT * FROM users; --"},
		{"or injection", "SELECT * FROM users WHERE name = '' OR ''"},
		{"or 1=1", "SELECT * FROM users WHERE name = '' OR 1=1"},
		{"union probing", "SELECT id FROM a UNION SELECT password FROM b"},
		{"file write", "SELECT * FROM t INTO OUTFILE '/tmp/x'"},
		{"file read", "SELECT LOAD_FILE('/etc/passwd')"},
		{"benchmark", "SELECT BENCHMARK(1000000, MD5('x'))"},
		{"sleep", "SELECT SLEEP(10)"},
		{"waitfor", "SELECT 1 WAITFOR DELAY '0:0:10'"},
		{"cmdshell", "SELECT * FROM t WHERE x = xp_cmdshell"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := gate.Validate(tt.query)
			require.False(t, verdict.Allowed, tt.query)
			assert.Equal(t, ReasonSuspiciousPattern, verdict.Reason)
		})
	}
}

func TestValidateBlockedKeyword(t *testing.T) {
	policy := readOnlyPolicy()
	policy.BlockedKeywords = []string{"pg_sleep", "information_schema"}
	gate := NewGate(policy)

	verdict := gate.Validate("SELECT * FROM information_schema.tables")
	require.False(t, verdict.Allowed)
	assert.Equal(t, ReasonBlockedKeyword, verdict.Reason)
	assert.Contains(t, verdict.Message, "information_schema")
}

func TestValidateBlockedResource(t *testing.T) {
	policy := readOnlyPolicy()
	policy.BlockedResources = []string{"salaries"}
	gate := NewGate(policy)

	verdict := gate.Validate("SELECT * FROM salaries")
	require.False(t, verdict.Allowed)
	assert.Equal(t, ReasonBlockedResource, verdict.Reason)

	// Whole-word match only: substrings of longer identifiers pass.
	assert.True(t, gate.Validate("SELECT * FROM old_salaries_archived").Allowed)
}

func TestValidateRuleOrder(t *testing.T) {
	policy := readOnlyPolicy()
	policy.BlockedKeywords = []string{"users"}
	gate := NewGate(policy)

	// Read-only check runs before the blocked keyword check.
	verdict := gate.Validate("DELETE FROM users")
	assert.Equal(t, ReasonReadOnlyViolation, verdict.Reason)

	// Injection check runs before the blocked keyword check.
	verdict = gate.Validate("SELECT * FROM users; --")
	assert.Equal(t, ReasonSuspiciousPattern, verdict.Reason)
}

func TestVerdictErr(t *testing.T) {
	assert.NoError(t, Accept().Err())

	err := Reject(ReasonBlockedKeyword, "query contains blocked keyword: DROP").Err()
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.False(t, errors.IsRetryable(err))
}

func TestDefaultPolicy(t *testing.T) {
	policy := DefaultPolicy()
	gate := NewGate(policy)

	assert.True(t, policy.ReadOnly)
	assert.Equal(t, 10000, policy.MaxQueryLength)

	// The default keyword set rejects comment markers even in SELECTs.
	verdict := gate.Validate("SELECT * FROM t /* hidden */")
	require.False(t, verdict.Allowed)
	assert.Equal(t, ReasonBlockedKeyword, verdict.Reason)
}

func TestClassifyQuery(t *testing.T) {
	tests := []struct {
		query string
		want  QueryType
	}{
		{"SELECT * FROM t", QueryTypeSelect},
		{"  select 1", QueryTypeSelect},
		{"INSERT INTO t VALUES (1)", QueryTypeInsert},
		{"update t set x = 1", QueryTypeUpdate},
		{"DELETE FROM t", QueryTypeDelete},
		{"CREATE TABLE t (id INT)", QueryTypeDDL},
		{"ALTER TABLE t ADD x INT", QueryTypeDDL},
		{"DROP TABLE t", QueryTypeDDL},
		{"TRUNCATE TABLE t", QueryTypeDDL},
		{"SHOW TABLES", QueryTypeOther},
		{"", QueryTypeOther},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyQuery(tt.query), tt.query)
	}
}

func TestSanitizeIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"users", "users"},
		{"public.users", "public.users"},
		{"user_name", "user_name"},
		{"1secret;DROP", "_secretDROP"},
		{"users; DROP TABLE x", "usersDROPTABLEx"},
		{"na'me", "name"},
		{"", ""},
		{";--", ""},
		{"_already_safe", "_already_safe"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeIdentifier(tt.in), tt.in)
	}
}

func TestSanitizeIdentifierTotal(t *testing.T) {
	safe := `^[A-Za-z0-9_.]*$`

	inputs := []string{
		"normal", "1abc", "9", "99z", "!@#$%^&*()", "a b c",
		"\x00\x01", "ünïcode", "table\nname", strings.Repeat("7", 50),
	}

	for _, in := range inputs {
		out := SanitizeIdentifier(in)
		assert.Regexp(t, safe, out, in)
		if out != "" {
			assert.False(t, out[0] >= '0' && out[0] <= '9', "leading digit in %q -> %q", in, out)
		}
	}
}
