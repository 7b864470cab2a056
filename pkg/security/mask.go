package security

import (
	"strings"

	"github.com/querygate/querygate/pkg/models"
)

const (
	maskChar  = "*"
	maskToken = "****"
)

// MaskValue masks a single sensitive value. String values longer than four
// characters keep their first two and last two characters with the interior
// replaced by the mask character; everything else becomes the fixed mask
// token. Nil stays nil. The function is total and idempotent: masking an
// already-masked value yields the same value.
func MaskValue(value interface{}) interface{} {
	if value == nil {
		return nil
	}

	if s, ok := value.(string); ok && len(s) > 4 {
		return s[:2] + strings.Repeat(maskChar, len(s)-4) + s[len(s)-2:]
	}

	return maskToken
}

// MaskRow returns a masked copy of the row. A field is masked when its name
// contains any sensitive-field substring case-insensitively and its value is
// non-nil. Non-matching fields pass through by reference, not by copy.
func MaskRow(row models.Row, sensitiveFields []string) models.Row {
	if row == nil {
		return nil
	}

	lowered := make([]string, len(sensitiveFields))
	for i, f := range sensitiveFields {
		lowered[i] = strings.ToLower(f)
	}

	return maskRow(row, lowered)
}

func maskRow(row models.Row, loweredFields []string) models.Row {
	masked := make(models.Row, len(row))
	for name, value := range row {
		if value != nil && fieldIsSensitive(name, loweredFields) {
			masked[name] = MaskValue(value)
		} else {
			masked[name] = value
		}
	}
	return masked
}

func fieldIsSensitive(name string, loweredFields []string) bool {
	nameLower := strings.ToLower(name)
	for _, f := range loweredFields {
		if f != "" && strings.Contains(nameLower, f) {
			return true
		}
	}
	return false
}

// MaskRow masks one result row using the gate's compiled sensitive fields.
func (g *Gate) MaskRow(row models.Row) models.Row {
	if row == nil {
		return nil
	}
	return maskRow(row, g.sensitiveFields)
}

// MaskRows masks a slice of result rows. The returned slice holds masked
// copies of each row; the input rows are never mutated.
func (g *Gate) MaskRows(rows []models.Row) []models.Row {
	if len(rows) == 0 || len(g.sensitiveFields) == 0 {
		return rows
	}

	masked := make([]models.Row, len(rows))
	for i, row := range rows {
		masked[i] = maskRow(row, g.sensitiveFields)
	}
	return masked
}
