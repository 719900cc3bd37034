package sqlenc

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrArgumentCount is returned by Inline when placeholders and arguments do
// not line up.
var ErrArgumentCount = errors.New("sqlenc: placeholder and argument count differ")

// Inline replaces every '?' placeholder outside quoted text with the SQL
// rendering of the matching argument.
func Inline(query string, args []any) (string, error) {
	var sb strings.Builder
	var quote rune
	next := 0
	for _, r := range query {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '?':
			if next >= len(args) {
				return "", ErrArgumentCount
			}
			lit, err := Literal(args[next])
			if err != nil {
				return "", err
			}
			sb.WriteString(lit)
			next++
			continue
		}
		sb.WriteRune(r)
	}
	if next != len(args) {
		return "", ErrArgumentCount
	}
	return sb.String(), nil
}

// Literal renders v as a SQL literal.
func Literal(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "NULL", nil
	case string:
		return quoteString(x), nil
	case bool:
		if x {
			return "TRUE", nil
		}
		return "FALSE", nil
	case time.Time:
		return quoteString(x.UTC().Format(time.RFC3339Nano)), nil
	case int:
		return strconv.Itoa(x), nil
	case int8, int16, int32, int64:
		return fmt.Sprintf("%d", x), nil
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", x), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case fmt.Stringer:
		return quoteString(x.String()), nil
	}
	return "", fmt.Errorf("sqlenc: no literal form for %T", v)
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
