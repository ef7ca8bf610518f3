package httpx

import "strings"

// DuplicateField reports whether err is a unique-constraint violation
// and names the offending column when the driver message allows it.
// Understands the postgres and sqlite formats.
func DuplicateField(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	msg := err.Error()

	// sqlite: UNIQUE constraint failed: users.email
	if idx := strings.Index(msg, "UNIQUE constraint failed:"); idx >= 0 {
		rest := strings.TrimSpace(msg[idx+len("UNIQUE constraint failed:"):])
		rest = strings.TrimSpace(strings.Split(rest, ",")[0])
		if dot := strings.LastIndex(rest, "."); dot >= 0 {
			return rest[dot+1:], true
		}
		return rest, true
	}

	// postgres: duplicate key value violates unique constraint "idx_users_email"
	if strings.Contains(msg, "duplicate key value violates unique constraint") {
		if start := strings.Index(msg, `"`); start >= 0 {
			constraint := msg[start+1:]
			if end := strings.Index(constraint, `"`); end >= 0 {
				constraint = constraint[:end]
				if sep := strings.LastIndex(constraint, "_"); sep >= 0 {
					return constraint[sep+1:], true
				}
				return constraint, true
			}
		}
		return "", true
	}

	return "", false
}
