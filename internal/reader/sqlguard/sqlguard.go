// Package sqlguard enforces the read-only query requirement from
// spec.md §4.1: the first significant token of the query must be SELECT
// or WITH.
//
// Tokenizer rule (resolving spec.md's Open Question on the exact
// allow-list): leading whitespace and SQL line (--) and block (/* */)
// comments are skipped; the first word that remains is compared
// case-insensitively against {SELECT, WITH}. "WITH ..." is accepted
// unconditionally — verifying that a CTE terminates in a SELECT would
// require a real SQL parser, which is out of scope for this check.
// "EXPLAIN SELECT ..." is rejected: EXPLAIN can target DML in several
// engines (e.g. "EXPLAIN DELETE FROM ..."), so admitting it generically
// would defeat the check; callers who want a plan should submit the
// inner statement directly.
package sqlguard

import (
	"strings"

	"github.com/redbco/qdump/internal/qerrors"
)

var allowed = map[string]bool{
	"select": true,
	"with":   true,
}

// Check returns a qerrors.Security error if query's first significant
// token is not SELECT or WITH.
func Check(query string) error {
	token := firstToken(query)
	if !allowed[strings.ToLower(token)] {
		return qerrors.New(qerrors.Security, "sqlguard.Check",
			&NotReadOnlyError{FirstToken: token})
	}
	return nil
}

// NotReadOnlyError describes why a query was rejected.
type NotReadOnlyError struct {
	FirstToken string
}

func (e *NotReadOnlyError) Error() string {
	return "query must begin with SELECT or WITH, found: " + e.FirstToken
}

// firstToken returns the first word of query, ended by whitespace or an
// opening parenthesis, after skipping leading whitespace and comments.
func firstToken(query string) string {
	s := query
	for {
		s = strings.TrimLeft(s, " \t\r\n")
		if strings.HasPrefix(s, "--") {
			if i := strings.IndexByte(s, '\n'); i >= 0 {
				s = s[i+1:]
			} else {
				s = ""
			}
			continue
		}
		if strings.HasPrefix(s, "/*") {
			if i := strings.Index(s, "*/"); i >= 0 {
				s = s[i+2:]
			} else {
				s = ""
			}
			continue
		}
		break
	}
	end := strings.IndexFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\r' || r == '\n' || r == '('
	})
	if end < 0 {
		return s
	}
	return s[:end]
}
