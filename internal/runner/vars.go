package runner

import "regexp"

var varToken = regexp.MustCompile(`\$\{([^}]+)\}`)

// Vars is the per-run variable store, populated by store_text actions and
// consumed by ${name} tokens in later action values. It lives exactly as long
// as one run.
type Vars map[string]string

// Substitute expands ${name} tokens in a single pass over s. Unknown names
// are left verbatim, and a stored value is never re-expanded.
func (v Vars) Substitute(s string) string {
	if len(v) == 0 || s == "" {
		return s
	}
	return varToken.ReplaceAllStringFunc(s, func(tok string) string {
		name := tok[2 : len(tok)-1]
		if val, ok := v[name]; ok {
			return val
		}
		return tok
	})
}
