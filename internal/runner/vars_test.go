package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubstitute(t *testing.T) {
	vars := Vars{"name": "Ada", "id": "42"}

	assert.Equal(t, "Ada", vars.Substitute("${name}"))
	assert.Equal(t, "user Ada has id 42", vars.Substitute("user ${name} has id ${id}"))
	assert.Equal(t, "no tokens here", vars.Substitute("no tokens here"))
	assert.Equal(t, "", vars.Substitute(""))
}

func TestSubstituteUndefinedTokenLeftVerbatim(t *testing.T) {
	vars := Vars{"name": "Ada"}

	assert.Equal(t, "${missing}", vars.Substitute("${missing}"))
	assert.Equal(t, "Ada and ${missing}", vars.Substitute("${name} and ${missing}"))
}

func TestSubstituteIsNotRecursive(t *testing.T) {
	// A stored value containing a token must never be re-expanded.
	vars := Vars{"outer": "${inner}", "inner": "boom"}

	assert.Equal(t, "${inner}", vars.Substitute("${outer}"))
}

func TestSubstituteEmptyStore(t *testing.T) {
	var vars Vars

	assert.Equal(t, "${x}", vars.Substitute("${x}"))
}
