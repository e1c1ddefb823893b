// internal/admin/admin_test.go
package admin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	s := Parse(" 0xAbC1 ,0xdef2,, 0xABC1")

	assert.True(t, s.IsAdmin("0xabc1"))
	assert.True(t, s.IsAdmin(" 0xDEF2 "))
	assert.False(t, s.IsAdmin("0x9999"))
	assert.False(t, s.IsAdmin(""))
	assert.Equal(t, []string{"0xAbC1", "0xdef2"}, s.Addresses())
}

func TestEmptySet(t *testing.T) {
	s := Parse("")
	assert.False(t, s.IsAdmin("0xabc"))
	assert.Empty(t, s.Addresses())

	var nilSet *Set
	assert.False(t, nilSet.IsAdmin("0xabc"))
	assert.ErrorIs(t, nilSet.Require("0xabc"), ErrNotAdmin)
}

func TestRequire(t *testing.T) {
	s := New([]string{"0xA"})
	assert.NoError(t, s.Require("0xa"))
	assert.ErrorIs(t, s.Require("0xb"), ErrNotAdmin)
}
