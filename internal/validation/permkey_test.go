package validation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidPermissionKey(t *testing.T) {
	valid := []string{
		"admin.access",
		"payments.view",
		"pos.manage",
		"a",
		"a1",
		"claims_manage",
		"x-y.z",
		// Sintaxis laxa en el medio; el catálogo filtra después.
		"a..b",
	}
	for _, k := range valid {
		require.True(t, ValidPermissionKey(k), "expected valid: %q", k)
	}

	invalid := []string{
		"",
		"BAD",
		"Payments.View",
		".leader",
		"trailer.",
		"con espacios",
		"-lead",
		"trail-",
	}
	for _, k := range invalid {
		require.False(t, ValidPermissionKey(k), "expected invalid: %q", k)
	}
}

func TestValidPermissionKeyLength(t *testing.T) {
	long := make([]byte, 64)
	for i := range long {
		long[i] = 'a'
	}
	require.True(t, ValidPermissionKey(string(long)))
	require.False(t, ValidPermissionKey(string(long)+"a"))
}

func TestFilterPermissionKeys(t *testing.T) {
	in := []string{"payments.view", "BOGUS", "roles.manage", "", "users.view"}
	out := FilterPermissionKeys(in)
	require.Equal(t, []string{"payments.view", "roles.manage", "users.view"}, out)

	// No muta el slice de entrada.
	require.Equal(t, "BOGUS", in[1])

	require.Empty(t, FilterPermissionKeys(nil))
	require.Empty(t, FilterPermissionKeys([]string{"INVALID"}))
}
