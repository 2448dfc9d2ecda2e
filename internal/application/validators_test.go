package application

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-washer/internal/testutils"
)

func TestRegisterWasherValidators(t *testing.T) {
	v := testutils.NewTestValidator()
	require.NoError(t, RegisterWasherValidators(v))

	tests := []struct {
		name  string
		value string
		tag   string
		valid bool
	}{
		{"semver", "1.2.3", "semver", true},
		{"semver with prefix", "v1.2.3", "semver", false},
		{"semver with leading zero", "1.02.3", "semver", false},
		{"semver missing patch", "1.2", "semver", false},
		{"negative semver", "1.-2.3", "semver", false},
		{"known slot", "detergent", "slotid", true},
		{"unknown slot", "bleach", "slotid", false},
		{"additive", "ultimate softener", "additive", true},
		{"water is not an additive", "water", "additive", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Var(tt.value, tt.tag)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
