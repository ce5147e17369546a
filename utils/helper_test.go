package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarizeErrors(t *testing.T) {
	errs := []string{"a", "b", "c", "d"}

	assert.Equal(t, []string{"a", "b", "...and 2 more"}, SummarizeErrors(errs, 2))
	assert.Equal(t, errs, SummarizeErrors(errs, 10))
	assert.Empty(t, SummarizeErrors(nil, 3))
}

func TestSplitAndTrim(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitAndTrim(" a , b ,, "))
	assert.Empty(t, SplitAndTrim("  "))
}

func TestEnvBoolDefault(t *testing.T) {
	t.Setenv("FLAG_X", "yes")
	assert.True(t, EnvBoolDefault("FLAG_X", false))

	t.Setenv("FLAG_X", "off")
	assert.False(t, EnvBoolDefault("FLAG_X", true))

	assert.True(t, EnvBoolDefault("FLAG_UNSET_Y", true))
}

func TestDereferencePtr(t *testing.T) {
	v := 7
	assert.Equal(t, 7, DereferencePtr(&v))
	assert.Equal(t, 0, DereferencePtr[int](nil))
	assert.Equal(t, 3, DereferencePtr(nil, 3))
}
