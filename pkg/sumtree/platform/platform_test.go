package platform

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribe(t *testing.T) {
	t.Parallel()

	d := Describe()
	assert.NotEmpty(t, d)
	assert.Equal(t, strings.TrimSpace(d), d)
	assert.NotContains(t, d, "\x00")
	assert.NotContains(t, d, "\n")
}

func TestFallback(t *testing.T) {
	t.Parallel()

	assert.Equal(t, runtime.GOOS+" "+runtime.GOARCH, fallback())
}

func TestJoin(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Linux 6.1 x86_64", join("Linux", " 6.1 ", "x86_64"))
	assert.Equal(t, "Darwin arm64", join("Darwin", "", "arm64"))
	assert.Equal(t, "", join())
}
