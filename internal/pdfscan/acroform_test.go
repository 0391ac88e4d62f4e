package pdfscan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppendOptionKeepsDiscoveryOrder(t *testing.T) {
	seen := make(map[string]bool)
	var options []string

	options = appendOption(options, seen, "Yes")
	options = appendOption(options, seen, "/On")
	options = appendOption(options, seen, "Yes")
	options = appendOption(options, seen, "/Yes")
	options = appendOption(options, seen, "Checked")

	// First-seen order survives; duplicates collapse regardless of
	// slash spelling.
	assert.Equal(t, []string{"/Yes", "/On", "/Checked"}, options)
}

func TestWithSlash(t *testing.T) {
	assert.Equal(t, "/Yes", withSlash("Yes"))
	assert.Equal(t, "/Yes", withSlash("/Yes"))
}
