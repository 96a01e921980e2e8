package version_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/listkit/pkg/version"
)

func TestString(t *testing.T) {
	t.Parallel()

	out := version.String()

	assert.Contains(t, out, "listkit "+version.Version)
	assert.Contains(t, out, "commit "+version.Commit)
}
