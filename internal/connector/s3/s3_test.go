package s3

import (
	"testing"

	"github.com/gobwas/glob"
	"github.com/stretchr/testify/assert"
)

func TestMatchesAny_FiltersByIncludeGlob(t *testing.T) {
	t.Parallel()

	g, err := glob.Compile("docs/**/*.md", '/')
	assert.NoError(t, err)

	c := &Connector{includePatterns: []glob.Glob{g}}
	assert.True(t, c.matchesAny("docs/guide/intro.md"))
	assert.False(t, c.matchesAny("docs/guide/intro.txt"))
	assert.False(t, c.matchesAny("other/intro.md"))
}

func TestDerefStr_NilFallsBackToOctetStream(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "application/octet-stream", derefStr(nil))
	s := "text/plain"
	assert.Equal(t, "text/plain", derefStr(&s))
}
