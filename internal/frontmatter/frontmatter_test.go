// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package frontmatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInject_Markdown(t *testing.T) {
	meta := Meta{Tags: []string{"docs"}, Category: "documentation", Description: "project guide"}

	out, ok, err := Inject([]byte("# Guide\n\nBody.\n"), "docs/guide.md", meta)
	require.NoError(t, err)
	require.True(t, ok)

	fields, found := Extract(out, "docs/guide.md")
	require.True(t, found)
	assert.Equal(t, "documentation", fields["category"])
	assert.Equal(t, "project guide", fields["description"])
	assert.Empty(t, Missing(fields))

	// The payload below the block is untouched.
	assert.Equal(t, []byte("# Guide\n\nBody.\n"), Strip(out, "docs/guide.md"))
}

func TestInject_PythonDocstringWrap(t *testing.T) {
	meta := Meta{Tags: []string{"core"}, Category: "source", Description: "utilities"}

	src := []byte("import os\n\ndef run():\n    pass\n")
	out, ok, err := Inject(src, "src/utils.py", meta)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Contains(t, string(out), "\"\"\"---\n")
	assert.Contains(t, string(out), "---\"\"\"")

	fields, found := Extract(out, "src/utils.py")
	require.True(t, found)
	assert.Equal(t, "source", fields["category"])
	assert.Equal(t, src, Strip(out, "src/utils.py"))
}

func TestInject_Idempotent(t *testing.T) {
	meta := Meta{Tags: []string{"x"}, Category: "source", Description: "d"}

	out, ok, err := Inject([]byte("body\n"), "a.md", meta)
	require.NoError(t, err)
	require.True(t, ok)

	again, ok, err := Inject(out, "a.md", meta)
	require.NoError(t, err)
	assert.False(t, ok, "existing frontmatter must not be re-injected")
	assert.Equal(t, out, again)
}

func TestInject_UnsupportedType(t *testing.T) {
	src := []byte("a,b\n1,2\n")
	out, ok, err := Inject(src, "data/rows.csv", Meta{Category: "data"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, src, out)
}

func TestInject_ForeignBlockLeftAlone(t *testing.T) {
	src := []byte("---\ntitle: existing\n---\nbody\n")
	out, ok, err := Inject(src, "page.md", Meta{Category: "documentation"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, src, out)
}

func TestExtract_MalformedYAML(t *testing.T) {
	src := []byte("---\n: : broken\n---\nbody\n")
	fields, found := Extract(src, "page.md")
	assert.True(t, found, "a block exists even when its YAML is unusable")
	assert.Empty(t, fields)
	assert.ElementsMatch(t, Required, Missing(fields))
}

func TestStrip_NoBlock(t *testing.T) {
	src := []byte("plain content\n")
	assert.Equal(t, src, Strip(src, "note.md"))
	assert.Equal(t, src, Strip(src, "mod.py"))
}
