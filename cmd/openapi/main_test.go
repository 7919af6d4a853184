package main

import (
	"testing"

	"uboard/internal/docs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseYAML = `
paths:
  /posts:
    get:
      responses:
        "200": {description: OK}
        "204": {description: Empty}
    post:
      responses:
        "201": {description: Created}
  /posts/{id}:
    get:
      responses:
        "200": {description: OK}
`

func TestCompare(t *testing.T) {
	base, err := parseSpec([]byte(baseYAML))
	require.NoError(t, err)

	same, err := parseSpec([]byte(baseYAML))
	require.NoError(t, err)
	assert.Empty(t, compare(base, same))

	revision, err := parseSpec([]byte(`
paths:
  /posts:
    get:
      responses:
        "200": {description: OK}
`))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"removed operation: POST /posts",
		"removed path: /posts/{id}",
		"removed response code: GET /posts -> 204",
	}, compare(base, revision))
}

func TestParseSpec_Errors(t *testing.T) {
	_, err := parseSpec([]byte("info: {}"))
	assert.Error(t, err)

	_, err = parseSpec([]byte("paths: [1, 2]"))
	assert.Error(t, err)
}

func TestGeneratedDocument(t *testing.T) {
	doc := docs.SwaggerInfo.ReadDoc()

	spec, err := parseSpec([]byte(doc))
	require.NoError(t, err)
	require.Contains(t, spec.Paths, "/posts/{id}/checkin")
	assert.Contains(t, spec.Paths["/posts/{id}/checkin"]["post"].Responses, "409")

	raw, err := exportYAML(doc)
	require.NoError(t, err)
	exported, err := parseSpec(raw)
	require.NoError(t, err)
	assert.Empty(t, compare(spec, exported))
}
