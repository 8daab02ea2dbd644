package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Learning(t *testing.T) {
	c, err := Load(Learning)
	require.NoError(t, err)

	assert.Equal(t, Learning, c.Name())
	assert.Len(t, c.List(), 16)
	assert.Equal(t, "search_youtube_videos", c.List()[0].Name)

	spec, ok := c.Get("parent_report")
	require.True(t, ok)
	assert.JSONEq(t, `{
		"type": "object",
		"properties": {
			"childId": {"type": "string"},
			"period": {"type": "string", "enum": ["7d", "30d", "90d"]}
		},
		"required": ["childId"]
	}`, string(spec.Parameters))
}

func TestLoad_Basic(t *testing.T) {
	c, err := Load(Basic)
	require.NoError(t, err)

	names := []string{}
	for _, s := range c.List() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"search_docs", "quick_calc"}, names)
}

func TestLoad_Unknown(t *testing.T) {
	_, err := Load("nope")
	assert.ErrorContains(t, err, "unknown tool contract")
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{Basic, Learning}, Names())
}

func TestGet_Missing(t *testing.T) {
	c, err := Load(Basic)
	require.NoError(t, err)

	_, ok := c.Get("search_youtube_videos")
	assert.False(t, ok)
}

func TestDefinitions_OpenAIFormat(t *testing.T) {
	c, err := Load(Basic)
	require.NoError(t, err)

	defs := c.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "function", defs[0]["type"])
	fn := defs[0]["function"].(map[string]any)
	assert.Equal(t, "search_docs", fn["name"])
	params := fn["parameters"].(map[string]any)
	assert.Equal(t, []any{"query"}, params["required"])
}

func TestList_ReturnsCopy(t *testing.T) {
	c, err := Load(Basic)
	require.NoError(t, err)

	list := c.List()
	list[0].Name = "mutated"

	_, ok := c.Get("search_docs")
	assert.True(t, ok)
	assert.Equal(t, "search_docs", c.List()[0].Name)
}

func TestParse_DuplicateName(t *testing.T) {
	_, err := Parse([]byte(`
name: dup
tools:
  - name: a
  - name: a
`))
	assert.ErrorContains(t, err, `duplicate tool "a"`)
}

func TestParse_MissingName(t *testing.T) {
	_, err := Parse([]byte(`tools: [{name: a}]`))
	assert.ErrorContains(t, err, "no name")
}

func TestParse_BadSchema(t *testing.T) {
	_, err := Parse([]byte(`
name: bad
tools:
  - name: a
    parameters:
      type: 42
`))
	assert.ErrorContains(t, err, `compile schema for "a"`)
}

func TestParse_DefaultParameters(t *testing.T) {
	c, err := Parse([]byte(`
name: tiny
tools:
  - name: ping
`))
	require.NoError(t, err)
	spec, ok := c.Get("ping")
	require.True(t, ok)
	assert.JSONEq(t, `{"type":"object","properties":{}}`, string(spec.Parameters))
}

func TestValidate(t *testing.T) {
	c, err := Load(Learning)
	require.NoError(t, err)

	assert.NoError(t, c.Validate("search_youtube_videos", map[string]any{"age": 7, "cefr": "A1"}))
	assert.Error(t, c.Validate("search_youtube_videos", map[string]any{"age": 7}))
	assert.Error(t, c.Validate("search_youtube_videos", map[string]any{"age": "seven", "cefr": "A1"}))
	assert.Error(t, c.Validate("parent_report", map[string]any{"childId": "c", "period": "1y"}))
	assert.ErrorContains(t, c.Validate("nope", nil), "unknown tool nope")
}

func TestValidate_NilArgsAgainstOptionalSchema(t *testing.T) {
	c, err := Load(Learning)
	require.NoError(t, err)

	assert.NoError(t, c.Validate("play_cheer", nil))
}
