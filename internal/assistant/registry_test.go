package assistant

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewToolRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewToolRegistry(&echoTool{}, &echoTool{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestNewToolRegistryRejectsNil(t *testing.T) {
	_, err := NewToolRegistry(nil)
	require.Error(t, err)
}

func TestDefinitionsKeepRegistrationOrder(t *testing.T) {
	reg, err := NewToolRegistry(&listTool{}, &echoTool{}, failingTool{})
	require.NoError(t, err)

	var names []string
	for _, d := range reg.Definitions() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"list", "echo", "fail"}, names)
	assert.Equal(t, names, reg.Names())

	_, ok := reg.Get("echo")
	assert.True(t, ok)
	_, ok = reg.Get("nope")
	assert.False(t, ok)
}

func TestDefinitionSchemaShape(t *testing.T) {
	reg, err := NewToolRegistry(&echoTool{})
	require.NoError(t, err)

	data, err := json.Marshal(reg.Definitions()[0].Parameters)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "object", got["type"])
	assert.Equal(t, []any{"text"}, got["required"])
	props := got["properties"].(map[string]any)
	assert.Equal(t, "string", props["text"].(map[string]any)["type"])
}

func TestZeroArgSchemaShape(t *testing.T) {
	reg, err := NewToolRegistry(&listTool{})
	require.NoError(t, err)

	data, err := json.Marshal(reg.Definitions()[0].Parameters)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"object","properties":{}}`, string(data))
}

func decode(t *testing.T, content string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(content), &m), content)
	return m
}

func TestInvokeUnknownTool(t *testing.T) {
	reg, err := NewToolRegistry(&echoTool{})
	require.NoError(t, err)
	d := NewDispatcher(reg)

	for _, name := range []string{"", "search_proper_nouns", "ECHO"} {
		out := d.Invoke(context.Background(), name, `{}`)
		assert.True(t, out.Failed)
		m := decode(t, out.Content)
		assert.Equal(t, "tool "+name+" not found", m["error"])
		assert.NotEmpty(t, m["message"])
	}
}

func TestInvokeSuccess(t *testing.T) {
	echo := &echoTool{}
	reg, err := NewToolRegistry(echo)
	require.NoError(t, err)

	out := NewDispatcher(reg).Invoke(context.Background(), "echo", `{"text":"hi"}`)
	assert.False(t, out.Failed)
	m := decode(t, out.Content)
	assert.Equal(t, "hi", m["data"])
	assert.Equal(t, 1, echo.calls)
}

func TestInvokeZeroArgToolIgnoresPayload(t *testing.T) {
	list := &listTool{}
	reg, err := NewToolRegistry(list)
	require.NoError(t, err)
	d := NewDispatcher(reg)

	for _, payload := range []string{``, `{}`, `{"tables":"x"}`, `not json`} {
		out := d.Invoke(context.Background(), "list", payload)
		assert.False(t, out.Failed, payload)
	}
	require.Len(t, list.gotArgs, 4)
	for _, args := range list.gotArgs {
		assert.Nil(t, args)
	}
}

func TestInvokeArgumentErrors(t *testing.T) {
	echo := &echoTool{}
	reg, err := NewToolRegistry(echo)
	require.NoError(t, err)
	d := NewDispatcher(reg)

	tests := []struct {
		name    string
		payload string
	}{
		{"malformed json", `{"text":`},
		{"not an object", `["hi"]`},
		{"missing required", `{}`},
		{"wrong type", `{"text": 5}`},
		{"extra field", `{"text":"hi","limit":3}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := d.Invoke(context.Background(), "echo", tt.payload)
			assert.True(t, out.Failed)
			m := decode(t, out.Content)
			assert.Contains(t, m["error"], "invalid arguments")
			assert.NotEmpty(t, m["message"])
		})
	}
	assert.Zero(t, echo.calls)
}

func TestInvokeToolErrorAndPanic(t *testing.T) {
	reg, err := NewToolRegistry(failingTool{}, panickingTool{})
	require.NoError(t, err)
	d := NewDispatcher(reg)

	out := d.Invoke(context.Background(), "fail", ``)
	assert.True(t, out.Failed)
	assert.Equal(t, "boom", decode(t, out.Content)["error"])

	out = d.Invoke(context.Background(), "panic", ``)
	assert.True(t, out.Failed)
	assert.Contains(t, decode(t, out.Content)["error"], "kaboom")
}

func TestInvokeErrorResultIsFailed(t *testing.T) {
	reg, err := NewToolRegistry(errorResultTool{})
	require.NoError(t, err)

	out := NewDispatcher(reg).Invoke(context.Background(), "soft_fail", ``)
	assert.True(t, out.Failed)
	m := decode(t, out.Content)
	assert.Equal(t, "no such table: x", m["error"])
	assert.Equal(t, "Query failed.", m["message"])
}
