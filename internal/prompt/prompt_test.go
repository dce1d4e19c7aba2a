package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemInstructionEmbedded(t *testing.T) {
	got := SystemInstruction()
	assert.Contains(t, got, "舌诊")
	assert.Contains(t, got, "JSON")
	assert.Equal(t, got, SystemInstruction())
}

func TestResponseSchemaRequiredFields(t *testing.T) {
	schema := ResponseSchema()
	assert.Equal(t, "object", schema["type"])
	required, ok := schema["required"].([]string)
	require.True(t, ok)
	assert.Len(t, required, 8)
	assert.Contains(t, required, "warnings")

	props := schema["properties"].(map[string]any)
	suggestions := props["healthSuggestions"].(map[string]any)
	assert.Equal(t, []string{"diet", "lifestyle"}, suggestions["required"])
}

func TestResponseSchemaIsFreshPerCall(t *testing.T) {
	a := ResponseSchema()
	a["type"] = "mutated"
	assert.Equal(t, "object", ResponseSchema()["type"])
}

func TestGeminiSchemaUppercasesTypes(t *testing.T) {
	schema := GeminiSchema(ResponseSchema())
	assert.Equal(t, "OBJECT", schema["type"])

	props := schema["properties"].(map[string]any)
	assert.Equal(t, "STRING", props["tongueColor"].(map[string]any)["type"])
	assert.Equal(t, "舌质颜色描述", props["tongueColor"].(map[string]any)["description"])

	warnings := props["warnings"].(map[string]any)
	assert.Equal(t, "ARRAY", warnings["type"])
	assert.Equal(t, "STRING", warnings["items"].(map[string]any)["type"])

	suggestions := props["healthSuggestions"].(map[string]any)
	assert.Equal(t, "OBJECT", suggestions["type"])
	diet := suggestions["properties"].(map[string]any)["diet"].(map[string]any)
	assert.Equal(t, "ARRAY", diet["type"])

	// property names are never treated as type values
	_, hasTongueColor := props["tongueColor"]
	assert.True(t, hasTongueColor)
	assert.Equal(t, "object", ResponseSchema()["type"])
}
