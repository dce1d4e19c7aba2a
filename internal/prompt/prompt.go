// Package prompt holds the fixed instruction, user text and response schema
// sent with every tongue analysis call.
package prompt

import (
	_ "embed"
	"strings"
)

//go:embed system_instruction.md
var systemInstruction string

// UserText accompanies the image in the user turn.
const UserText = "请分析这张舌头照片，并按照约定的JSON格式输出中医诊断结果。"

// ResponseMIMEType is requested from the model so it answers with bare JSON.
const ResponseMIMEType = "application/json"

// SchemaName identifies the schema in OpenAI-style response_format payloads.
const SchemaName = "tongue_analysis"

// SystemInstruction returns the TCM practitioner instruction.
func SystemInstruction() string {
	return strings.TrimSpace(systemInstruction)
}
