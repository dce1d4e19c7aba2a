package prompt

import "strings"

func str(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func strList(description string) map[string]any {
	return map[string]any{
		"type":        "array",
		"items":       map[string]any{"type": "string"},
		"description": description,
	}
}

// ResponseSchema returns the JSON Schema the model must answer with.
// A fresh map is built on each call so callers may mutate it.
func ResponseSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"tongueColor":      str("舌质颜色描述"),
			"tongueShape":      str("舌体形状描述"),
			"coatingColor":     str("舌苔颜色描述"),
			"coatingTexture":   str("舌苔质地描述"),
			"overallCondition": str("总体中医体质判断"),
			"tcmAnalysis":      str("详细的中医理论分析过程"),
			"healthSuggestions": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"diet":            strList("建议饮食"),
					"lifestyle":       strList("生活习惯建议"),
					"herbalReference": str("食疗或非处方草本参考（可选）"),
				},
				"required": []string{"diet", "lifestyle"},
			},
			"warnings": strList("健康警示"),
		},
		"required": []string{
			"tongueColor",
			"tongueShape",
			"coatingColor",
			"coatingTexture",
			"overallCondition",
			"tcmAnalysis",
			"healthSuggestions",
			"warnings",
		},
	}
}

// GeminiSchema converts a JSON Schema map to the upper-case type enum form
// the Gemini REST API expects.
// The input is not modified.
func GeminiSchema(schema map[string]any) map[string]any {
	if schema == nil {
		return nil
	}
	return upperTypes(schema)
}

func upperTypes(node map[string]any) map[string]any {
	out := make(map[string]any, len(node))
	for k, v := range node {
		switch val := v.(type) {
		case string:
			if k == "type" {
				val = strings.ToUpper(val)
			}
			out[k] = val
		case map[string]any:
			if k == "properties" {
				props := make(map[string]any, len(val))
				for name, sub := range val {
					if m, ok := sub.(map[string]any); ok {
						props[name] = upperTypes(m)
					} else {
						props[name] = sub
					}
				}
				out[k] = props
				continue
			}
			out[k] = upperTypes(val)
		default:
			out[k] = v
		}
	}
	return out
}
