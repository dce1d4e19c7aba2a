package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/n0madic/go-tongue/internal/types"
)

const disclaimer = "免责声明：本工具利用人工智能技术模拟中医辨证逻辑，生成结果仅供学习参考。中医讲究“四诊合参”，单一舌象不能作为临床诊断依据。如感不适，请咨询线下执业医师。"

// writeReport renders a result for the terminal, followed by the disclaimer.
func writeReport(w io.Writer, r *types.AnalysisResult) error {
	var b strings.Builder

	b.WriteString("诊断报告\n")
	b.WriteString("========\n")
	fmt.Fprintf(&b, "中医体质辨证: %s\n", r.OverallCondition)
	fmt.Fprintf(&b, "舌质表现: %s、%s\n", r.TongueColor, r.TongueShape)
	fmt.Fprintf(&b, "舌苔表现: %s、%s\n", r.CoatingColor, r.CoatingTexture)

	b.WriteString("\n病机解析:\n")
	fmt.Fprintf(&b, "  %s\n", strings.TrimSpace(r.TCMAnalysis))

	writeList(&b, "食疗方案", r.HealthSuggestions.Diet)
	if ref := r.HealthSuggestions.HerbalReference; ref != nil && strings.TrimSpace(*ref) != "" {
		fmt.Fprintf(&b, "  专家推荐: %s\n", strings.TrimSpace(*ref))
	}
	writeList(&b, "调摄建议", r.HealthSuggestions.Lifestyle)
	writeList(&b, "健康提醒", r.Warnings)

	b.WriteString("\n")
	b.WriteString(disclaimer)
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func writeList(b *strings.Builder, title string, items []string) {
	fmt.Fprintf(b, "\n%s:\n", title)
	if len(items) == 0 {
		b.WriteString("  (无)\n")
		return
	}
	for _, item := range items {
		fmt.Fprintf(b, "  \u2022 %s\n", item)
	}
}
