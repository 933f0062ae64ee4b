// Package report 负责把各类报告输出为带样式的终端文本或 JSON
package report

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// 配色
var (
	primaryColor = lipgloss.Color("#1E88E5")
	okColor      = lipgloss.Color("#43A047")
	warnColor    = lipgloss.Color("#FB8C00")
	errorColor   = lipgloss.Color("#E53935")
	mutedColor   = lipgloss.Color("#888888")
)

// 样式
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	KeyStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	ValueStyle = lipgloss.NewStyle().
			Bold(true)

	OKStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(okColor)

	WarnStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(warnColor)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(errorColor)
)

// PrintError 输出错误信息
func PrintError(w io.Writer, message string) {
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("错误:"), message)
}

// statusStyle 按状态选择样式
func statusStyle(status string) lipgloss.Style {
	switch status {
	case "OK":
		return OKStyle
	case "WARN":
		return WarnStyle
	default:
		return ErrorStyle
	}
}

// gradeStyle 按字母等级选择样式
func gradeStyle(grade string) lipgloss.Style {
	switch grade {
	case "A", "B", "Excellent", "Very Good":
		return OKStyle
	case "C", "D", "Good", "Fair":
		return WarnStyle
	default:
		return ErrorStyle
	}
}
