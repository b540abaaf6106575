package adapt

import (
	"strings"
)

const defaultTask = "Adapt the following text for {audience}. Apply the following strategies:"

// BuildPrompt lays out the rewrite instruction for one unit: the task,
// strategy groups, formatting conventions, the unit title and the
// original body verbatim.
func BuildPrompt(p Profile, title, body string) string {
	task := p.Task
	if task == "" {
		task = defaultTask
	}

	var sb strings.Builder
	sb.WriteString(strings.ReplaceAll(task, "{audience}", p.Audience))
	sb.WriteString("\n")

	for _, g := range p.Strategies {
		sb.WriteString("\n**")
		sb.WriteString(g.Title)
		sb.WriteString("**\n")
		for _, item := range g.Items {
			sb.WriteString("- ")
			sb.WriteString(item)
			sb.WriteString("\n")
		}
	}

	if len(p.Formatting) > 0 {
		sb.WriteString("\n**Formatting**\n")
		for _, f := range p.Formatting {
			sb.WriteString("- ")
			sb.WriteString(f)
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\n**Title:**\n")
	sb.WriteString(title)
	sb.WriteString("\n\n**Original content:**\n")
	sb.WriteString(body)
	sb.WriteString("\n\n**Adaptation:**\n")
	return sb.String()
}
