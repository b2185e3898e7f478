package reviewer

import (
	"strings"
	"text/template"

	"github.com/forgesmith/revpilot/internal/core"
)

const systemPrompt = `You are an experienced code reviewer. Review the supplied pull request diff and respond ONLY with a JSON object of this shape:
{
  "decision": "APPROVED" | "REQUEST_CHANGES" | "COMMENT",
  "summary": "overall assessment in a few sentences",
  "comments": [
    {
      "path": "file path from the diff",
      "new_line": <line number on the new side, 0 if commenting the old side>,
      "old_line": <line number on the old side, 0 if commenting the new side>,
      "body": "**[CATEGORY:SEVERITY]** finding description",
      "suggestion": "optional replacement code for the commented line"
    }
  ]
}
Exactly one of new_line/old_line must be non-zero per comment. CATEGORY is one of BUG, SECURITY, PERFORMANCE, STYLE, DOCS, TEST, REFACTOR; SEVERITY is one of CRITICAL, HIGH, MEDIUM, LOW. Comment only on lines present in the diff. Return valid JSON, no markdown fencing.`

var promptFuncs = template.FuncMap{
	"slug": func(sha string) string {
		if len(sha) > 8 {
			return sha[:8]
		}
		return sha
	},
	"firstLine": func(msg string) string {
		if idx := strings.IndexByte(msg, '\n'); idx >= 0 {
			return msg[:idx]
		}
		return msg
	},
}

var promptTemplate = template.Must(template.New("review").Funcs(promptFuncs).Parse(`Review this pull request.

Repository: {{.RepoFullName}}
Title: {{.PRTitle}}
{{- if .PRBody}}
Description:
{{.PRBody}}
{{- end}}
{{- if .Commits}}

Commits under review:
{{- range .Commits}}
- {{slug .SHA}} {{firstLine .Message}}
{{- end}}
{{- end}}
{{- if .Instructions}}

Repository-specific instructions:
{{- range .Instructions}}
- {{.}}
{{- end}}
{{- end}}

Diff:
{{.Diff}}
`))

func renderPrompt(req *core.ReviewRequest) (string, error) {
	var b strings.Builder
	if err := promptTemplate.Execute(&b, req); err != nil {
		return "", err
	}
	return b.String(), nil
}
