// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"text/template"
)

var matchPromptTmpl = template.Must(template.New("match").Parse(`You are an assistant that screens academic papers. Decide whether the paper below fits the research I am looking for.

Title: {{.Title}}
Abstract: {{.Abstract}}

The research I am looking for:
{{.Target}}

---

Consider how relevant the topic is and how closely the paper's key concepts match the description. If the paper fits, answer only "Yes". If it does not, answer only "No".`))

var translatePromptTmpl = template.Must(template.New("translate").Parse(`Translate the following academic abstract into Simplified Chinese:
{{.Abstract}}

Notes:
- Keep English terms that Chinese-language papers usually leave untranslated, e.g. Transformer.
- For other key terms give the Chinese followed by the English in parentheses, e.g. 后门攻击(Backdoor Attack).
- Output only the translation, with no explanation.`))

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
