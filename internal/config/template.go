package config

import (
	"bytes"
	"text/template"
)

// Render executes content as a text/template over data. Missing keys are
// errors rather than "<no value>".
func Render(content string, data any) (string, error) {
	tmpl, err := template.New("xal").Option("missingkey=error").Parse(content)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
