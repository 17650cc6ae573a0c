package prompt

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/Conceptual-Machines/yiyun-api/pkg/embedded"
)

type Loader struct{}

func NewPromptLoader() *Loader {
	return &Loader{}
}

// GetAnalysisSystemPrompt loads the instruction for the input analysis call
func (l *Loader) GetAnalysisSystemPrompt() (string, error) {
	return strings.TrimSpace(string(embedded.AnalysisSystemPromptTxt)), nil
}

// GetSynthesisSystemPrompt loads the system turn of the prompt synthesis call
func (l *Loader) GetSynthesisSystemPrompt() (string, error) {
	return strings.TrimSpace(string(embedded.SynthesisSystemPromptTxt)), nil
}

// GetSynthesisUserTemplate parses the user turn template of the prompt synthesis call
func (l *Loader) GetSynthesisUserTemplate() (*template.Template, error) {
	tmpl, err := template.New("synthesis_user_prompt").
		Funcs(template.FuncMap{"join": joinOptions}).
		Parse(string(embedded.SynthesisUserPromptTmpl))
	if err != nil {
		return nil, fmt.Errorf("failed to parse synthesis prompt template: %w", err)
	}
	return tmpl, nil
}

func joinOptions(values []string) string {
	return strings.Join(values, "、")
}
