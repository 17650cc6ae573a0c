package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/Conceptual-Machines/yiyun-api/internal/models"
)

// Builder renders the user turn of the prompt synthesis call
type Builder struct {
	tmpl    *template.Template
	catalog *Catalog
}

// NewPromptBuilder creates a builder from the embedded template
func NewPromptBuilder(loader *Loader, catalog *Catalog) (*Builder, error) {
	tmpl, err := loader.GetSynthesisUserTemplate()
	if err != nil {
		return nil, err
	}
	if catalog == nil {
		catalog = DefaultCatalog
	}
	return &Builder{tmpl: tmpl, catalog: catalog}, nil
}

type synthesisContext struct {
	OriginalText  string
	Understanding string
	ElementsJSON  string
	Answers       []models.ClarificationAnswer
	Interface     models.Interface
	Catalog       TemplateData
}

// BuildSynthesisPrompt embeds the session's input, analysis, answers and the
// inferred interface into the synthesis instruction
func (b *Builder) BuildSynthesisPrompt(sess *models.Session, iface models.Interface) (string, error) {
	data := synthesisContext{
		OriginalText: sess.OriginalInput.Text(),
		Answers:      sess.ClarificationHistory,
		Interface:    iface,
		Catalog:      b.catalog.TemplateData(),
		ElementsJSON: "{}",
	}
	if sess.Analysis != nil {
		data.Understanding = sess.Analysis.Understanding
		if len(sess.Analysis.MusicElements) > 0 {
			encoded, err := marshalNoEscape(sess.Analysis.MusicElements)
			if err != nil {
				return "", fmt.Errorf("failed to encode music elements: %w", err)
			}
			data.ElementsJSON = encoded
		}
	}

	var buf bytes.Buffer
	if err := b.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render synthesis prompt: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// marshalNoEscape keeps CJK text and "&" readable for the model
func marshalNoEscape(v interface{}) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
