package templating

import (
	"bytes"
	"fmt"
	"os"
	"sync"
	"text/template"

	"github.com/yegors/voice-assistant/pkg/logger"
)

// builtinName is the cache key of the built-in system prompt
const builtinName = "builtin:system-prompt"

// Engine handles template loading, caching, and rendering
type Engine struct {
	templateCache map[string]*template.Template
	cacheMutex    sync.RWMutex
	logger        *logger.Logger
}

// NewEngine creates a new template engine
func NewEngine(logger *logger.Logger) *Engine {
	return &Engine{
		templateCache: make(map[string]*template.Template),
		logger:        logger.Named("template-engine"),
	}
}

// RenderTemplate renders the template file at templatePath. An empty path renders the
// built-in system prompt.
func (e *Engine) RenderTemplate(templatePath string, data PromptData) (string, error) {
	e.logger.Debug("Rendering template",
		logger.String("template_path", templatePath),
		logger.Int("max_words", data.MaxWords))

	tmpl, err := e.getTemplate(templatePath)
	if err != nil {
		return "", fmt.Errorf("failed to get template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	rendered := buf.String()
	e.logger.Debug("Template rendered successfully",
		logger.String("template_path", templatePath),
		logger.Int("rendered_length", len(rendered)))

	return rendered, nil
}

// getTemplate retrieves a template from cache or loads it from file
func (e *Engine) getTemplate(templatePath string) (*template.Template, error) {
	key := templatePath
	if key == "" {
		key = builtinName
	}

	e.cacheMutex.RLock()
	if tmpl, exists := e.templateCache[key]; exists {
		e.cacheMutex.RUnlock()
		return tmpl, nil
	}
	e.cacheMutex.RUnlock()

	e.cacheMutex.Lock()
	defer e.cacheMutex.Unlock()

	// Double-check in case another goroutine loaded it while we were waiting
	if tmpl, exists := e.templateCache[key]; exists {
		return tmpl, nil
	}

	tmpl, err := e.loadTemplate(templatePath)
	if err != nil {
		return nil, err
	}

	e.templateCache[key] = tmpl
	e.logger.Debug("Template loaded and cached",
		logger.String("template_path", key))

	return tmpl, nil
}

// loadTemplate loads a template from file
func (e *Engine) loadTemplate(templatePath string) (*template.Template, error) {
	if templatePath == "" {
		return template.New(builtinName).Option("missingkey=error").Parse(DefaultSystemPrompt)
	}

	content, err := os.ReadFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file '%s': %w", templatePath, err)
	}

	tmpl, err := template.New(templatePath).Option("missingkey=error").Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template file '%s': %w", templatePath, err)
	}

	return tmpl, nil
}
