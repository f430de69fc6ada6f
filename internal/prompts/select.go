package prompts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/olegiv/logreport-ai-go/internal/console"
)

// ErrTemplateUnavailable is returned when an explicitly requested template cannot be used.
var ErrTemplateUnavailable = errors.New("prompt template unavailable")

// Source identifies where the analysis prompt came from
type Source string

const (
	SourceDefault  Source = "default"
	SourceTemplate Source = "template"
)

// Selection is the outcome of choosing a prompt template.
type Selection struct {
	Source          Source
	TemplateName    string // display name, empty for the default prompt
	TemplateContent string // empty for the default prompt
	CustomText      string
}

// Label returns a short human-readable description of the selection
func (s Selection) Label() string {
	if s.Source == SourceTemplate && s.TemplateName != "" {
		return s.TemplateName
	}
	return "Default"
}

// Selector chooses the prompt for one analysis run.
// An error aborts the run: the context ended or an explicitly named template is unusable.
type Selector interface {
	Select(ctx context.Context) (Selection, error)
}

// Interactive returns a Selector that asks the user on c.
func (s *Store) Interactive(c *console.Console) Selector {
	return &interactiveSelector{store: s, console: c}
}

type interactiveSelector struct {
	store   *Store
	console *console.Console
}

func (i *interactiveSelector) Select(ctx context.Context) (Selection, error) {
	return i.store.SelectInteractive(ctx, i.console)
}

// SelectInteractive lists the templates plus a trailing "Default" option and reads a choice.
// Invalid input or an unreadable template falls back to the default prompt with a warning.
// Afterwards the user may add free-form instructions. Only a cancelled ctx is an error.
func (s *Store) SelectInteractive(ctx context.Context, c *console.Console) (Selection, error) {
	templates := s.List()
	defaultOption := len(templates) + 1

	options := make([]string, 0, defaultOption)
	for _, t := range templates {
		options = append(options, t.DisplayName)
	}
	options = append(options, "Default (general log analysis)")
	c.ShowMenu("Select Analysis Template", options)

	selection := Selection{Source: SourceDefault}

	choice, err := c.ReadChoice(ctx, fmt.Sprintf("Enter choice [1-%d]", defaultOption), 1, defaultOption)
	switch {
	case ctx.Err() != nil:
		return selection, ctx.Err()
	case errors.Is(err, io.EOF):
		return selection, nil
	case err != nil:
		c.Warn("Invalid selection, using the default analysis prompt.")
		s.log.Warn().Err(err).Msg("Invalid template selection, using default")
	case choice < defaultOption:
		t := templates[choice-1]
		content, readErr := s.Read(t.FilePath)
		if readErr != nil || content == "" {
			c.Warn(fmt.Sprintf("Could not read template %q, using the default analysis prompt.", t.DisplayName))
			s.log.Warn().Err(readErr).Str("template", t.FileName).Msg("Template unreadable, using default")
			break
		}
		selection = Selection{
			Source:          SourceTemplate,
			TemplateName:    t.DisplayName,
			TemplateContent: content,
		}
		c.Success(fmt.Sprintf("Using template: %s", t.DisplayName))
	default:
		c.Info("Using the default analysis prompt.")
	}

	if c.Confirm(ctx, "Add additional instructions?") {
		text, err := c.ReadLine(ctx, "Additional instructions")
		if err == nil {
			selection.CustomText = strings.TrimSpace(text)
		}
	}
	if ctx.Err() != nil {
		return selection, ctx.Err()
	}

	return selection, nil
}

// Fixed returns a Selector that resolves templateName without user interaction.
// An empty name selects the default prompt; an unknown or unreadable one is an error.
func (s *Store) Fixed(templateName, customText string) Selector {
	return &fixedSelector{store: s, name: templateName, customText: customText}
}

type fixedSelector struct {
	store      *Store
	name       string
	customText string
}

func (f *fixedSelector) Select(ctx context.Context) (Selection, error) {
	selection := Selection{Source: SourceDefault, CustomText: strings.TrimSpace(f.customText)}
	if strings.TrimSpace(f.name) == "" {
		return selection, nil
	}

	t, err := f.store.Find(f.name)
	if err != nil {
		f.store.log.Warn().Err(err).Msg("Requested template not found")
		return selection, fmt.Errorf("%w: %w", ErrTemplateUnavailable, err)
	}
	content, err := f.store.Read(t.FilePath)
	if err == nil && content == "" {
		err = fmt.Errorf("template %s is empty", t.FileName)
	}
	if err != nil {
		f.store.log.Warn().Err(err).Str("template", t.FileName).Msg("Requested template unreadable")
		return selection, fmt.Errorf("%w: %w", ErrTemplateUnavailable, err)
	}

	selection.Source = SourceTemplate
	selection.TemplateName = t.DisplayName
	selection.TemplateContent = content
	return selection, nil
}
