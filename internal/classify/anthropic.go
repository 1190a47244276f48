package classify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"mbox-addressbook/internal/models"
)

// AnthropicDelegate asks a Claude model to pick a category for a contact.
type AnthropicDelegate struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicDelegate creates a delegate from the enrichment settings. The
// API key is read from the environment variable the settings name.
func NewAnthropicDelegate(cfg models.EnrichmentConfig) (*AnthropicDelegate, error) {
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("enrichment enabled but %s is not set", cfg.APIKeyEnv)
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicDelegate{client: &client, model: cfg.Model}, nil
}

// Classify sends one contact and returns the model's raw answer.
func (d *AnthropicDelegate) Classify(ctx context.Context, contact models.CanonicalContact) (string, error) {
	response, err := d.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(d.model),
		MaxTokens: 16,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(Prompt(contact))),
		},
	})
	if err != nil {
		return "", fmt.Errorf("API call failed: %w", err)
	}

	var text string
	for _, block := range response.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return "", errors.New("empty response")
	}
	return text, nil
}

// Prompt renders the classification request for one contact.
func Prompt(c models.CanonicalContact) string {
	var b strings.Builder
	b.WriteString("You classify contacts in a mortgage loan officer's address book.\n")
	b.WriteString("Answer with exactly one word from this list and nothing else: ")
	names := make([]string, len(models.Categories))
	for i, cat := range models.Categories {
		names[i] = string(cat)
	}
	b.WriteString(strings.Join(names, ", "))
	b.WriteString(".\n\n")

	fmt.Fprintf(&b, "Email: %s\n", c.Email)
	if c.FullName != "" {
		fmt.Fprintf(&b, "Name: %s\n", c.FullName)
	}
	if c.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", c.Title)
	}
	if c.Company != "" {
		fmt.Fprintf(&b, "Company: %s\n", c.Company)
	}
	fmt.Fprintf(&b, "Messages sent by owner: %d\nMessages received by owner: %d\n", c.SentTo, c.ReceivedFrom)
	if len(c.Subjects) > 0 {
		b.WriteString("Recent subjects:\n")
		for _, s := range c.Subjects {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}
	return b.String()
}
