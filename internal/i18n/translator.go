package i18n

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"onfawiki/internal/logger"
	"onfawiki/internal/wiki"
)

const groqEndpoint = "https://api.groq.com/openai/v1/chat/completions"
const groqModel = "openai/gpt-oss-120b"

// Translator turns source text into another language through Groq's chat
// completion API. Without an API key it returns its input unchanged.
type Translator struct {
	apiKey   string
	endpoint string
	client   *http.Client
	log      logger.Logger
}

// NewTranslator builds a translator. A nil client gets a 45 second timeout.
func NewTranslator(apiKey string, client *http.Client, log logger.Logger) *Translator {
	if client == nil {
		client = &http.Client{Timeout: 45 * time.Second}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Translator{apiKey: apiKey, endpoint: groqEndpoint, client: client, log: log}
}

// Enabled reports whether requests go to the API.
func (t *Translator) Enabled() bool {
	return t.apiKey != ""
}

// Translate renders text in lang. HTML markup is kept intact when isHTML is
// set.
func (t *Translator) Translate(ctx context.Context, lang, text string, isHTML bool) (string, error) {
	if strings.TrimSpace(text) == "" || lang == SourceLanguage || !t.Enabled() {
		return text, nil
	}

	system := "You translate Vietnamese wiki text. Reply with the translation only, no commentary."
	if isHTML {
		system += " The input is an HTML fragment: keep every tag and attribute unchanged and translate only the text between tags."
	}
	payload := groqChatRequest{
		Model: groqModel,
		Messages: []groqMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: fmt.Sprintf("Translate into %s:\n\n%s", languageName(lang), text)},
		},
		Temperature: 0.2,
		MaxTokens:   4096,
	}

	buf, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(buf))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", &wiki.TransientError{Op: "translate", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("groq error: status %d body %s", resp.StatusCode, truncate(string(body), 512))
	}

	var gr groqChatResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return "", err
	}

	if len(gr.Choices) == 0 {
		return "", fmt.Errorf("groq response missing choices")
	}

	content := stripCodeFence(strings.TrimSpace(gr.Choices[0].Message.Content))
	if content == "" {
		return "", fmt.Errorf("groq response empty")
	}
	return content, nil
}

// TranslateDocument builds the table for doc in lang. Page bodies are
// translated twice: as plain text for search and as HTML for rendering.
func (t *Translator) TranslateDocument(ctx context.Context, lang string, doc wiki.Document) (Table, error) {
	source := BuildTable(doc)
	out := make(Table, len(source)+len(doc.Pages))

	keys := make([]string, 0, len(source))
	for k := range source {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v, err := t.Translate(ctx, lang, source[k], false)
		if err != nil {
			return nil, fmt.Errorf("translate %s: %w", k, err)
		}
		out[k] = v
	}
	for _, p := range doc.Pages {
		if strings.TrimSpace(p.Content) == "" {
			continue
		}
		v, err := t.Translate(ctx, lang, p.Content, true)
		if err != nil {
			return nil, fmt.Errorf("translate %s: %w", ContentHTMLKey(p.ID), err)
		}
		out[ContentHTMLKey(p.ID)] = v
	}
	t.log.Info("translation table built",
		logger.String("lang", lang),
		logger.Int("keys", len(out)),
		logger.Bool("passthrough", !t.Enabled()),
	)
	return out, nil
}

func languageName(code string) string {
	switch code {
	case "en":
		return "English"
	case "vi":
		return "Vietnamese"
	default:
		return code
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// stripCodeFence removes a ``` or ```html fence the model sometimes wraps
// its answer in.
func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	normalised := strings.ReplaceAll(trimmed, "\r\n", "\n")
	lines := strings.Split(normalised, "\n")
	if len(lines) < 3 {
		return trimmed
	}

	lang := strings.TrimSpace(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(lines[0])), "```"))
	if lang != "" && lang != "html" && lang != "text" {
		return trimmed
	}

	closing := -1
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			closing = i
			break
		}
	}
	if closing == -1 {
		return trimmed
	}

	return strings.TrimSpace(strings.Join(lines[1:closing], "\n"))
}

type groqChatRequest struct {
	Model       string        `json:"model"`
	Messages    []groqMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqChatResponse struct {
	Choices []struct {
		Message groqMessage `json:"message"`
	} `json:"choices"`
}
