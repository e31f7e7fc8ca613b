// Package answer turns query rows into a plain-language reply using the
// language model. It never returns an error: empty data and model failures
// both map to fixed messages.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/medgraph/medgraph/pkg/llm"
	"github.com/medgraph/medgraph/pkg/metrics"
	"github.com/medgraph/medgraph/pkg/repo"
)

// Fixed user-facing texts.
const (
	NoInfoMessage = "No information found. Try rephrasing your question or consult a doctor."
	Disclaimer    = "This is for educational purposes only. Consult a doctor for medical advice."
	Apology       = "Sorry, I couldn't generate a response."
)

const systemPrompt = "You are a helpful medical assistant. Be accurate and safe."

const promptTmpl = `Data:
%s

Answer the user's question: %q
Use ONLY the data above. If it does not answer the question, say so.
Use simple language and bullet points.
End with: "%s"`

// Composer writes answers.
type Composer struct {
	model   llm.Chatter
	metrics *metrics.Pipeline
	logger  *slog.Logger
}

// New creates a Composer. A nil model makes every non-empty answer the
// apology.
func New(model llm.Chatter, m *metrics.Pipeline, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{model: model, metrics: m, logger: logger}
}

// BuildPrompt renders one line per record followed by the instructions.
func BuildPrompt(records []repo.Record, question string) string {
	lines := make([]string, len(records))
	for i, r := range records {
		lines[i] = r.Line()
	}
	return fmt.Sprintf(promptTmpl, strings.Join(lines, "\n"), question, Disclaimer)
}

// Compose answers question from records. The model is not called when
// records is empty.
func (c *Composer) Compose(ctx context.Context, records []repo.Record, question string) string {
	if len(records) == 0 {
		return NoInfoMessage
	}
	if c.model == nil {
		return Apology
	}

	start := time.Now()
	reply, err := c.model.Chat(ctx, []llm.Message{
		llm.System(systemPrompt),
		llm.User(BuildPrompt(records, question)),
	})
	c.metrics.ObserveStage("model_answer", start)
	c.metrics.ModelCall("answer", err == nil)
	if err != nil {
		c.logger.Warn("answer: model call failed", "err", err)
		return Apology
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return Apology
	}
	return reply
}
