package answer

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/agent-api/core/pkg/agent"
	"github.com/agent-api/core/types"
	"github.com/agent-api/ollama"
)

// NewAgent initializes the reasoning agent against a local Ollama server.
func NewAgent(ctx context.Context, logger *slog.Logger, baseURL string, port int, modelID string) (*agent.DefaultAgent, error) {
	// Check if Ollama is running
	_, err := exec.Command("curl", "-s", fmt.Sprintf("%s:%d/api/tags", baseURL, port)).Output()
	if err != nil {
		return nil, err
	}

	opts := &ollama.ProviderOpts{
		Logger:  logger,
		BaseURL: baseURL,
		Port:    port,
	}
	provider := ollama.NewProvider(opts)

	model := &types.Model{
		ID: modelID,
	}
	provider.UseModel(ctx, model)

	agentConf := &agent.NewAgentConfig{
		Provider: provider,
		Logger:   logger,
		SystemPrompt: "You are a video question-answering assistant. You receive segment " +
			"descriptions, frame timestamps and optional transcript text retrieved from a " +
			"video, and you answer the user's question grounded only in that evidence. " +
			"Always cite the time span your answer comes from.",
	}

	return agent.NewAgent(agentConf), nil
}

// AgentGenerator answers questions with a model, falling back to the
// deterministic TextGenerator when the model call fails.
type AgentGenerator struct {
	agent    *agent.DefaultAgent
	fallback TextGenerator
	logger   *slog.Logger
}

// NewAgentGenerator wraps an initialized agent.
func NewAgentGenerator(a *agent.DefaultAgent, logger *slog.Logger) *AgentGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &AgentGenerator{agent: a, logger: logger}
}

// Answer prompts the model with the retrieved evidence. Evidence-free
// queries return ErrNoEvidence without a model call.
func (g *AgentGenerator) Answer(ctx context.Context, query string, ev Evidence) (string, error) {
	if ev.empty() {
		return "", ErrNoEvidence
	}

	response := g.agent.Run(ctx, agent.WithInput(buildPrompt(query, ev)))
	if response.Err != nil {
		g.logger.Warn("model call failed, falling back to textual answer", "error", response.Err)
		return g.fallback.Answer(ctx, query, ev)
	}
	if len(response.Messages) == 0 {
		g.logger.Warn("model returned no messages, falling back to textual answer")
		return g.fallback.Answer(ctx, query, ev)
	}

	content := response.Messages[len(response.Messages)-1].Content
	if strings.TrimSpace(content) == "" {
		return g.fallback.Answer(ctx, query, ev)
	}
	return content, nil
}

func buildPrompt(query string, ev Evidence) string {
	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(query)
	b.WriteString("\n\nEvidence from the video:\n")

	for _, node := range ev.Nodes {
		fmt.Fprintf(&b, "- [%.2fs - %.2fs] %s\n", node.StartTime, node.EndTime, node.Label)
	}
	for _, frame := range ev.Frames {
		fmt.Fprintf(&b, "- retrieved frame at %.2fs (%s)\n", frame.Timestamp, frame.FramePath)
	}
	if ev.TranscriptText != "" {
		b.WriteString("\nTranscript overlapping the retrieved window:\n")
		b.WriteString(ev.TranscriptText)
		b.WriteString("\n")
	}

	b.WriteString("\nAnswer the question using only this evidence.")
	return b.String()
}
