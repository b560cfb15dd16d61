package llm

const (
	standardSystemPrompt = "You are CIPHER BOT, a helpful AI assistant. Provide clear, direct, and useful responses. Keep answers concise and to the point."

	reasoningSystemPrompt = `You are CIPHER BOT, an intelligent AI assistant.

When the user asks for current events (like 'news', 'weather', or 'today'), you MUST use the integrated Google Search tool to find the most up-to-date information.

Your task is to:
1. Analyze the user's request (e.g., "news in chandigarh").
2. Use Google Search to find relevant, recent articles.
3. Synthesize and summarize the search results into a clear, helpful answer.
4. Mention the sources for the information (e.g., "According to the Times of India...").

Provide ONLY the final, summarized answer. Do NOT show your step-by-step analysis.`

	standardMaxOutputTokens  = 300
	reasoningMaxOutputTokens = 500
	defaultTemperature       = 0.7
)

// Prompt is the provider-neutral shape of one generation call.
type Prompt struct {
	System          string
	User            string
	MaxOutputTokens int
	Temperature     float32
}

func BuildPrompt(req Request) Prompt {
	if req.Reasoning {
		return Prompt{
			System:          reasoningSystemPrompt,
			User:            req.Message,
			MaxOutputTokens: reasoningMaxOutputTokens,
			Temperature:     defaultTemperature,
		}
	}
	return Prompt{
		System:          standardSystemPrompt,
		User:            req.Message,
		MaxOutputTokens: standardMaxOutputTokens,
		Temperature:     defaultTemperature,
	}
}

// Inline folds the system prompt into a single user turn, for providers
// called without a separate system role.
func (p Prompt) Inline(reasoning bool) string {
	label := "User"
	if reasoning {
		label = "User question"
	}
	return p.System + "\n\n" + label + ": " + p.User
}
