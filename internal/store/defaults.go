package store

// DefaultIntents is the starter set written by `migrate --seed`.
func DefaultIntents() []*Intent {
	return []*Intent{
		{
			Name:     "greeting",
			Pattern:  "hello|hey|good morning|good evening",
			Response: "Hello! I'm CIPHER BOT. How can I help you today?",
		},
		{
			Name:     "farewell",
			Pattern:  "bye|goodbye|see you",
			Response: "Goodbye! Feel free to come back any time.",
		},
		{
			Name:     "thanks",
			Pattern:  "thank you|thanks|thx",
			Response: "You're welcome! Anything else I can do for you?",
		},
		{
			Name:     "identity",
			Pattern:  "who are you|your name|what are you",
			Response: "I'm CIPHER BOT, an AI assistant. Ask me anything, or switch on reasoning mode for detailed answers.",
		},
		{
			Name:     "help",
			Pattern:  "help|what can you do",
			Response: "I can answer quick questions from my knowledge base, and use a language model for everything else. Turn on reasoning mode for deeper, search-backed answers.",
		},
	}
}
