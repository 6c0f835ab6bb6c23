package chatbot

// System instructions for each node. The wording follows the upstream
// chatbot's prompts.
const (
	classifierPrompt = `Classify the user message as either:
- 'logical': if it asks for facts, logical analysis, reasoning, information, or practical implications.
- 'emotional': if it asks for emotional support, therapy, or deals with feelings, etc.`

	logicalPrompt = `You are a logical assistant. Use tools when possible. Otherwise, answer briefly.`

	therapistPrompt = `You are a kind, supportive assistant. Respond briefly with warmth and empathy.`
)

// RefusalReply is the fixed user-visible reply when tool approval is withheld.
const RefusalReply = "I don’t have access to real-time data. If you want help in any other thing, do let me know."
