package ticket

import "strings"

const (
	summaryInstruction = "Summarize this customer support ticket in 2-3 sentences. Focus on the main issue and customer sentiment."
	replyInstruction   = "Based on this customer support ticket, suggest a professional and helpful reply. Keep it concise (3-4 sentences) and empathetic."

	contextHeader = "Recent similar tickets handled:"
	contextSuffix = "Use patterns from previous tickets to maintain consistency."
)

// ContextBlock renders the summaries of recent records as a bulleted list
// followed by the consistency instruction. It is empty when recent is empty.
func ContextBlock(recent []Record) string {
	if len(recent) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(contextHeader)
	b.WriteByte('\n')
	for _, r := range recent {
		b.WriteString("- ")
		b.WriteString(r.Summary)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	b.WriteString(contextSuffix)
	return b.String()
}

// SummaryPrompt builds the prompt asking for a short, sentiment-aware summary.
func SummaryPrompt(text string, source Source, contextBlock string) string {
	return buildPrompt(summaryInstruction, "Summary:", text, source, contextBlock)
}

// ReplyPrompt builds the prompt asking for an empathetic suggested reply.
func ReplyPrompt(text string, source Source, contextBlock string) string {
	return buildPrompt(replyInstruction, "Suggested Reply:", text, source, contextBlock)
}

func buildPrompt(instruction, trailer, text string, source Source, contextBlock string) string {
	var b strings.Builder
	b.WriteString(instruction)
	b.WriteString("\n\n")
	if source != SourceNone {
		b.WriteString("Ticket Source: ")
		b.WriteString(string(source))
		b.WriteByte('\n')
	}
	b.WriteString("Ticket: ")
	b.WriteString(text)
	b.WriteString("\n\n")
	if contextBlock != "" {
		b.WriteString(contextBlock)
		b.WriteString("\n\n")
	}
	b.WriteString(trailer)
	return b.String()
}
