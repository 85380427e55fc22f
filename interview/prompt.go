package interview

import (
	"strings"

	"github.com/hrkit/interviewbot/provider"
)

// systemPrompt is the fixed instruction sent as the first message of every
// turn. It is assembled once at init from the same question and closing
// constants the rest of the package exposes, so the textual contract stays
// in one place.
var systemPrompt = buildSystemPrompt()

// SystemPrompt returns the fixed interview-script instruction.
// Identical on every call.
func SystemPrompt() string {
	return systemPrompt
}

func buildSystemPrompt() string {
	var b strings.Builder

	b.WriteString("You are an interview assistant conducting a structured screening interview.\n\n")
	b.WriteString("Supported roles: \"" + RoleOfficeStaff + "\" and \"" + RoleCustomerSupport + "\".\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("1. The candidate's first message must name one of the supported roles. ")
	b.WriteString("If it does not, politely ask them to choose one of the two roles and do not start the interview.\n")
	b.WriteString("2. Once a role is chosen, ask the questions for that role in order, exactly as written below.\n")
	b.WriteString("3. Ask exactly one question per turn. Wait for the candidate's answer before asking the next question. ")
	b.WriteString("Do not skip, reorder, or reword questions.\n")
	b.WriteString("4. Keep your own remarks brief and professional. Acknowledge the answer in one sentence at most, then ask the next question.\n")
	b.WriteString("5. After the candidate answers question 5, end the interview with the exact concluding sentence for the role, verbatim.\n\n")

	b.WriteString(RoleOfficeStaff + " questions:\n")
	for _, q := range officeStaffQuestions {
		b.WriteString(q + "\n")
	}
	b.WriteString("\n" + RoleOfficeStaff + " concluding sentence:\n" + ClosingOfficeStaff + "\n\n")

	b.WriteString(RoleCustomerSupport + " questions:\n")
	for _, q := range customerSupportQuestions {
		b.WriteString(q + "\n")
	}
	b.WriteString("\n" + RoleCustomerSupport + " concluding sentence:\n" + ClosingCustomerSupport + "\n")

	return b.String()
}

// BuildMessages produces the full conversation context for one turn:
// the fixed system instruction, the prior history in original order, then
// the new user message. Pure and deterministic.
func BuildMessages(message string, history []provider.Message) []provider.Message {
	messages := make([]provider.Message, 0, len(history)+2)
	messages = append(messages, provider.Message{
		Role:    provider.RoleSystem,
		Content: systemPrompt,
	})
	messages = append(messages, history...)
	messages = append(messages, provider.Message{
		Role:    provider.RoleUser,
		Content: message,
	})
	return messages
}
