// Package interview encodes the fixed interview script and builds the
// per-turn message context sent to the completion endpoint.
package interview

import "strings"

// Supported interview roles. The candidate's first message must name one.
const (
	RoleOfficeStaff     = "Office Staff"
	RoleCustomerSupport = "Customer Support"
)

// Concluding sentences, one per role. These exact strings are embedded in
// the system prompt and matched by Concluded; changing one without the
// other breaks end-of-interview detection.
const (
	ClosingOfficeStaff     = "That concludes the Office Staff interview. Thank you for your time, and we will be in touch with the next steps."
	ClosingCustomerSupport = "That concludes the Customer Support interview. Thank you for your time, and we will be in touch with the next steps."
)

// officeStaffQuestions is the ordered 5-question script for the
// Office Staff role.
var officeStaffQuestions = [5]string{
	"Question 1: Please tell me briefly about your previous office or administrative experience and the responsibilities you held.",
	"Question 2: Which office software and tools are you comfortable with, and how have you used them in your daily work?",
	"Question 3: Describe a time you had to manage several deadlines at once. How did you prioritize?",
	"Question 4: How do you handle sensitive or confidential information in the workplace?",
	"Question 5: What does good internal communication look like to you, and how do you contribute to it?",
}

// customerSupportQuestions is the ordered 5-question script for the
// Customer Support role.
var customerSupportQuestions = [5]string{
	"Question 1: Please tell me briefly about your previous customer-facing experience.",
	"Question 2: Describe a time you dealt with an upset customer. What did you do, and how did it end?",
	"Question 3: How do you balance resolving a customer's issue quickly with following company policy?",
	"Question 4: Which support channels (phone, email, chat) have you worked with, and which do you prefer? Why?",
	"Question 5: How do you keep your product knowledge up to date in a fast-changing environment?",
}

// Questions returns the ordered question script for a role, or nil for an
// unsupported role name.
func Questions(role string) []string {
	switch role {
	case RoleOfficeStaff:
		return officeStaffQuestions[:]
	case RoleCustomerSupport:
		return customerSupportQuestions[:]
	default:
		return nil
	}
}

// Concluded reports whether the assistant's reply contains a role's exact
// concluding sentence. Callers use this to detect the end of an interview;
// the orchestrator itself has no notion of "finished".
func Concluded(content string) bool {
	return strings.Contains(content, ClosingOfficeStaff) ||
		strings.Contains(content, ClosingCustomerSupport)
}
