package prompts

import "strings"

// Vars supplies values for the fixed set of recognized placeholders.
type Vars struct {
	Question    string
	ChatHistory string
	Context     string
	CompanyName string
	Services    string
}

// Render substitutes the recognized placeholders
// {question} {chat_history} {context} {company_name} {services}
// into template. Unrecognized placeholders are left untouched.
func Render(template string, v Vars) string {
	replacer := strings.NewReplacer(
		"{question}", v.Question,
		"{chat_history}", v.ChatHistory,
		"{context}", v.Context,
		"{company_name}", v.CompanyName,
		"{services}", v.Services,
	)
	return replacer.Replace(template)
}
