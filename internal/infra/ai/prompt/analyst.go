package prompt

// GetSystemPrompt is the fixed persona sent as the system message.
func GetSystemPrompt() string {
	return "You are a professional career coach analyzing LinkedIn profiles."
}

// GetUserPrompt wraps the extracted resume text in the analysis instruction.
// The text is appended verbatim.
func GetUserPrompt(resumeText string) string {
	return "Analyze this resume text as a LinkedIn profile. " +
		"Extract key skills, summarize professional background, " +
		"suggest headline ideas, and recommend improvements.\n\n" +
		"Resume:\n" + resumeText
}
