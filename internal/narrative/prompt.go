package narrative

// SystemPrompt frames the model as a conservative lending fraud analyst.
const SystemPrompt = "You are a senior consumer lending fraud analyst. " +
	"Analyze the provided loan application context to assess: " +
	"1) Identity fraud likelihood, 2) Paystub fraud likelihood, and 3) Overall application risk. " +
	"Be conservative, evidence-based, and concise. " +
	"Express likelihoods as percentages with a one-line rationale. " +
	"Call out key risk signals and any mitigating factors. " +
	"If information is missing, state assumptions explicitly. " +
	"Output a short, structured report suitable for underwriters."

const userPromptPrefix = "Application data (JSON). Use it to produce the report.\n\nDATA: "

// UserPrompt is the user message carrying the serialized application.
func UserPrompt(payload string) string {
	return userPromptPrefix + payload
}
