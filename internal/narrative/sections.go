package narrative

import "strings"

const (
	SectionIdentity = "Identity Fraud Risk"
	SectionPaystub  = "Paystub Fraud Risk"
	SectionOverall  = "Overall Application Risk"
)

// SectionLabels are the headers every returned report carries.
var SectionLabels = []string{SectionIdentity, SectionPaystub, SectionOverall}

// EnsureSections trims text and, when none of the section labels appear in
// it, wraps it under the identity section with placeholders for the other
// two. The boolean reports whether the wrapper was applied.
func EnsureSections(text string) (string, bool) {
	content := strings.TrimSpace(text)
	for _, label := range SectionLabels {
		if strings.Contains(content, label) {
			return content, false
		}
	}

	var b strings.Builder
	b.WriteString(SectionIdentity + ":\n")
	b.WriteString(content)
	b.WriteString("\n\n" + SectionPaystub + ":\n(see analysis above)\n")
	b.WriteString("\n" + SectionOverall + ":\n(see analysis above)\n")
	return b.String(), true
}
