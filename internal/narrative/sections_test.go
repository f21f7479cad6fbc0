package narrative

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnsureSections_WrapsUnlabelledText(t *testing.T) {
	out, repaired := EnsureSections("  Looks fine.\n")

	assert.True(t, repaired)
	assert.Equal(t, "Identity Fraud Risk:\nLooks fine.\n\n"+
		"Paystub Fraud Risk:\n(see analysis above)\n\n"+
		"Overall Application Risk:\n(see analysis above)\n", out)

	identity := strings.SplitN(out, "Paystub Fraud Risk:", 2)[0]
	assert.Contains(t, identity, "Looks fine.")
	for _, label := range SectionLabels {
		assert.Contains(t, out, label)
	}
}

func TestEnsureSections_KeepsLabelledText(t *testing.T) {
	tests := []string{
		"Identity Fraud Risk: 5% - documents consistent.",
		"Summary\nPaystub Fraud Risk: 10%",
		"Overall Application Risk: low",
		"Identity Fraud Risk: 2%\nPaystub Fraud Risk: 3%\nOverall Application Risk: low",
	}
	for _, in := range tests {
		out, repaired := EnsureSections("\n  " + in + "  \n")
		assert.False(t, repaired)
		assert.Equal(t, in, out)
	}
}

func TestEnsureSections_LabelsAreCaseSensitive(t *testing.T) {
	out, repaired := EnsureSections("identity fraud risk: low")
	assert.True(t, repaired)
	assert.Contains(t, out, "identity fraud risk: low")
}

func TestEnsureSections_Empty(t *testing.T) {
	out, repaired := EnsureSections("   ")
	assert.True(t, repaired)
	assert.True(t, strings.HasPrefix(out, "Identity Fraud Risk:\n\n\nPaystub Fraud Risk:"))
}
