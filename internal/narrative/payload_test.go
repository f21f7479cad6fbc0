package narrative

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeJSON(t *testing.T, s string) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(s), &out), "payload: %s", s)
	return out
}

func TestBuildPayload_Mapping(t *testing.T) {
	app := map[string]interface{}{
		"applicant": map[string]interface{}{"name": "Jane Doe"},
		"paystub":   map[string]interface{}{"net_pay": 2900.00},
	}

	out := BuildPayload(app)

	assert.JSONEq(t, `{"applicant":{"name":"Jane Doe"},"paystub":{"net_pay":2900}}`, out)
	got := decodeJSON(t, out)
	assert.Contains(t, got, "applicant")
	assert.Contains(t, got, "paystub")
}

func TestBuildPayload_SortedKeys(t *testing.T) {
	out := BuildPayload(map[string]int{"zeta": 1, "alpha": 2, "mid": 3})
	assert.Equal(t, `{"alpha":2,"mid":3,"zeta":1}`, out)
}

func TestBuildPayload_Struct(t *testing.T) {
	type paystub struct {
		Employer string  `json:"employer"`
		Gross    float64 `json:"gross_pay"`
		Note     string  `json:"note,omitempty"`
	}
	out := BuildPayload(paystub{Employer: "SampleCo", Gross: 4000})
	assert.Equal(t, `{"employer":"SampleCo","gross_pay":4000}`, out)
}

func TestBuildPayload_ValidJSONStringPassesThrough(t *testing.T) {
	tests := []string{
		`{"applicant": {"name": "Jane Doe"}}`,
		`[1, 2, 3]`,
		`"just a string"`,
		`42`,
		"{\n  \"b\": 1,\n  \"a\": 2\n}",
	}
	for _, in := range tests {
		assert.Equal(t, in, BuildPayload(in))
		assert.Equal(t, in, BuildPayload([]byte(in)))
		assert.Equal(t, in, BuildPayload(json.RawMessage(in)))
	}
}

func TestBuildPayload_InvalidStringIsWrapped(t *testing.T) {
	tests := []string{
		"applicant Jane Doe, net pay 2900",
		`{"applicant": `,
		"",
		"   ",
		"<script>&</script>",
	}
	for _, in := range tests {
		out := BuildPayload(in)
		got := decodeJSON(t, out)
		assert.Equal(t, in, got["raw_application"])
		assert.Len(t, got, 1)
	}
}

func TestBuildPayload_NonSerializableValuesAreCoerced(t *testing.T) {
	ch := make(chan int)
	app := map[string]interface{}{
		"channel": ch,
		"func":    func() {},
		"nan":     math.NaN(),
		"inf":     math.Inf(1),
		"complex": complex(1, 2),
		"nested": map[string]interface{}{
			"ok":  "kept",
			"bad": []interface{}{1, math.NaN()},
		},
	}

	out := BuildPayload(app)
	got := decodeJSON(t, out)

	assert.IsType(t, "", got["channel"])
	assert.IsType(t, "", got["func"])
	assert.Equal(t, "NaN", got["nan"])
	assert.Equal(t, "+Inf", got["inf"])
	assert.Equal(t, "(1+2i)", got["complex"])

	nested := got["nested"].(map[string]interface{})
	assert.Equal(t, "kept", nested["ok"])
	assert.Equal(t, []interface{}{float64(1), "NaN"}, nested["bad"])
}

func TestBuildPayload_NonStringKeys(t *testing.T) {
	out := BuildPayload(map[bool]string{true: "yes", false: "no"})
	got := decodeJSON(t, out)
	assert.Equal(t, "yes", got["true"])
	assert.Equal(t, "no", got["false"])
}

func TestBuildPayload_Nil(t *testing.T) {
	out := BuildPayload(nil)
	assert.NotEmpty(t, out)
	assert.True(t, json.Valid([]byte(out)))
}

func TestBuildPayload_PreservesLargeNumbers(t *testing.T) {
	out := BuildPayload(map[string]interface{}{"loan_id": int64(9007199254740993)})
	assert.Equal(t, `{"loan_id":9007199254740993}`, out)
}

func TestBuildPayload_EmbeddedStructsAreFlattened(t *testing.T) {
	type Applicant struct {
		Name string `json:"name"`
	}
	type caseFile struct {
		Applicant
		Score float64 `json:"score"`
	}

	assert.Equal(t, `{"name":"Jane Doe","score":0.5}`, BuildPayload(caseFile{Applicant{"Jane Doe"}, 0.5}))
	assert.Equal(t, `{"name":"Jane Doe","score":"NaN"}`, BuildPayload(caseFile{Applicant{"Jane Doe"}, math.NaN()}))
}

func TestBuildPayload_UnexportedEmbeddedFieldsAreKept(t *testing.T) {
	type inner struct {
		Inner string `json:"inner"`
		Count int    `json:"count,omitempty"`
		note  string
	}
	type outer struct {
		inner
		Ch chan int `json:"ch"`
	}

	got := decodeJSON(t, BuildPayload(outer{inner: inner{Inner: "x", note: "hidden"}, Ch: make(chan int)}))

	assert.Equal(t, "x", got["inner"])
	assert.IsType(t, "", got["ch"])
	assert.NotContains(t, got, "count")
	assert.NotContains(t, got, "note")
	assert.Len(t, got, 2)
}

func TestBuildPayload_EmbeddedPointerAndShadowing(t *testing.T) {
	type base struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	type record struct {
		*base
		Name string `json:"name"`
		Bad  func() `json:"bad"`
		Skip string `json:"-"`
	}

	got := decodeJSON(t, BuildPayload(record{base: &base{ID: "A-1", Name: "inner"}, Name: "outer", Bad: func() {}, Skip: "x"}))
	assert.Equal(t, "A-1", got["id"])
	assert.Equal(t, "outer", got["name"])
	assert.IsType(t, "", got["bad"])
	assert.NotContains(t, got, "Skip")

	got = decodeJSON(t, BuildPayload(record{Name: "outer", Bad: func() {}}))
	assert.NotContains(t, got, "id")
	assert.Equal(t, "outer", got["name"])
}

func TestBuildPayload_SelfReferencingMap(t *testing.T) {
	cyc := map[string]interface{}{"name": "Jane Doe"}
	cyc["self"] = cyc

	out := BuildPayload(cyc)

	assert.JSONEq(t, `{"name":"Jane Doe","self":"<cycle>"}`, out)
}

func TestBuildPayload_SelfReferencingPointer(t *testing.T) {
	type node struct {
		Name string      `json:"name"`
		Next *node       `json:"next"`
		Peer interface{} `json:"peer"`
	}
	n := &node{Name: "a"}
	n.Next = n
	n.Peer = []interface{}{n}

	got := decodeJSON(t, BuildPayload(n))

	assert.Equal(t, "a", got["name"])
	assert.Equal(t, "<cycle>", got["next"])
	assert.Equal(t, []interface{}{"<cycle>"}, got["peer"])
}

func TestBuildPayload_DeepNestingStaysValid(t *testing.T) {
	var deep interface{} = map[string]interface{}{"ch": make(chan int)}
	for i := 0; i < 2*maxNormalizeDepth; i++ {
		deep = map[string]interface{}{"next": deep}
	}

	out := BuildPayload(deep)

	assert.True(t, json.Valid([]byte(out)))
	assert.Contains(t, out, "<map[string]interface {}>")
}
