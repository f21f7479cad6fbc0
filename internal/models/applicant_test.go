package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	apperrors "loan-agent/internal/common/errors"
	"loan-agent/internal/common/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullProfile = `{
  "first_name": "Dana",
  "last_name": "Reyes",
  "dob": "1988-04-12",
  "ssn_last4": "1234",
  "email": "dana@example.com",
  "address_state": "TX",
  "employment": {
    "employer_name": "SampleCo",
    "start_date": "2019-06-01",
    "pay_frequency": "biweekly",
    "annual_salary_claimed": 104000
  },
  "paystubs": [
    {"net_pay": 3120.55, "ytd_gross": 40000, "employer_name_on_stub": "SampleCo"}
  ],
  "documents": [
    {"doc_type": "driver_license", "issuer": "TX DPS", "issued_on": "2021-01-15"}
  ]
}`

func TestParseApplicantProfile_Full(t *testing.T) {
	p, err := ParseApplicantProfile([]byte(fullProfile))
	require.NoError(t, err)

	assert.Equal(t, "Dana", p.FirstName)
	assert.Equal(t, "Reyes", p.LastName)
	require.NotNil(t, p.DOB)
	assert.Equal(t, NewDate(1988, time.April, 12), *p.DOB)
	require.NotNil(t, p.Employment)
	assert.Equal(t, PayBiweekly, *p.Employment.PayFrequency)
	require.Len(t, p.Paystubs, 1)
	assert.Equal(t, 3120.55, p.Paystubs[0].NetPay)
	require.Len(t, p.Documents, 1)
	assert.Equal(t, DocDriverLicense, p.Documents[0].DocType)
	assert.Equal(t, "2021-01-15", p.Documents[0].IssuedOn.String())
	assert.NoError(t, p.Validate())
}

func TestParseApplicantProfile_Defaults(t *testing.T) {
	p, err := ParseApplicantProfile([]byte(`{"first_name": "A", "last_name": "B", "employment": null}`))
	require.NoError(t, err)

	assert.Nil(t, p.Employment)
	assert.NotNil(t, p.Paystubs)
	assert.Empty(t, p.Paystubs)
	assert.NotNil(t, p.Documents)
	assert.Empty(t, p.Documents)

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"first_name":"A","last_name":"B","paystubs":[],"documents":[]}`, string(out))
}

func TestParseApplicantProfile_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		field string
	}{
		{"missing last name", `{"first_name": "A"}`, "last_name"},
		{"empty first name", `{"first_name": "", "last_name": "B"}`, "first_name"},
		{"short ssn", `{"first_name": "A", "last_name": "B", "ssn_last4": "12"}`, "ssn_last4"},
		{"bad dob", `{"first_name": "A", "last_name": "B", "dob": "12/04/1988"}`, "dob"},
		{"impossible dob", `{"first_name": "A", "last_name": "B", "dob": "1988-02-30"}`, "dob"},
		{"employment without employer", `{"first_name": "A", "last_name": "B", "employment": {}}`, "employment.employer_name"},
		{"bad pay frequency", `{"first_name": "A", "last_name": "B", "employment": {"employer_name": "X", "pay_frequency": "daily"}}`, "employment.pay_frequency"},
		{"paystub without net pay", `{"first_name": "A", "last_name": "B", "paystubs": [{"hours": 80}]}`, "paystubs.0.net_pay"},
		{"unknown document", `{"first_name": "A", "last_name": "B", "documents": [{"doc_type": "selfie"}]}`, "documents.0.doc_type"},
		{"not an object", `[]`, "(root)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseApplicantProfile([]byte(tt.doc))
			require.Error(t, err)
			assert.Nil(t, p)

			var vErr *validation.Error
			require.True(t, errors.As(err, &vErr), "got %T: %v", err, err)
			assert.Equal(t, RecordApplicantProfile, vErr.Record)
			assert.NotEmpty(t, vErr.Result.GetErrorsForField(tt.field), "errors: %v", vErr.Result.Errors)
		})
	}
}

func TestParseEmployment(t *testing.T) {
	e, err := ParseEmployment([]byte(`{"employer_name": "SampleCo", "pay_frequency": "monthly"}`))
	require.NoError(t, err)
	assert.Equal(t, "SampleCo", e.EmployerName)
	assert.True(t, e.PayFrequency.Valid())
	assert.Nil(t, e.StartDate)

	_, err = ParseEmployment([]byte(`null`))
	assert.Error(t, err)

	_, err = ParseEmployment([]byte(`{"pay_frequency": "monthly"}`))
	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, apperrors.ErrCodeSchemaValidationFailed, stdErr.Code)
}

func TestParsePaystubItem(t *testing.T) {
	p, err := ParsePaystubItem([]byte(`{"net_pay": 1500, "taxes_withheld": null}`))
	require.NoError(t, err)
	assert.Equal(t, 1500.0, p.NetPay)
	assert.Nil(t, p.TaxesWithheld)

	_, err = ParsePaystubItem([]byte(`{"net_pay": "1500"}`))
	assert.Error(t, err)
}

func TestParseDocumentEvidence(t *testing.T) {
	for _, dt := range []DocumentType{DocDriverLicense, DocPassport, DocSSNCard, DocUtilityBill, DocBankStatement, DocPaystub, DocW2, DocOther} {
		d, err := ParseDocumentEvidence([]byte(`{"doc_type": "` + string(dt) + `"}`))
		require.NoError(t, err, dt)
		assert.Equal(t, dt, d.DocType)
		assert.True(t, d.DocType.Valid())
	}

	_, err := ParseDocumentEvidence([]byte(`{"issuer": "somewhere"}`))
	assert.Error(t, err)
}

func TestNewApplicantProfile(t *testing.T) {
	stubs := []PaystubItem{{NetPay: 2000}}
	p, err := NewApplicantProfile(ApplicantProfile{
		FirstName:  "Sam",
		LastName:   "Lee",
		SSNLast4:   Ptr("9876"),
		Employment: &Employment{EmployerName: "Acme", PayFrequency: Ptr(PaySemimonthly)},
		Paystubs:   stubs,
	})
	require.NoError(t, err)
	assert.Len(t, p.Paystubs, 1)
	assert.NotNil(t, p.Documents)

	stubs[0].NetPay = 1
	assert.Equal(t, 2000.0, p.Paystubs[0].NetPay)

	_, err = NewApplicantProfile(ApplicantProfile{FirstName: "Sam"})
	assert.Error(t, err)

	_, err = NewApplicantProfile(ApplicantProfile{FirstName: "Sam", LastName: "Lee", SSNLast4: Ptr("12345")})
	assert.Error(t, err)
}

func TestNewRecords(t *testing.T) {
	_, err := NewEmployment(Employment{EmployerName: "Acme", PayFrequency: Ptr(PayFrequency("hourly"))})
	assert.Error(t, err)

	_, err = NewPaystubItem(PaystubItem{NetPay: 10, Hours: Ptr(40.0)})
	assert.NoError(t, err)

	_, err = NewDocumentEvidence(DocumentEvidence{DocType: "selfie"})
	assert.Error(t, err)

	issued := NewDate(2020, time.March, 3)
	d, err := NewDocumentEvidence(DocumentEvidence{DocType: DocPassport, IssuedOn: &issued})
	require.NoError(t, err)
	assert.Equal(t, "2020-03-03", d.IssuedOn.String())
}

func TestDate_JSON(t *testing.T) {
	d, err := ParseDate("2000-01-31")
	require.NoError(t, err)

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2000-01-31"`, string(out))

	var back Date
	require.NoError(t, json.Unmarshal(out, &back))
	assert.True(t, d.Equal(back.Time))

	assert.Error(t, json.Unmarshal([]byte(`"2000-13-01"`), &back))
	assert.Error(t, json.Unmarshal([]byte(`20000101`), &back))
}
