// internal/models/enums.go
package models

// PayFrequency is how often an employer pays the applicant.
type PayFrequency string

const (
	PayWeekly      PayFrequency = "weekly"
	PayBiweekly    PayFrequency = "biweekly"
	PaySemimonthly PayFrequency = "semimonthly"
	PayMonthly     PayFrequency = "monthly"
)

func (p PayFrequency) Valid() bool {
	switch p {
	case PayWeekly, PayBiweekly, PaySemimonthly, PayMonthly:
		return true
	}
	return false
}

// DocumentType classifies a piece of supporting evidence.
type DocumentType string

const (
	DocDriverLicense DocumentType = "driver_license"
	DocPassport      DocumentType = "passport"
	DocSSNCard       DocumentType = "ssn_card"
	DocUtilityBill   DocumentType = "utility_bill"
	DocBankStatement DocumentType = "bank_statement"
	DocPaystub       DocumentType = "paystub"
	DocW2            DocumentType = "w2"
	DocOther         DocumentType = "other"
)

func (d DocumentType) Valid() bool {
	switch d {
	case DocDriverLicense, DocPassport, DocSSNCard, DocUtilityBill,
		DocBankStatement, DocPaystub, DocW2, DocOther:
		return true
	}
	return false
}
