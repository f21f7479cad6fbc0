// internal/models/applicant.go
package models

// Employment is the applicant's claimed employment.
type Employment struct {
	EmployerName        string        `json:"employer_name"`
	StartDate           *Date         `json:"start_date,omitempty"`
	PayFrequency        *PayFrequency `json:"pay_frequency,omitempty"`
	AnnualSalaryClaimed *float64      `json:"annual_salary_claimed,omitempty"`
}

// PaystubItem holds the figures read off a single paystub.
type PaystubItem struct {
	NetPay             float64  `json:"net_pay"`
	YTDGross           *float64 `json:"ytd_gross,omitempty"`
	YTDNet             *float64 `json:"ytd_net,omitempty"`
	EmployerNameOnStub *string  `json:"employer_name_on_stub,omitempty"`
	Hours              *float64 `json:"hours,omitempty"`
	TaxesWithheld      *float64 `json:"taxes_withheld,omitempty"`
}

// DocumentEvidence describes a supporting document supplied by the applicant.
type DocumentEvidence struct {
	DocType        DocumentType `json:"doc_type"`
	Issuer         *string      `json:"issuer,omitempty"`
	IDNumberMasked *string      `json:"id_number_masked,omitempty"`
	IssuedOn       *Date        `json:"issued_on,omitempty"`
	NameOnDoc      *string      `json:"name_on_doc,omitempty"`
	AddressOnDoc   *string      `json:"address_on_doc,omitempty"`
}

// ApplicantProfile aggregates identity, contact, employment and evidence for
// one loan applicant.
type ApplicantProfile struct {
	FirstName         string             `json:"first_name"`
	LastName          string             `json:"last_name"`
	DOB               *Date              `json:"dob,omitempty"`
	SSNLast4          *string            `json:"ssn_last4,omitempty"`
	Email             *string            `json:"email,omitempty"`
	Phone             *string            `json:"phone,omitempty"`
	AddressLine1      *string            `json:"address_line1,omitempty"`
	AddressCity       *string            `json:"address_city,omitempty"`
	AddressState      *string            `json:"address_state,omitempty"`
	AddressPostalCode *string            `json:"address_postal_code,omitempty"`
	Employment        *Employment        `json:"employment,omitempty"`
	Paystubs          []PaystubItem      `json:"paystubs"`
	Documents         []DocumentEvidence `json:"documents"`
}

// Ptr returns a pointer to v, for filling optional fields.
func Ptr[T any](v T) *T {
	return &v
}

func (e *Employment) Validate() error       { return check(RecordEmployment, e) }
func (p *PaystubItem) Validate() error      { return check(RecordPaystubItem, p) }
func (d *DocumentEvidence) Validate() error { return check(RecordDocumentEvidence, d) }
func (a *ApplicantProfile) Validate() error { return check(RecordApplicantProfile, a) }

func (a *ApplicantProfile) applyDefaults() {
	if a.Paystubs == nil {
		a.Paystubs = []PaystubItem{}
	}
	if a.Documents == nil {
		a.Documents = []DocumentEvidence{}
	}
}

func NewEmployment(e Employment) (*Employment, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}

func NewPaystubItem(p PaystubItem) (*PaystubItem, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func NewDocumentEvidence(d DocumentEvidence) (*DocumentEvidence, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// NewApplicantProfile validates a profile built in code. The slices are
// copied so later changes by the caller do not leak into the record.
func NewApplicantProfile(a ApplicantProfile) (*ApplicantProfile, error) {
	a.Paystubs = append([]PaystubItem(nil), a.Paystubs...)
	a.Documents = append([]DocumentEvidence(nil), a.Documents...)
	a.applyDefaults()
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

func ParseEmployment(data []byte) (*Employment, error) {
	var e Employment
	if err := decode(RecordEmployment, data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func ParsePaystubItem(data []byte) (*PaystubItem, error) {
	var p PaystubItem
	if err := decode(RecordPaystubItem, data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func ParseDocumentEvidence(data []byte) (*DocumentEvidence, error) {
	var d DocumentEvidence
	if err := decode(RecordDocumentEvidence, data, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func ParseApplicantProfile(data []byte) (*ApplicantProfile, error) {
	var a ApplicantProfile
	if err := decode(RecordApplicantProfile, data, &a); err != nil {
		return nil, err
	}
	a.applyDefaults()
	return &a, nil
}
