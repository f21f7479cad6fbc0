// internal/models/schema.go
package models

import (
	_ "embed"
	"encoding/json"
	"fmt"

	apperrors "loan-agent/internal/common/errors"
	"loan-agent/internal/common/validation"
)

//go:embed schemas/records.json
var recordsSchema []byte

const (
	RecordApplicantProfile = "ApplicantProfile"
	RecordEmployment       = "Employment"
	RecordPaystubItem      = "PaystubItem"
	RecordDocumentEvidence = "DocumentEvidence"
)

var schemas = compileSchemas(
	RecordApplicantProfile,
	RecordEmployment,
	RecordPaystubItem,
	RecordDocumentEvidence,
)

// compileSchemas builds one root schema per record that references the
// shared definitions and additionally requires a JSON object at the root.
func compileSchemas(records ...string) map[string]*validation.Schema {
	var doc struct {
		Definitions map[string]json.RawMessage `json:"definitions"`
	}
	if err := json.Unmarshal(recordsSchema, &doc); err != nil {
		panic(fmt.Sprintf("models: decode embedded schema: %v", err))
	}

	out := make(map[string]*validation.Schema, len(records))
	for _, name := range records {
		if _, ok := doc.Definitions[name]; !ok {
			panic(fmt.Sprintf("models: no schema definition for %s", name))
		}
		root, err := json.Marshal(map[string]interface{}{
			"definitions": doc.Definitions,
			"type":        "object",
			"allOf":       []interface{}{map[string]string{"$ref": "#/definitions/" + name}},
		})
		if err != nil {
			panic(fmt.Sprintf("models: encode schema %s: %v", name, err))
		}
		out[name] = validation.MustCompile(name, root)
	}
	return out
}

// SchemaFor exposes the compiled schema of a record, e.g. for tool input
// descriptions.
func SchemaFor(record string) (*validation.Schema, bool) {
	s, ok := schemas[record]
	return s, ok
}

// decode validates raw JSON against the record schema before decoding it.
func decode(record string, data []byte, out interface{}) error {
	if err := schemas[record].ValidateBytes(data).Err(record); err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperrors.NewInvalidPayloadError(fmt.Sprintf("decode %s: %v", record, err))
	}
	return nil
}

// check re-encodes an in-memory record and validates the encoding.
func check(record string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return apperrors.NewInvalidPayloadError(fmt.Sprintf("encode %s: %v", record, err))
	}
	return schemas[record].ValidateBytes(data).Err(record)
}
