package handler

import (
	"auth_gateway/internal/models"
	"bytes"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/xeipuuv/gojsonschema"
)

// optional resource columns accept a string or null.
const optionalColumns = `
	"author":           {"type": ["string", "null"]},
	"annotation":       {"type": ["string", "null"]},
	"kind":             {"type": ["string", "null"]},
	"purpose":          {"type": ["string", "null"]},
	"open_date":        {"type": ["string", "null"], "format": "date"},
	"expiry_date":      {"type": ["string", "null"], "format": "date"},
	"usage_conditions": {"type": ["string", "null"]},
	"url":              {"type": ["string", "null"]}`

var (
	createSchema = mustSchema(`{
	"type": "object",
	"required": ["name"],
	"properties": {
		"name": {"type": "string", "minLength": 1},` + optionalColumns + `
	}
}`)

	updateSchema = mustSchema(`{
	"type": "object",
	"required": ["id"],
	"properties": {
		"id":   {"type": "integer"},
		"name": {"type": "string", "minLength": 1},` + optionalColumns + `
	}
}`)

	deleteSchema = mustSchema(`{
	"type": "object",
	"required": ["id"],
	"properties": {
		"id": {"type": "integer"}
	}
}`)
)

func mustSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("handler: invalid payload schema: %v", err))
	}
	return schema
}

// validationError is a client mistake in the request body; its message is
// returned to the caller as is.
type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

// readPayload reads the body, validates it against schema and returns the
// top-level fields undecoded.
func readPayload(body io.Reader, schema *gojsonschema.Schema) (map[string]json.RawMessage, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, &validationError{msg: "Invalid request body"}
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, &validationError{msg: "Invalid request body"}
	}
	if !result.Valid() {
		return nil, &validationError{msg: describe(result.Errors()[0])}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, &validationError{msg: "Invalid request body"}
	}

	return fields, nil
}

func describe(e gojsonschema.ResultError) string {
	if e.Type() == "required" {
		return fmt.Sprintf("Missing required field: %v", e.Details()["property"])
	}

	return fmt.Sprintf("Invalid field %s: %s", e.Field(), e.Description())
}

// resourceID reads the "id" field. The schema guarantees an integral number,
// which may still be written as 3.0 or 1e3; values outside int64 are rejected.
func resourceID(fields map[string]json.RawMessage) (int64, error) {
	dec := json.NewDecoder(bytes.NewReader(fields["id"]))
	dec.UseNumber()

	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return 0, &validationError{msg: "Invalid field id: must be an integer"}
	}

	if id, err := n.Int64(); err == nil {
		return id, nil
	}

	f, ok := new(big.Float).SetPrec(256).SetString(n.String())
	if !ok {
		return 0, &validationError{msg: "Invalid field id: must be an integer"}
	}
	i, acc := f.Int(nil)
	if acc != big.Exact || !i.IsInt64() {
		return 0, &validationError{msg: "Invalid field id: must be an integer"}
	}

	return i.Int64(), nil
}

const (
	minDate = "0001-01-01"
	maxDate = "9999-12-31"
)

// storableDate reports whether s is a YYYY-MM-DD date every store accepts.
// The schema date format lets year 0000 through.
func storableDate(s string) bool {
	d, err := time.Parse(time.DateOnly, s)
	return err == nil && d.Year() >= 1
}

// optionalString decodes a string-or-null field.
func optionalString(raw json.RawMessage) (*string, error) {
	if strings.TrimSpace(string(raw)) == "null" {
		return nil, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}

	return &s, nil
}

// toPatch keeps only recognized fields; everything else in the body is ignored.
func toPatch(fields map[string]json.RawMessage) (models.ResourcePatch, error) {
	patch := make(models.ResourcePatch)
	for _, f := range models.UpdatableFields {
		raw, ok := fields[string(f)]
		if !ok {
			continue
		}

		value, err := optionalString(raw)
		if err != nil {
			return nil, &validationError{msg: fmt.Sprintf("Invalid field %s: must be a string or null", f)}
		}
		if value != nil && (f == models.FieldOpenDate || f == models.FieldExpiryDate) && !storableDate(*value) {
			return nil, &validationError{msg: fmt.Sprintf("Invalid field %s: must be a date between %s and %s", f, minDate, maxDate)}
		}
		patch[f] = value
	}

	return patch, nil
}

func toNewResource(fields map[string]json.RawMessage) (models.NewResource, error) {
	patch, err := toPatch(fields)
	if err != nil {
		return models.NewResource{}, err
	}

	name := patch[models.FieldName]
	if name == nil {
		return models.NewResource{}, &validationError{msg: "Missing required field: name"}
	}

	return models.NewResource{
		Name:            *name,
		Author:          patch[models.FieldAuthor],
		Annotation:      patch[models.FieldAnnotation],
		Kind:            patch[models.FieldKind],
		Purpose:         patch[models.FieldPurpose],
		OpenDate:        patch[models.FieldOpenDate],
		ExpiryDate:      patch[models.FieldExpiryDate],
		UsageConditions: patch[models.FieldUsageConditions],
		URL:             patch[models.FieldURL],
	}, nil
}
