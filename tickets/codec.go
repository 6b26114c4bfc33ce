package tickets

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-sql/civil"

	"github.com/Log-Tools/lift-tickets-pipeline/errs"
)

// Field names of the line format, in column order.
const (
	FieldTransactionID    = "txid"
	FieldDeviceID         = "rfid"
	FieldResort           = "resort"
	FieldPurchaseTime     = "purchase_time"
	FieldExpirationTime   = "expiration_time"
	FieldDays             = "days"
	FieldName             = "name"
	FieldAddress          = "address"
	FieldPhone            = "phone"
	FieldEmail            = "email"
	FieldEmergencyContact = "emergency_contact"
)

// Fields lists every key a serialized ticket carries. Optional values are written as null, never omitted.
var Fields = []string{
	FieldTransactionID, FieldDeviceID, FieldResort, FieldPurchaseTime, FieldExpirationTime,
	FieldDays, FieldName, FieldAddress, FieldPhone, FieldEmail, FieldEmergencyContact,
}

// purchaseTimeLayouts accepts RFC 3339 and the zone-less ISO form (read as UTC).
var purchaseTimeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999"}

var (
	errMissingField = errors.New("required field is missing")
	errNullField    = errors.New("required field is null")
	errEmptyField   = errors.New("required field is empty")
)

// IsSentinel reports whether line is the blank line that terminates a record stream.
func IsSentinel(line []byte) bool {
	return len(bytes.TrimSpace(line)) == 0
}

// Encode serializes a ticket as a single JSON line without the trailing newline.
func Encode(t LiftTicket) ([]byte, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ticket %s: %w", t.TransactionID, err)
	}
	return data, nil
}

// DecodeLine parses one serialized ticket. lineNo is only used for error reporting.
// Any failure is returned as *errs.MalformedRecordError.
func DecodeLine(line []byte, lineNo int) (LiftTicket, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(line, &raw); err != nil {
		return LiftTicket{}, &errs.MalformedRecordError{Line: lineNo, Err: err}
	}
	if raw == nil {
		return LiftTicket{}, &errs.MalformedRecordError{Line: lineNo, Err: errors.New("record is null")}
	}

	for _, key := range Fields {
		if _, ok := raw[key]; !ok {
			return LiftTicket{}, &errs.MalformedRecordError{Line: lineNo, Field: key, Err: errMissingField}
		}
	}

	d := decoder{raw: raw, line: lineNo}
	var t LiftTicket
	d.requiredString(FieldTransactionID, &t.TransactionID)
	d.requiredString(FieldDeviceID, &t.DeviceID)
	d.requiredString(FieldResort, &t.Resort)
	d.purchaseTime(&t.PurchaseTime)
	d.expirationTime(&t.ExpirationTime)
	d.days(&t.Days)
	d.requiredString(FieldName, &t.Name)
	d.address(&t.Address)
	d.optionalString(FieldPhone, &t.Phone)
	d.optionalString(FieldEmail, &t.Email)
	d.emergencyContact(&t.EmergencyContact)
	if d.err != nil {
		return LiftTicket{}, d.err
	}
	return t, nil
}

// decoder keeps the first field error so DecodeLine reads top to bottom.
type decoder struct {
	raw  map[string]json.RawMessage
	line int
	err  error
}

func (d *decoder) fail(field string, err error) {
	if d.err == nil {
		d.err = &errs.MalformedRecordError{Line: d.line, Field: field, Err: err}
	}
}

func isNull(data json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

func (d *decoder) decode(field string, dst any) bool {
	if d.err != nil {
		return false
	}
	data := d.raw[field]
	if isNull(data) {
		d.fail(field, errNullField)
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		d.fail(field, err)
		return false
	}
	return true
}

func (d *decoder) requiredString(field string, dst *string) {
	var s string
	if !d.decode(field, &s) {
		return
	}
	if strings.TrimSpace(s) == "" {
		d.fail(field, errEmptyField)
		return
	}
	*dst = s
}

func (d *decoder) purchaseTime(dst *time.Time) {
	var s string
	if !d.decode(FieldPurchaseTime, &s) {
		return
	}
	for _, layout := range purchaseTimeLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			*dst = ts.UTC()
			return
		}
	}
	d.fail(FieldPurchaseTime, fmt.Errorf("unsupported timestamp %q", s))
}

func (d *decoder) expirationTime(dst *civil.Date) {
	var s string
	if !d.decode(FieldExpirationTime, &s) {
		return
	}
	date, err := civil.ParseDate(s)
	if err != nil {
		d.fail(FieldExpirationTime, err)
		return
	}
	*dst = date
}

func (d *decoder) days(dst *int) {
	var n int
	if !d.decode(FieldDays, &n) {
		return
	}
	if n < 1 || n > 7 {
		d.fail(FieldDays, fmt.Errorf("days must be between 1 and 7, got %d", n))
		return
	}
	*dst = n
}

func (d *decoder) optionalString(field string, dst *Optional[string]) {
	if d.err != nil || isNull(d.raw[field]) {
		return
	}
	var s string
	if d.decode(field, &s) {
		*dst = Some(s)
	}
}

func (d *decoder) address(dst *Optional[Address]) {
	if d.err != nil || isNull(d.raw[FieldAddress]) {
		return
	}
	var a struct {
		Street     *string `json:"street_address"`
		City       *string `json:"city"`
		State      *string `json:"state"`
		PostalCode *string `json:"postalcode"`
	}
	if !d.decode(FieldAddress, &a) {
		return
	}
	if !allSet(a.Street, a.City, a.State, a.PostalCode) {
		d.fail(FieldAddress, errors.New("address must carry street_address, city, state and postalcode"))
		return
	}
	*dst = Some(Address{Street: *a.Street, City: *a.City, State: *a.State, PostalCode: *a.PostalCode})
}

func (d *decoder) emergencyContact(dst *Optional[EmergencyContact]) {
	if d.err != nil || isNull(d.raw[FieldEmergencyContact]) {
		return
	}
	var c struct {
		Name  *string `json:"name"`
		Phone *string `json:"phone"`
	}
	if !d.decode(FieldEmergencyContact, &c) {
		return
	}
	if !allSet(c.Name, c.Phone) {
		d.fail(FieldEmergencyContact, errors.New("emergency_contact must carry name and phone"))
		return
	}
	*dst = Some(EmergencyContact{Name: *c.Name, Phone: *c.Phone})
}

func allSet(values ...*string) bool {
	for _, v := range values {
		if v == nil || *v == "" {
			return false
		}
	}
	return true
}
