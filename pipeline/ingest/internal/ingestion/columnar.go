package ingestion

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/Log-Tools/lift-tickets-pipeline/tickets"
)

// purchaseTimeLayout keeps staged timestamps zone-less with microsecond precision.
const purchaseTimeLayout = "2006-01-02T15:04:05.000000"

// Row is the columnar layout of a ticket. Field order is the column order.
// Optional composites are nullable groups, never partially filled.
type Row struct {
	TXID             string        `parquet:"TXID"`
	RFID             string        `parquet:"RFID"`
	Resort           string        `parquet:"RESORT"`
	PurchaseTime     string        `parquet:"PURCHASE_TIME"`
	ExpirationTime   string        `parquet:"EXPIRATION_TIME"`
	Days             int64         `parquet:"DAYS"`
	Name             string        `parquet:"NAME"`
	Address          *AddressGroup `parquet:"ADDRESS"`
	Phone            *string       `parquet:"PHONE"`
	Email            *string       `parquet:"EMAIL"`
	EmergencyContact *ContactGroup `parquet:"EMERGENCY_CONTACT"`
}

type AddressGroup struct {
	StreetAddress string `parquet:"street_address"`
	City          string `parquet:"city"`
	State         string `parquet:"state"`
	PostalCode    string `parquet:"postalcode"`
}

type ContactGroup struct {
	Name  string `parquet:"name"`
	Phone string `parquet:"phone"`
}

// Columns lists the top-level column names in order.
var Columns = []string{
	"TXID", "RFID", "RESORT", "PURCHASE_TIME", "EXPIRATION_TIME", "DAYS",
	"NAME", "ADDRESS", "PHONE", "EMAIL", "EMERGENCY_CONTACT",
}

// ToRow converts a ticket to its columnar layout.
func ToRow(t tickets.LiftTicket) Row {
	row := Row{
		TXID:           t.TransactionID,
		RFID:           t.DeviceID,
		Resort:         t.Resort,
		PurchaseTime:   t.PurchaseTime.UTC().Format(purchaseTimeLayout),
		ExpirationTime: t.ExpirationTime.String(),
		Days:           int64(t.Days),
		Name:           t.Name,
		Phone:          t.Phone.Ptr(),
		Email:          t.Email.Ptr(),
	}
	if a, ok := t.Address.Get(); ok {
		row.Address = &AddressGroup{StreetAddress: a.Street, City: a.City, State: a.State, PostalCode: a.PostalCode}
	}
	if c, ok := t.EmergencyContact.Get(); ok {
		row.EmergencyContact = &ContactGroup{Name: c.Name, Phone: c.Phone}
	}
	return row
}

// ToRows converts a batch preserving order.
func ToRows(batch []tickets.LiftTicket) []Row {
	rows := make([]Row, len(batch))
	for i, t := range batch {
		rows[i] = ToRow(t)
	}
	return rows
}

// WriteParquet writes rows to path as a single Snappy-compressed, plain-encoded
// file and returns its size. The caller owns removal of path, even on error.
func WriteParquet(path string, rows []Row) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := parquet.NewGenericWriter[Row](f, parquet.Compression(&parquet.Snappy))
	if _, err := w.Write(rows); err != nil {
		return 0, fmt.Errorf("failed to write rows to %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("failed to finish %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		return 0, fmt.Errorf("failed to sync %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return info.Size(), nil
}
