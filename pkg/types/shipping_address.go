package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// ShippingAddress is the delivery destination captured at order time.
type ShippingAddress struct {
	Label   string `json:"label"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// Validate reports the first missing field.
func (a ShippingAddress) Validate() error {
	if strings.TrimSpace(a.Label) == "" {
		return fmt.Errorf("shipping address: missing label")
	}
	if strings.TrimSpace(a.Address) == "" {
		return fmt.Errorf("shipping address: missing address")
	}
	if strings.TrimSpace(a.Phone) == "" {
		return fmt.Errorf("shipping address: missing phone")
	}
	return nil
}

// Value stores the address as JSON.
func (a ShippingAddress) Value() (driver.Value, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(payload), nil
}

// Scan decodes the JSON column.
func (a *ShippingAddress) Scan(value interface{}) error {
	if value == nil {
		*a = ShippingAddress{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("shipping address: unsupported scan type %T", value)
	}
	return json.Unmarshal(raw, a)
}
