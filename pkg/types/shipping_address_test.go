package types

import "testing"

func TestShippingAddressValueRequiresFields(t *testing.T) {
	if _, err := (ShippingAddress{Label: "Home", Address: "Jl. Merdeka 1"}).Value(); err == nil {
		t.Fatal("expected missing phone to fail")
	}
}

func TestShippingAddressScanRoundTrip(t *testing.T) {
	in := ShippingAddress{Label: "Home", Address: "Jl. Merdeka 1, Jakarta", Phone: "+62811111111"}
	value, err := in.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}

	var out ShippingAddress
	if err := out.Scan([]byte(value.(string))); err != nil {
		t.Fatalf("Scan bytes: %v", err)
	}
	if out != in {
		t.Fatalf("expected %+v got %+v", in, out)
	}

	var fromString ShippingAddress
	if err := fromString.Scan(value); err != nil {
		t.Fatalf("Scan string: %v", err)
	}
	if fromString != in {
		t.Fatalf("expected %+v got %+v", in, fromString)
	}

	if err := out.Scan(42); err == nil {
		t.Fatal("expected unsupported type to fail")
	}
}
