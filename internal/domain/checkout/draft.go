package checkout

import (
	"sort"
	"strings"
)

// Draft field names, matching the order API request keys.
const (
	FieldCustomerName    = "customer_name"
	FieldCustomerEmail   = "customer_email"
	FieldCustomerPhone   = "customer_phone"
	FieldDeliveryAddress = "delivery_address"
	FieldDeliveryCity    = "delivery_city"
	FieldDeliveryNotes   = "delivery_notes"
)

// Draft is the contact and delivery data collected on the checkout form.
// It exists only for the duration of a submission attempt.
type Draft struct {
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	DeliveryAddress string
	DeliveryCity    string
	DeliveryNotes   string
}

// Normalize returns d with surrounding whitespace trimmed from every field.
func (d Draft) Normalize() Draft {
	return Draft{
		CustomerName:    strings.TrimSpace(d.CustomerName),
		CustomerEmail:   strings.TrimSpace(d.CustomerEmail),
		CustomerPhone:   strings.TrimSpace(d.CustomerPhone),
		DeliveryAddress: strings.TrimSpace(d.DeliveryAddress),
		DeliveryCity:    strings.TrimSpace(d.DeliveryCity),
		DeliveryNotes:   strings.TrimSpace(d.DeliveryNotes),
	}
}

// Validate checks the required fields and returns a *ValidationError listing
// every missing one.
func (d Draft) Validate() error {
	required := []struct {
		field string
		value string
		msg   string
	}{
		{FieldCustomerName, d.CustomerName, "Name is required"},
		{FieldCustomerEmail, d.CustomerEmail, "Email is required"},
		{FieldCustomerPhone, d.CustomerPhone, "Phone number is required"},
		{FieldDeliveryAddress, d.DeliveryAddress, "Delivery address is required"},
		{FieldDeliveryCity, d.DeliveryCity, "City is required"},
	}

	fields := make(map[string]string)
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			fields[r.field] = r.msg
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

// ValidationError lists draft fields that failed client-side checks.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "invalid checkout form: " + strings.Join(names, ", ")
}
