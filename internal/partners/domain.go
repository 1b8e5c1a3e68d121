// Package partners manages customers and suppliers.
package partners

// Customer is a buyer on sales invoices.
type Customer struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	NationalID   string `json:"national_id"`
	EconomicCode string `json:"economic_code"`
	PostalCode   string `json:"postal_code"`
}

// CustomerInput carries editable customer fields.
type CustomerInput struct {
	Name         string `json:"name" validate:"required,max=200"`
	Email        string `json:"email" validate:"omitempty,email"`
	Phone        string `json:"phone" validate:"max=30"`
	Address      string `json:"address" validate:"max=500"`
	NationalID   string `json:"national_id" validate:"omitempty,numeric,max=20"`
	EconomicCode string `json:"economic_code" validate:"max=20"`
	PostalCode   string `json:"postal_code" validate:"omitempty,numeric,max=10"`
	// AllowDuplicate saves even when another customer shares name, email or phone.
	AllowDuplicate bool `json:"allow_duplicate"`
}

// Supplier is a vendor on purchase invoices.
type Supplier struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	ContactPerson string `json:"contact_person"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	EconomicCode  string `json:"economic_code"`
}

// SupplierInput carries editable supplier fields.
type SupplierInput struct {
	Name          string `json:"name" validate:"required,max=200"`
	ContactPerson string `json:"contact_person" validate:"max=200"`
	Email         string `json:"email" validate:"omitempty,email"`
	Phone         string `json:"phone" validate:"max=30"`
	Address       string `json:"address" validate:"max=500"`
	EconomicCode  string `json:"economic_code" validate:"max=20"`
}

// DuplicateMatch is an existing customer sharing an identifying field.
type DuplicateMatch struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}
