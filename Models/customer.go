package Models

// Customer is one row of the customer collection.
type Customer struct {
	CustomerID   string `json:"CustomerID"`
	CustomerName string `json:"CustomerName" validate:"required"`
	Country      string `json:"Country" validate:"required"`
	MachineType  string `json:"MachineType" validate:"required"`
	SerialNo     string `json:"SerialNo" validate:"required"`
}

// Fields returns the customer as a header-keyed record.
func (c Customer) Fields() map[string]string {
	return map[string]string{
		FieldCustomerID:   c.CustomerID,
		FieldCustomerName: c.CustomerName,
		FieldCountry:      c.Country,
		FieldMachineType:  c.MachineType,
		FieldSerialNo:     c.SerialNo,
	}
}

// CustomerFromFields builds a Customer from a header-keyed record.
func CustomerFromFields(fields map[string]string) Customer {
	return Customer{
		CustomerID:   fields[FieldCustomerID],
		CustomerName: fields[FieldCustomerName],
		Country:      fields[FieldCountry],
		MachineType:  fields[FieldMachineType],
		SerialNo:     fields[FieldSerialNo],
	}
}

// Technician is one row of the technician collection. Password never leaves
// the records layer.
type Technician struct {
	TechnicianID string `json:"technicianId"`
	Name         string `json:"name"`
	PhotoURL     string `json:"photoURL"`
	Username     string `json:"username"`
	Password     string `json:"-"`
}
