package models

// DriverType distinguishes employees from external transporter drivers
type DriverType string

const (
	DriverTypeTransporter DriverType = "transporter"
	DriverTypeInHouse     DriverType = "in_house"
)

// Valid reports whether t is a known driver type
func (t DriverType) Valid() bool {
	return t == DriverTypeTransporter || t == DriverTypeInHouse
}

// Label is the display name of the driver type
func (t DriverType) Label() string {
	switch t {
	case DriverTypeTransporter:
		return "Transporter"
	case DriverTypeInHouse:
		return "In-House"
	}
	return string(t)
}

// Driver is a person who can be rated per delivery
type Driver struct {
	ID   ID         `json:"id"`
	Name string     `json:"name"`
	Type DriverType `json:"type"`

	// Transporter fields
	TransportCompany string `json:"transportCompany,omitempty"`
	Phone            string `json:"phone,omitempty"`
	LicenseNumber    string `json:"licenseNumber,omitempty"`

	// In-house fields
	EmployeeID string    `json:"employeeId,omitempty"`
	Department string    `json:"department,omitempty"`
	HireDate   Timestamp `json:"hireDate"`

	OverallRating       float64   `json:"overallRating"`
	TotalDeliveries     int       `json:"totalDeliveries"`
	AIInsights          string    `json:"aiInsights,omitempty"`
	AIInsightsUpdatedAt Timestamp `json:"aiInsightsUpdatedAt"`
	CreatedAt           Timestamp `json:"createdAt"`
}

// CreateDriverInput is the payload for creating a driver
type CreateDriverInput struct {
	Name             string     `json:"name" validate:"required,min=2"`
	Type             DriverType `json:"type" validate:"required,oneof=transporter in_house"`
	TransportCompany string     `json:"transportCompany,omitempty" validate:"required_if=Type transporter"`
	Phone            string     `json:"phone,omitempty" validate:"required_if=Type transporter"`
	LicenseNumber    string     `json:"licenseNumber,omitempty"`
	EmployeeID       string     `json:"employeeId,omitempty" validate:"required_if=Type in_house"`
	Department       string     `json:"department,omitempty" validate:"required_if=Type in_house"`
	HireDate         string     `json:"hireDate,omitempty"`
}

// DriverFilters are the driver search/list query parameters
type DriverFilters struct {
	Type  string `json:"type"`
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
}

// DriverPage is one page of drivers
type DriverPage struct {
	Data       []Driver   `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// RecentDrivers is the short most-recently-used list
type RecentDrivers struct {
	Data  []Driver `json:"data"`
	Total int      `json:"total"`
}

// Prepend puts d at the front, keeping at most keep entries, and bumps Total.
func (r RecentDrivers) Prepend(d Driver, keep int) RecentDrivers {
	data := make([]Driver, 0, keep)
	data = append(data, d)
	for _, existing := range r.Data {
		if len(data) >= keep {
			break
		}
		data = append(data, existing)
	}
	return RecentDrivers{Data: data, Total: r.Total + 1}
}

// DriverStats is the fleet-wide driver summary, passed through as the backend shapes it
type DriverStats map[string]interface{}

// PerformanceMetrics is a driver's performance over a time range, passed through as the backend shapes it
type PerformanceMetrics map[string]interface{}
