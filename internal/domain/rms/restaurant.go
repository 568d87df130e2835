package rms

// Restaurant is a tenant's restaurant brand.
type Restaurant struct {
	Entity
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	Description  *string `json:"description,omitempty"`
	ContactEmail string  `json:"contactEmail"`
	ContactPhone *string `json:"contactPhone,omitempty"`
	Address
	Timezone *string `json:"timezone,omitempty"`
	LogoURL  *string `json:"logoUrl,omitempty"`
	IsActive *bool   `json:"isActive,omitempty"`
}

// Address is the postal address block shared by restaurants, branches and customers.
type Address struct {
	AddressLine1 *string `json:"addressLine1,omitempty"`
	AddressLine2 *string `json:"addressLine2,omitempty"`
	City         *string `json:"city,omitempty"`
	State        *string `json:"state,omitempty"`
	PostalCode   *string `json:"postalCode,omitempty"`
	Country      *string `json:"country,omitempty"`
}

// Branch is one location of a restaurant.
type Branch struct {
	Entity
	Code         *string     `json:"code,omitempty"`
	Name         string      `json:"name"`
	Description  *string     `json:"description,omitempty"`
	Restaurant   *Restaurant `json:"restaurant,omitempty"`
	RestaurantID string      `json:"restaurantId,omitempty"`
	ContactEmail *string     `json:"contactEmail,omitempty"`
	ContactPhone *string     `json:"contactPhone,omitempty"`
	Address
	Timezone    *string  `json:"timezone,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	OpeningTime *string  `json:"openingTime,omitempty"`
	ClosingTime *string  `json:"closingTime,omitempty"`
	MaxCapacity *int     `json:"maxCapacity,omitempty"`
	IsActive    *bool    `json:"isActive,omitempty"`
}

// BranchTable is a physical table at a branch.
type BranchTable struct {
	Entity
	TableNumber string  `json:"tableNumber"`
	TableName   *string `json:"tableName,omitempty"`
	Capacity    int     `json:"capacity"`
	Floor       *string `json:"floor,omitempty"`
	Section     *string `json:"section,omitempty"`
	Status      *string `json:"status,omitempty"`
	QRCode      *string `json:"qrCode,omitempty"`
	QRCodeURL   *string `json:"qrCodeUrl,omitempty"`
	IsActive    *bool   `json:"isActive,omitempty"`
	Branch      *Branch `json:"branch,omitempty"`
	BranchID    string  `json:"branchId,omitempty"`
}

// TableAssignment is one entry of the table roster.
type TableAssignment struct {
	Entity
	AssignmentDate string       `json:"assignmentDate"`
	StartTime      *string      `json:"startTime,omitempty"`
	EndTime        *string      `json:"endTime,omitempty"`
	IsActive       *bool        `json:"isActive,omitempty"`
	BranchTable    *BranchTable `json:"branchTable,omitempty"`
	Supervisor     *RmsUser     `json:"supervisor,omitempty"`
	BranchTableID  string       `json:"branchTableId,omitempty"`
	ShiftID        *string      `json:"shiftId,omitempty"`
	SupervisorID   *string      `json:"supervisorId,omitempty"`
}
