package rms

import "time"

// Customer is a diner known to a tenant.
type Customer struct {
	Entity
	CustomerCode *string `json:"customerCode,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	Email        *string `json:"email,omitempty"`
	FirstName    *string `json:"firstName,omitempty"`
	LastName     *string `json:"lastName,omitempty"`
	DateOfBirth  *string `json:"dateOfBirth,omitempty"`
	Address
	IsActive *bool    `json:"isActive,omitempty"`
	User     *RmsUser `json:"user,omitempty"`
	UserID   *string  `json:"userId,omitempty"`
}

// Inventory is the stock level of one menu item at one branch.
type Inventory struct {
	Entity
	CurrentStock  *float64   `json:"currentStock,omitempty"`
	Unit          *string    `json:"unit,omitempty"`
	MinStockLevel *float64   `json:"minStockLevel,omitempty"`
	MaxStockLevel *float64   `json:"maxStockLevel,omitempty"`
	LastUpdatedAt *time.Time `json:"lastUpdatedAt,omitempty"`
	LastUpdatedBy *string    `json:"lastUpdatedBy,omitempty"`
	Branch        *Branch    `json:"branch,omitempty"`
	MenuItem      *MenuItem  `json:"menuItem,omitempty"`
	BranchID      string     `json:"branchId,omitempty"`
	MenuItemID    string     `json:"menuItemId,omitempty"`
}

// Amounts are the monetary totals shared by orders and bills.
type Amounts struct {
	Subtotal       *float64 `json:"subtotal,omitempty"`
	TaxAmount      *float64 `json:"taxAmount,omitempty"`
	DiscountAmount *float64 `json:"discountAmount,omitempty"`
	TotalAmount    *float64 `json:"totalAmount,omitempty"`
}

// Order is a customer order placed at a branch.
type Order struct {
	Entity
	OrderNumber         *string    `json:"orderNumber,omitempty"`
	OrderType           *string    `json:"orderType,omitempty"`
	OrderSource         *string    `json:"orderSource,omitempty"`
	Status              *string    `json:"status,omitempty"`
	OrderDate           *time.Time `json:"orderDate,omitempty"`
	EstimatedReadyTime  *time.Time `json:"estimatedReadyTime,omitempty"`
	ActualReadyTime     *time.Time `json:"actualReadyTime,omitempty"`
	SpecialInstructions *string    `json:"specialInstructions,omitempty"`
	Amounts
	IsPaid             *bool        `json:"isPaid,omitempty"`
	CancelledAt        *time.Time   `json:"cancelledAt,omitempty"`
	CancelledBy        *string      `json:"cancelledBy,omitempty"`
	CancellationReason *string      `json:"cancellationReason,omitempty"`
	Branch             *Branch      `json:"branch,omitempty"`
	Customer           *Customer    `json:"customer,omitempty"`
	User               *RmsUser     `json:"user,omitempty"`
	BranchTable        *BranchTable `json:"branchTable,omitempty"`
	BranchID           string       `json:"branchId,omitempty"`
	CustomerID         *string      `json:"customerId,omitempty"`
	UserID             *string      `json:"userId,omitempty"`
	BranchTableID      *string      `json:"branchTableId,omitempty"`
}

// Bill is the invoice generated for an order.
type Bill struct {
	Entity
	BillNumber *string    `json:"billNumber,omitempty"`
	BillDate   *time.Time `json:"billDate,omitempty"`
	Amounts
	ServiceCharge *float64  `json:"serviceCharge,omitempty"`
	AmountPaid    *float64  `json:"amountPaid,omitempty"`
	AmountDue     *float64  `json:"amountDue,omitempty"`
	Status        *string   `json:"status,omitempty"`
	GeneratedBy   *string   `json:"generatedBy,omitempty"`
	Notes         *string   `json:"notes,omitempty"`
	Order         *Order    `json:"order,omitempty"`
	Branch        *Branch   `json:"branch,omitempty"`
	Customer      *Customer `json:"customer,omitempty"`
	OrderID       string    `json:"orderId,omitempty"`
	BranchID      string    `json:"branchId,omitempty"`
	CustomerID    *string   `json:"customerId,omitempty"`
}
