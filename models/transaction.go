package models

import "time"

// ProductType identifies one of the five credit product categories in the
// receivables pool. Each type carries a base profile used when sampling
// synthetic transactions.
type ProductType string

const (
	ProductTradeReceivables   ProductType = "trade_receivables"
	ProductSupplyChain        ProductType = "supply_chain"
	ProductWorkingCapital     ProductType = "working_capital"
	ProductEquipmentFinance   ProductType = "equipment_finance"
	ProductInvoiceDiscounting ProductType = "invoice_discounting"
)

// ProductProfile holds the base sampling parameters for a product type.
type ProductProfile struct {
	AvgAmount float64
	TenorDays int
	BasePD    float64
	Frequency float64
}

// ProductProfiles maps each product type to its base profile. Frequencies sum
// to 1.0 and drive the categorical sampling of transaction types.
var ProductProfiles = map[ProductType]ProductProfile{
	ProductTradeReceivables:   {AvgAmount: 50000, TenorDays: 60, BasePD: 0.05, Frequency: 0.40},
	ProductSupplyChain:        {AvgAmount: 75000, TenorDays: 90, BasePD: 0.06, Frequency: 0.25},
	ProductWorkingCapital:     {AvgAmount: 120000, TenorDays: 120, BasePD: 0.07, Frequency: 0.20},
	ProductEquipmentFinance:   {AvgAmount: 200000, TenorDays: 180, BasePD: 0.08, Frequency: 0.10},
	ProductInvoiceDiscounting: {AvgAmount: 35000, TenorDays: 45, BasePD: 0.04, Frequency: 0.05},
}

// ProductTypes lists the product types in a stable order matching the
// frequency table above.
var ProductTypes = []ProductType{
	ProductTradeReceivables,
	ProductSupplyChain,
	ProductWorkingCapital,
	ProductEquipmentFinance,
	ProductInvoiceDiscounting,
}

// CollateralType classifies the collateral backing a transaction.
type CollateralType string

const (
	CollateralReceivables CollateralType = "receivables"
	CollateralInventory   CollateralType = "inventory"
	CollateralEquipment   CollateralType = "equipment"
	CollateralRealEstate  CollateralType = "real_estate"
	CollateralIP          CollateralType = "intellectual_property"
	CollateralCashFlows   CollateralType = "cash_flows"
)

// CollateralTypes lists the supported collateral categories.
var CollateralTypes = []CollateralType{
	CollateralReceivables, CollateralInventory, CollateralEquipment,
	CollateralRealEstate, CollateralIP, CollateralCashFlows,
}

// Transaction is a single synthetic credit transaction. Transactions are
// immutable once created and live only for the tick that produced them; the
// history writer may retain copies.
type Transaction struct {
	ID             string         `json:"transaction_id"`
	Timestamp      time.Time      `json:"timestamp"`
	Type           ProductType    `json:"type"`
	Amount         float64        `json:"amount"`
	TenorDays      int            `json:"tenor_days"`
	PD             float64        `json:"pd"`
	CreditRating   Rating         `json:"credit_rating"`
	Industry       Industry       `json:"industry"`
	ObligorID      string         `json:"company_id"`
	CollateralType CollateralType `json:"collateral_type"`
	RecoveryRate   float64        `json:"recovery_rate"`
}

// TransactionTick groups the transactions generated in one medium-tier tick.
type TransactionTick struct {
	TickID       string        `json:"tick_id"`
	GeneratedAt  time.Time     `json:"generated_at"`
	Transactions []Transaction `json:"transactions"`
}
