package models

import "time"

type Industry string

const (
	IndustryManufacturing Industry = "manufacturing"
	IndustryTrading       Industry = "trading"
	IndustryServices      Industry = "services"
	IndustryConstruction  Industry = "construction"
	IndustryHealthcare    Industry = "healthcare"
	IndustryITServices    Industry = "it_services"
	IndustryRetail        Industry = "retail"
	IndustryOther         Industry = "other"
)

var Industries = []Industry{
	IndustryManufacturing, IndustryTrading, IndustryServices, IndustryConstruction,
	IndustryHealthcare, IndustryITServices, IndustryRetail, IndustryOther,
}

type Company struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Industry  Industry  `json:"industry"`
	GSTNumber string    `json:"gst_number,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// BalanceSheet holds reported figures for a company. Nil means not reported.
type BalanceSheet struct {
	CompanyID          int64     `json:"company_id"`
	CurrentAssets      *float64  `json:"current_assets"`
	CurrentLiabilities *float64  `json:"current_liabilities"`
	Inventory          *float64  `json:"inventory"`
	Cash               *float64  `json:"cash"`
	Receivables        *float64  `json:"receivables"`
	Payables           *float64  `json:"payables"`
	TotalAssets        *float64  `json:"total_assets"`
	TotalDebt          *float64  `json:"total_debt"`
	TotalEquity        *float64  `json:"total_equity"`
	Revenue            *float64  `json:"revenue"`
	CostOfGoodsSold    *float64  `json:"cost_of_goods_sold"`
	OperatingIncome    *float64  `json:"operating_income"`
	NetIncome          *float64  `json:"net_income"`
	UpdatedAt          time.Time `json:"updated_at"`
}
