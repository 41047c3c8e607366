package model

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/username/smepulse/backend/src/models"
)

func CreateCompany(ctx context.Context, db DBTX, c *models.Company) error {
	res, err := db.ExecContext(ctx,
		`INSERT INTO companies (name, industry, gst_number, created_at) VALUES (?, ?, ?, ?)`,
		c.Name, string(c.Industry), nullStringArg(c.GSTNumber), formatTime(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert company: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

const companyColumns = `id, name, industry, gst_number, created_at`

func scanCompany(row interface{ Scan(...any) error }) (models.Company, error) {
	var c models.Company
	var industry, createdAt string
	var gst sql.NullString
	if err := row.Scan(&c.ID, &c.Name, &industry, &gst, &createdAt); err != nil {
		return c, err
	}
	c.Industry = models.Industry(industry)
	c.GSTNumber = gst.String
	t, err := parseTime(createdAt)
	if err != nil {
		return c, err
	}
	c.CreatedAt = t
	return c, nil
}

func GetCompanyByID(ctx context.Context, db DBTX, id int64) (*models.Company, error) {
	row := db.QueryRowContext(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = ?`, id)
	c, err := scanCompany(row)
	if err != nil {
		return nil, notFound(err, "company", id)
	}
	return &c, nil
}

func ListCompanies(ctx context.Context, db DBTX) ([]models.Company, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+companyColumns+` FROM companies ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	companies := []models.Company{}
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

// UpsertBalanceSheet replaces the stored balance sheet of the company.
func UpsertBalanceSheet(ctx context.Context, db DBTX, s *models.BalanceSheet) error {
	_, err := db.ExecContext(ctx, `
	INSERT INTO balance_sheets (company_id, current_assets, current_liabilities, inventory, cash,
	    receivables, payables, total_assets, total_debt, total_equity, revenue,
	    cost_of_goods_sold, operating_income, net_income, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(company_id) DO UPDATE SET
	    current_assets = excluded.current_assets,
	    current_liabilities = excluded.current_liabilities,
	    inventory = excluded.inventory,
	    cash = excluded.cash,
	    receivables = excluded.receivables,
	    payables = excluded.payables,
	    total_assets = excluded.total_assets,
	    total_debt = excluded.total_debt,
	    total_equity = excluded.total_equity,
	    revenue = excluded.revenue,
	    cost_of_goods_sold = excluded.cost_of_goods_sold,
	    operating_income = excluded.operating_income,
	    net_income = excluded.net_income,
	    updated_at = excluded.updated_at`,
		s.CompanyID,
		nullFloatArg(s.CurrentAssets), nullFloatArg(s.CurrentLiabilities), nullFloatArg(s.Inventory),
		nullFloatArg(s.Cash), nullFloatArg(s.Receivables), nullFloatArg(s.Payables),
		nullFloatArg(s.TotalAssets), nullFloatArg(s.TotalDebt), nullFloatArg(s.TotalEquity),
		nullFloatArg(s.Revenue), nullFloatArg(s.CostOfGoodsSold), nullFloatArg(s.OperatingIncome),
		nullFloatArg(s.NetIncome), formatTime(s.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to save balance sheet for company %d: %w", s.CompanyID, err)
	}
	return nil
}

func GetBalanceSheet(ctx context.Context, db DBTX, companyID int64) (*models.BalanceSheet, error) {
	row := db.QueryRowContext(ctx, `
	SELECT current_assets, current_liabilities, inventory, cash, receivables, payables,
	       total_assets, total_debt, total_equity, revenue, cost_of_goods_sold,
	       operating_income, net_income, updated_at
	FROM balance_sheets WHERE company_id = ?`, companyID)

	var f [13]sql.NullFloat64
	var updatedAt string
	err := row.Scan(&f[0], &f[1], &f[2], &f[3], &f[4], &f[5], &f[6], &f[7], &f[8], &f[9], &f[10], &f[11], &f[12], &updatedAt)
	if err != nil {
		return nil, notFound(err, "balance sheet for company", companyID)
	}
	t, err := parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	return &models.BalanceSheet{
		CompanyID:          companyID,
		CurrentAssets:      floatPtr(f[0]),
		CurrentLiabilities: floatPtr(f[1]),
		Inventory:          floatPtr(f[2]),
		Cash:               floatPtr(f[3]),
		Receivables:        floatPtr(f[4]),
		Payables:           floatPtr(f[5]),
		TotalAssets:        floatPtr(f[6]),
		TotalDebt:          floatPtr(f[7]),
		TotalEquity:        floatPtr(f[8]),
		Revenue:            floatPtr(f[9]),
		CostOfGoodsSold:    floatPtr(f[10]),
		OperatingIncome:    floatPtr(f[11]),
		NetIncome:          floatPtr(f[12]),
		UpdatedAt:          t,
	}, nil
}
