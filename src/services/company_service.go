package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/username/smepulse/backend/src/logger"
	"github.com/username/smepulse/backend/src/model"
	"github.com/username/smepulse/backend/src/models"
	"github.com/username/smepulse/backend/src/security/validation"
)

type companyServiceImpl struct {
	db  *sql.DB
	now func() time.Time
}

func NewCompanyService(db *sql.DB) CompanyService {
	return &companyServiceImpl{db: db, now: time.Now}
}

func (s *companyServiceImpl) CreateCompany(ctx context.Context, name, industry, gstNumber string) (*models.Company, error) {
	name = strings.TrimSpace(name)
	gstNumber = strings.ToUpper(strings.TrimSpace(gstNumber))
	if err := validation.ValidateStringNotEmpty(name, "name"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := validation.ValidateStringMaxLength(name, validation.MaxCompanyNameLength, "name"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := validation.CheckXSSPatterns(name, "name"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	ind, err := validation.ValidateIndustry(industry)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := validation.ValidateGSTIN(gstNumber); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	c := &models.Company{Name: name, Industry: ind, GSTNumber: gstNumber, CreatedAt: s.now().UTC()}
	if err := model.CreateCompany(ctx, s.db, c); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("Company created", "companyID", c.ID, "industry", c.Industry)
	return c, nil
}

func (s *companyServiceImpl) GetCompany(ctx context.Context, companyID int64) (*models.Company, error) {
	return lookupCompany(ctx, s.db, companyID)
}

func (s *companyServiceImpl) ListCompanies(ctx context.Context) ([]models.Company, error) {
	return model.ListCompanies(ctx, s.db)
}

func (s *companyServiceImpl) RecordBalanceSheet(ctx context.Context, companyID int64, sheet models.BalanceSheet) (*models.BalanceSheet, error) {
	if _, err := lookupCompany(ctx, s.db, companyID); err != nil {
		return nil, err
	}
	sheet.CompanyID = companyID
	sheet.UpdatedAt = s.now().UTC()
	if err := model.UpsertBalanceSheet(ctx, s.db, &sheet); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("Balance sheet recorded", "companyID", companyID)
	return &sheet, nil
}

// lookupCompany maps a missing row to ErrCompanyNotFound.
func lookupCompany(ctx context.Context, db model.DBTX, companyID int64) (*models.Company, error) {
	c, err := model.GetCompanyByID(ctx, db, companyID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrCompanyNotFound, companyID)
	}
	return c, err
}
