package model

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/username/smepulse/backend/src/models"
)

// InsertTransactions writes txs with one prepared statement and sets their IDs.
func InsertTransactions(ctx context.Context, db DBTX, txs []models.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	stmt, err := db.PrepareContext(ctx, `
	INSERT INTO transactions (document_id, company_id, date, description, amount, direction,
	    category, counterparty, reference, is_flagged, anomaly_type, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare transaction insert: %w", err)
	}
	defer stmt.Close()

	for i := range txs {
		tx := &txs[i]
		res, err := stmt.ExecContext(ctx,
			tx.DocumentID, tx.CompanyID, nullTimeArg(tx.Date.Time, tx.Date.Valid),
			nullStringArg(tx.Description), tx.Amount.String(), string(tx.Direction),
			nullStringArg(tx.Category), nullStringArg(tx.Counterparty), nullStringArg(tx.Reference),
			tx.IsFlagged, nullStringArg(tx.AnomalyType), formatTime(tx.CreatedAt))
		if err != nil {
			return fmt.Errorf("failed to insert transaction %d of document %d: %w", i, tx.DocumentID, err)
		}
		if tx.ID, err = res.LastInsertId(); err != nil {
			return err
		}
	}
	return nil
}

func DeleteTransactionsByDocument(ctx context.Context, db DBTX, documentID int64) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM transactions WHERE document_id = ?`, documentID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete transactions of document %d: %w", documentID, err)
	}
	return res.RowsAffected()
}

const transactionColumns = `t.id, t.document_id, t.company_id, t.date, t.description, t.amount, t.direction,
	t.category, t.counterparty, t.reference, t.is_flagged, t.anomaly_type, t.created_at`

func scanTransactions(rows *sql.Rows) ([]models.Transaction, error) {
	defer rows.Close()
	txs := []models.Transaction{}
	for rows.Next() {
		var tx models.Transaction
		var date, desc, category, counterparty, reference, anomalyType sql.NullString
		var direction, createdAt string
		err := rows.Scan(&tx.ID, &tx.DocumentID, &tx.CompanyID, &date, &desc, &tx.Amount, &direction,
			&category, &counterparty, &reference, &tx.IsFlagged, &anomalyType, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		nt, err := parseNullTime(date)
		if err != nil {
			return nil, err
		}
		tx.Date = models.NullTime(nt)
		tx.Direction = models.Direction(direction)
		tx.Description = desc.String
		tx.Category = category.String
		tx.Counterparty = counterparty.String
		tx.Reference = reference.String
		tx.AnomalyType = anomalyType.String
		if tx.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func ListTransactionsByDocument(ctx context.Context, db DBTX, documentID int64, limit, offset int) ([]models.Transaction, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+transactionColumns+` FROM transactions t
	WHERE t.document_id = ? ORDER BY t.id LIMIT ? OFFSET ?`, documentID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions of document %d: %w", documentID, err)
	}
	return scanTransactions(rows)
}

func CountTransactionsByDocument(ctx context.Context, db DBTX, documentID int64) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE document_id = ?`, documentID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions of document %d: %w", documentID, err)
	}
	return n, nil
}

// ListCompanyTransactions returns the transactions of a company's completed documents.
func ListCompanyTransactions(ctx context.Context, db DBTX, companyID int64) ([]models.Transaction, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+transactionColumns+` FROM transactions t
	JOIN documents d ON d.id = t.document_id
	WHERE t.company_id = ? AND d.status = ?
	ORDER BY t.date, t.id`, companyID, string(models.StatusCompleted))
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions of company %d: %w", companyID, err)
	}
	return scanTransactions(rows)
}

// FlagTransaction marks a transaction as anomalous.
func FlagTransaction(ctx context.Context, db DBTX, id int64, anomalyType models.AnomalyType) error {
	_, err := db.ExecContext(ctx, `UPDATE transactions SET is_flagged = 1, anomaly_type = ? WHERE id = ?`, string(anomalyType), id)
	if err != nil {
		return fmt.Errorf("failed to flag transaction %d: %w", id, err)
	}
	return nil
}
