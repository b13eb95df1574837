package repositories

import (
	"context"

	"gorm.io/gorm"
)

// Repos groups every repository bound to the same database handle
type Repos struct {
	User   UserRepository
	Asset  *AssetRepository
	Loan   *LoanRepository
	Ticket *TicketRepository
	Audit  *AuditRepository

	db *gorm.DB
}

// NewRepositories creates all repositories on db
func NewRepositories(db *gorm.DB) *Repos {
	return &Repos{
		User:   NewUserRepository(db),
		Asset:  NewAssetRepository(db),
		Loan:   NewLoanRepository(db),
		Ticket: NewTicketRepository(db),
		Audit:  NewAuditRepository(db),
		db:     db,
	}
}

// DB returns the underlying handle
func (r *Repos) DB() *gorm.DB {
	return r.db
}

// ExecTx runs fn inside a transaction. Every repository handed to fn is
// bound to the transaction; fn must not use the outer Repos.
func (r *Repos) ExecTx(ctx context.Context, fn func(tx *Repos) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

type statusCount struct {
	Status string
	Count  int64
}

func countByStatus(ctx context.Context, db *gorm.DB, model any) (map[string]int64, error) {
	var rows []statusCount
	err := db.WithContext(ctx).
		Model(model).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}
