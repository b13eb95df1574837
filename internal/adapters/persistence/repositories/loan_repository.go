package repositories

import (
	"context"
	"time"

	"ministry-assetloan/internal/adapters/persistence/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// LoanRepository handles loan application data access
type LoanRepository struct {
	db *gorm.DB
}

// NewLoanRepository creates a new loan repository
func NewLoanRepository(db *gorm.DB) *LoanRepository {
	return &LoanRepository{db: db}
}

// LoanFilter narrows loan listings
type LoanFilter struct {
	Statuses []string
	UserID   *uint
	SortBy   string
	Desc     bool
	Offset   int
	Limit    int
}

// loanSortColumns maps accepted sort keys to columns
var loanSortColumns = map[string]string{
	"created_at":         "created_at",
	"loan_start_date":    "loan_start_date",
	"loan_end_date":      "loan_end_date",
	"application_number": "application_number",
}

// IsLoanSortKey reports whether key can be used to order loan listings
func IsLoanSortKey(key string) bool {
	_, ok := loanSortColumns[key]
	return ok
}

// Create creates a new application together with its items
func (r *LoanRepository) Create(ctx context.Context, app *models.LoanApplication) error {
	return errors.WithStack(r.db.WithContext(ctx).Create(app).Error)
}

// GetByID gets an application by ID with items and extensions
func (r *LoanRepository) GetByID(ctx context.Context, id uint) (*models.LoanApplication, error) {
	var app models.LoanApplication
	err := r.withDetails(r.db.WithContext(ctx)).First(&app, id).Error
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &app, nil
}

// GetByNumber gets an application by its application number
func (r *LoanRepository) GetByNumber(ctx context.Context, number string) (*models.LoanApplication, error) {
	var app models.LoanApplication
	err := r.withDetails(r.db.WithContext(ctx)).
		Where("application_number = ?", number).
		First(&app).Error
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &app, nil
}

func (r *LoanRepository) withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, id ASC") }).
		Preload("Items.Asset").
		Preload("Extensions", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") })
}

// List lists applications ordered by the filter's sort key (created_at ASC by default)
func (r *LoanRepository) List(ctx context.Context, filter LoanFilter) ([]*models.LoanApplication, int64, error) {
	var apps []*models.LoanApplication
	var total int64

	query := r.db.WithContext(ctx).Model(&models.LoanApplication{})
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errors.WithStack(err)
	}

	column, ok := loanSortColumns[filter.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := " ASC"
	if filter.Desc {
		direction = " DESC"
	}

	query = query.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, id ASC") }).
		Preload("Items.Asset").
		Order(column + direction).
		Order("id" + direction)
	if filter.Limit > 0 {
		query = query.Offset(filter.Offset).Limit(filter.Limit)
	}

	err := query.Find(&apps).Error
	return apps, total, errors.WithStack(err)
}

// CompareAndSetStatus moves the application from one status to another,
// applying extra column updates in the same statement. It reports whether
// the row was updated.
func (r *LoanRepository) CompareAndSetStatus(ctx context.Context, id uint, from, to string, fields map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range fields {
		updates[k] = v
	}

	result := r.db.WithContext(ctx).
		Model(&models.LoanApplication{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, errors.WithStack(result.Error)
	}
	return result.RowsAffected == 1, nil
}

// CurrentStatus reads only the status column
func (r *LoanRepository) CurrentStatus(ctx context.Context, id uint) (string, error) {
	var app models.LoanApplication
	err := r.db.WithContext(ctx).Select("id", "status").First(&app, id).Error
	return app.Status, errors.WithStack(err)
}

// UpdateItem updates columns on a single loan item
func (r *LoanRepository) UpdateItem(ctx context.Context, itemID uint, fields map[string]interface{}) error {
	return errors.WithStack(r.db.WithContext(ctx).
		Model(&models.LoanItem{}).
		Where("id = ?", itemID).
		Updates(fields).Error)
}

// CountByStatus returns application counts keyed by status
func (r *LoanRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	counts, err := countByStatus(ctx, r.db, &models.LoanApplication{})
	return counts, errors.WithStack(err)
}

// ============================================================
// Extensions
// ============================================================

// CreateExtension records an extension request
func (r *LoanRepository) CreateExtension(ctx context.Context, ext *models.LoanExtension) error {
	return errors.WithStack(r.db.WithContext(ctx).Create(ext).Error)
}

// FindPendingExtension returns the pending extension for an application, or nil
func (r *LoanRepository) FindPendingExtension(ctx context.Context, appID uint) (*models.LoanExtension, error) {
	var ext models.LoanExtension
	err := r.db.WithContext(ctx).
		Where("loan_application_id = ? AND status = ?", appID, "pending").
		Order("id DESC").
		First(&ext).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &ext, nil
}

// DecideExtension moves a pending extension to status. It reports whether
// the extension was still pending.
func (r *LoanRepository) DecideExtension(ctx context.Context, extID uint, status string, decidedBy *uint, note string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.LoanExtension{}).
		Where("id = ? AND status = ?", extID, "pending").
		Updates(map[string]interface{}{
			"status":        status,
			"decided_by":    decidedBy,
			"decided_at":    at,
			"decision_note": note,
		})
	if result.Error != nil {
		return false, errors.WithStack(result.Error)
	}
	return result.RowsAffected == 1, nil
}
