package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/core/datamodel/credential"
	domain "github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/credential"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FindByUsername(ctx context.Context, username string) (*domain.BranchCredential, error) {
	var row credential.BranchOperator
	err := r.db.WithContext(ctx).Where("username = ?", username).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find credential: %w", err)
	}
	c := ToDomain(&row)
	return &c, nil
}

// Upsert writes creds keyed by username, replacing existing rows.
func (r *Repository) Upsert(ctx context.Context, creds []domain.BranchCredential) error {
	if len(creds) == 0 {
		return nil
	}
	rows := make([]credential.BranchOperator, len(creds))
	for i, c := range creds {
		rows[i] = ToDataModel(c)
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoUpdates: clause.AssignmentColumns([]string{"password_hash", "display_name", "email", "upstream_secret", "location_id", "updated_at"}),
	}).Create(&rows).Error
}

// Clear removes every credential row.
func (r *Repository) Clear(ctx context.Context) error {
	return r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&credential.BranchOperator{}).Error
}

func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func ToDomain(row *credential.BranchOperator) domain.BranchCredential {
	return domain.BranchCredential{
		Username:     row.Username,
		PasswordHash: row.PasswordHash,
		DisplayName:  row.DisplayName,
		Email:        row.Email,
		Secret:       row.UpstreamSecret,
		LocationID:   row.LocationID,
	}
}

func ToDataModel(c domain.BranchCredential) credential.BranchOperator {
	return credential.BranchOperator{
		Username:       c.Username,
		PasswordHash:   c.PasswordHash,
		DisplayName:    c.DisplayName,
		Email:          c.Email,
		UpstreamSecret: c.Secret,
		LocationID:     c.LocationID,
	}
}
