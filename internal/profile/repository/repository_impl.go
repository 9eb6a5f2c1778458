package repository

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/tradesmap/internal/profile/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct {
	db *gorm.DB
}

func New(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

// UpsertMerge inserts the profile or overwrites only the supplied columns of an existing one.
func (r *repo) UpsertMerge(ctx context.Context, uid string, fields domain.Fields, now time.Time) error {
	cols := fields.Columns()
	if len(cols) == 0 {
		return domain.ErrNoFields
	}

	row := domain.Profile{UID: uid, CreatedAt: now, UpdatedAt: now}
	fields.ApplyTo(&row)

	insertCols := append([]string{"uid", "created_at", "updated_at"}, cols...)
	updateCols := append(append([]string(nil), cols...), "updated_at")

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "uid"}},
			DoUpdates: clause.AssignmentColumns(updateCols),
		}).
		Select(insertCols).
		Create(&row).Error
}

func (r *repo) FindByUID(ctx context.Context, uid string) (*domain.Profile, error) {
	var profile domain.Profile
	err := r.db.WithContext(ctx).Where("uid = ?", uid).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
