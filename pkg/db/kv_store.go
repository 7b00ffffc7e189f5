package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Bvvvp009/farcasterpaywall/pkg/db/models"
	"github.com/Bvvvp009/farcasterpaywall/pkg/kv"
)

var _ kv.Store = (*Store)(nil)

const scanBatchSize = 200

// Store implements kv.Store on the kv_entries table. Values must be JSON.
type Store struct {
	conn *gorm.DB
}

func NewStore(conn *gorm.DB) *Store {
	return &Store{conn: conn}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var entry models.KVEntry
	err := s.conn.WithContext(ctx).Where("entry_key = ?", key).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(entry.Value), nil
}

// Set upserts the row; the previous value is replaced wholesale.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	entry := models.KVEntry{Key: key, Value: value}
	return s.conn.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.conn.WithContext(ctx).Where("entry_key = ?", key).Delete(&models.KVEntry{}).Error
}

// Scan pages through rows ordered by key using keyset pagination.
func (s *Store) Scan(ctx context.Context, prefix string, fn func(key string, value []byte) bool) error {
	pattern := escapeLike(prefix) + "%"
	after := ""
	for {
		var batch []models.KVEntry
		q := s.conn.WithContext(ctx).
			Where(`entry_key LIKE ? ESCAPE '\'`, pattern).
			Order("entry_key ASC").
			Limit(scanBatchSize)
		if after != "" {
			q = q.Where("entry_key > ?", after)
		}
		if err := q.Find(&batch).Error; err != nil {
			return fmt.Errorf("scan %s: %w", prefix, err)
		}
		for _, entry := range batch {
			if !fn(entry.Key, []byte(entry.Value)) {
				return nil
			}
		}
		if len(batch) < scanBatchSize {
			return nil
		}
		after = batch[len(batch)-1].Key
	}
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
