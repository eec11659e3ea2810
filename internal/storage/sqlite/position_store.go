package sqlite

import (
	"context"
	"fmt"

	"solana-launch-sniper/internal/domain"
	"solana-launch-sniper/internal/storage"
)

// PositionStore implements storage.PositionStore on SQLite.
type PositionStore struct {
	db *DB
}

// NewPositionStore creates a new PositionStore.
func NewPositionStore(db *DB) *PositionStore {
	return &PositionStore{db: db}
}

var _ storage.PositionStore = (*PositionStore)(nil)

// Insert adds a position. Returns ErrDuplicateKey if buy_sig exists.
func (s *PositionStore) Insert(ctx context.Context, p *domain.Position) error {
	if p == nil || p.BuySig == "" || p.Mint == "" {
		return storage.ErrInvalidInput
	}

	row := toPositionRow(p)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert position: %w", err)
	}
	return nil
}

// GetByMint returns positions for mint ordered by opened_at.
func (s *PositionStore) GetByMint(ctx context.Context, mint string) ([]*domain.Position, error) {
	var rows []positionRow
	err := s.db.WithContext(ctx).
		Where("mint = ?", mint).
		Order("opened_at ASC, buy_sig ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("get positions by mint: %w", err)
	}
	return positionsFromRows(rows), nil
}

// GetAll returns all positions ordered by opened_at.
func (s *PositionStore) GetAll(ctx context.Context) ([]*domain.Position, error) {
	var rows []positionRow
	if err := s.db.WithContext(ctx).Order("opened_at ASC, buy_sig ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("get all positions: %w", err)
	}
	return positionsFromRows(rows), nil
}

func positionsFromRows(rows []positionRow) []*domain.Position {
	positions := make([]*domain.Position, 0, len(rows))
	for _, r := range rows {
		positions = append(positions, r.toDomain())
	}
	return positions
}
