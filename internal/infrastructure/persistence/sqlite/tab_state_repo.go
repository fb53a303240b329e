package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/wordgate/wordgate/internal/domain/entity"
	"github.com/wordgate/wordgate/internal/domain/repository"
	"github.com/wordgate/wordgate/internal/logging"
)

type tabStateRepo struct {
	db *sql.DB
}

// NewTabStateRepository creates a new SQLite-backed tab state repository.
func NewTabStateRepository(db *sql.DB) repository.TabStateRepository {
	return &tabStateRepo{db: db}
}

// SaveAll replaces the persisted snapshot with the given states.
// The in-memory map is the source of truth; tabs absent from it are pruned.
func (r *tabStateRepo) SaveAll(ctx context.Context, states []*entity.TabState) error {
	log := logging.FromContext(ctx)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tab state transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			log.Debug().Err(rollbackErr).Msg("tab state rollback reported non-terminal error")
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tab_states`); err != nil {
		return fmt.Errorf("prune tab states: %w", err)
	}

	now := time.Now().UnixMilli()
	for _, s := range states {
		if s == nil {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tab_states
				(tab_id, url, last_question_ms, question_count, is_blocked, block_reason, penalty_end_ms, updated_at_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			int64(s.TabID), s.URL, toMillis(s.LastQuestionTime), s.QuestionCount,
			boolToInt(s.IsBlocked), string(s.BlockReason), toMillis(s.PenaltyEndTime), now,
		)
		if err != nil {
			return fmt.Errorf("insert tab state %d: %w", s.TabID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tab state transaction: %w", err)
	}

	log.Debug().Int("tab_count", len(states)).Msg("tab state snapshot saved")
	return nil
}

func (r *tabStateRepo) LoadAll(ctx context.Context) ([]*entity.TabState, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT tab_id, url, last_question_ms, question_count, is_blocked, block_reason, penalty_end_ms
		FROM tab_states ORDER BY tab_id`)
	if err != nil {
		return nil, fmt.Errorf("query tab states: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var states []*entity.TabState
	for rows.Next() {
		var (
			tabID      int64
			s          entity.TabState
			lastMs     int64
			blockedInt int
			reason     string
			penaltyMs  int64
		)
		if err := rows.Scan(&tabID, &s.URL, &lastMs, &s.QuestionCount, &blockedInt, &reason, &penaltyMs); err != nil {
			return nil, fmt.Errorf("scan tab state: %w", err)
		}
		s.TabID = entity.TabID(tabID)
		s.LastQuestionTime = fromMillis(lastMs)
		s.IsBlocked = blockedInt != 0
		s.BlockReason = entity.BlockReason(reason)
		s.PenaltyEndTime = fromMillis(penaltyMs)
		states = append(states, &s)
	}
	return states, rows.Err()
}

func (r *tabStateRepo) Delete(ctx context.Context, tabID entity.TabID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tab_states WHERE tab_id = ?`, int64(tabID))
	return err
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
