package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/wordgate/wordgate/internal/domain/entity"
	"github.com/wordgate/wordgate/internal/domain/repository"
	"github.com/wordgate/wordgate/internal/logging"
)

type alarmRepo struct {
	db *sql.DB
}

// NewAlarmRepository creates a new SQLite-backed alarm repository.
func NewAlarmRepository(db *sql.DB) repository.AlarmRepository {
	return &alarmRepo{db: db}
}

// Upsert records the single active alarm for a tab. A tab has at most one
// alarm; replacing is what enforces that on the durable side.
func (r *alarmRepo) Upsert(ctx context.Context, alarm entity.AlarmRecord) error {
	log := logging.FromContext(ctx)
	log.Debug().
		Int("tab_id", int(alarm.TabID)).
		Str("kind", string(alarm.Kind)).
		Time("scheduled_at", alarm.ScheduledAt).
		Msg("persisting durable alarm")

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO alarms (tab_id, kind, scheduled_ms) VALUES (?, ?, ?)
		ON CONFLICT(tab_id) DO UPDATE SET kind = excluded.kind, scheduled_ms = excluded.scheduled_ms`,
		int64(alarm.TabID), string(alarm.Kind), alarm.ScheduledAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert alarm for tab %d: %w", alarm.TabID, err)
	}
	return nil
}

func (r *alarmRepo) Delete(ctx context.Context, tabID entity.TabID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM alarms WHERE tab_id = ?`, int64(tabID))
	return err
}

func (r *alarmRepo) LoadAll(ctx context.Context) ([]entity.AlarmRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT tab_id, kind, scheduled_ms FROM alarms ORDER BY scheduled_ms`)
	if err != nil {
		return nil, fmt.Errorf("query alarms: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var alarms []entity.AlarmRecord
	for rows.Next() {
		var (
			tabID int64
			kind  string
			ms    int64
		)
		if err := rows.Scan(&tabID, &kind, &ms); err != nil {
			return nil, fmt.Errorf("scan alarm: %w", err)
		}
		alarms = append(alarms, entity.AlarmRecord{
			TabID:       entity.TabID(tabID),
			Kind:        entity.TimerKind(kind),
			ScheduledAt: fromMillis(ms),
		})
	}
	return alarms, rows.Err()
}
