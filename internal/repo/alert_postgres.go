package repo

import (
	"context"
	"time"

	"github.com/KNICEX/market-scanner/internal/entity"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const postgresAlertSchema = `
CREATE TABLE IF NOT EXISTS alerts (
	id SERIAL PRIMARY KEY,
	asset_key TEXT NOT NULL,
	symbol TEXT,
	alert_type TEXT,
	alert_time TIMESTAMP WITH TIME ZONE NOT NULL,
	pct NUMERIC,
	volume NUMERIC
);
CREATE INDEX IF NOT EXISTS idx_alerts_asset_time ON alerts (asset_key, alert_time);
`

type postgresAlertRepo struct {
	db *sqlx.DB
}

func NewPostgresAlertRepo(db *sqlx.DB) (AlertRepo, error) {
	if _, err := db.Exec(postgresAlertSchema); err != nil {
		return nil, err
	}
	return &postgresAlertRepo{db: db}, nil
}

func (r *postgresAlertRepo) Create(ctx context.Context, alert entity.Alert) (int64, error) {
	var id int64
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO alerts (asset_key, symbol, alert_type, alert_time, pct, volume)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		alert.AssetKey, alert.Symbol, alert.AlertType, alert.AlertTime, alert.Pct, alert.Volume,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *postgresAlertRepo) ExistsSince(ctx context.Context, assetKey string, cutoff time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRowxContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM alerts WHERE asset_key = $1 AND alert_time >= $2)`,
		assetKey, cutoff,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}
