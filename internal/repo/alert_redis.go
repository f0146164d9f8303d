package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/KNICEX/market-scanner/internal/entity"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// redisAlertRepo 每个 asset key 一个有序集合, score 为告警时间戳
type redisAlertRepo struct {
	cli redis.Cmdable
}

func NewRedisAlertRepo(cli redis.Cmdable) AlertRepo {
	return &redisAlertRepo{cli: cli}
}

func alertSetKey(assetKey string) string {
	return fmt.Sprintf("scanner:alerts:%s", assetKey)
}

type redisAlertMember struct {
	Id        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	AlertType string    `json:"alert_type"`
	AlertTime time.Time `json:"alert_time"`
	Pct       float64   `json:"pct"`
	Volume    float64   `json:"volume"`
}

func (r *redisAlertRepo) Create(ctx context.Context, alert entity.Alert) (int64, error) {
	member := redisAlertMember{
		// uuid 保证同一时间戳的重复告警也是独立成员, 账本只追加
		Id:        uuid.NewString(),
		Symbol:    alert.Symbol,
		AlertType: alert.AlertType,
		AlertTime: alert.AlertTime,
		Pct:       alert.Pct,
		Volume:    alert.Volume,
	}
	payload, err := json.Marshal(member)
	if err != nil {
		return 0, err
	}
	err = r.cli.ZAdd(ctx, alertSetKey(alert.AssetKey), redis.Z{
		Score:  float64(alert.AlertTime.Unix()),
		Member: string(payload),
	}).Err()
	if err != nil {
		return 0, err
	}
	return 0, nil
}

func (r *redisAlertRepo) ExistsSince(ctx context.Context, assetKey string, cutoff time.Time) (bool, error) {
	count, err := r.cli.ZCount(ctx, alertSetKey(assetKey),
		strconv.FormatInt(cutoff.Unix(), 10), "+inf").Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
