package repo

import (
	"context"
	"errors"
	"time"

	"github.com/KNICEX/market-scanner/internal/entity"
	"gorm.io/gorm"
)

// AlertRepo 告警账本访问接口
// 嵌入式sqlite / 网络postgres / redis 三种实现可互换, 由配置选择
type AlertRepo interface {
	Create(ctx context.Context, alert entity.Alert) (int64, error)
	ExistsSince(ctx context.Context, assetKey string, cutoff time.Time) (bool, error)
}

type alertRepo struct {
	db *gorm.DB
}

func NewAlertRepo(db *gorm.DB) AlertRepo {
	return &alertRepo{
		db: db,
	}
}

func (r *alertRepo) Create(ctx context.Context, alert entity.Alert) (int64, error) {
	err := r.db.WithContext(ctx).Create(&alert).Error
	if err != nil {
		return 0, err
	}
	return alert.Id, nil
}

func (r *alertRepo) ExistsSince(ctx context.Context, assetKey string, cutoff time.Time) (bool, error) {
	var alert entity.Alert
	err := r.db.WithContext(ctx).
		Where("asset_key = ? AND alert_time >= ?", assetKey, cutoff).
		Take(&alert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
