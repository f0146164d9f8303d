package entity

import (
	"time"
)

// Alert 已发送的告警记录, 只追加不更新
// AssetKey 是去重标识 (exchange:base 或指数提供方的coin id)
type Alert struct {
	Id        int64  `gorm:"primaryKey;autoIncrement"`
	AssetKey  string `gorm:"index:idx_asset_time"`
	Symbol    string
	AlertType string    `gorm:"index"`
	AlertTime time.Time `gorm:"index:idx_asset_time"`
	Pct       float64
	Volume    float64
}

const (
	AlertTypeIndicator = "indicator" // 指标规则命中
	AlertType24hPct    = "24h_pct"   // 指数24h涨幅兜底告警
)
