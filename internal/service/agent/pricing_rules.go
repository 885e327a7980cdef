// Package agent 提供定价和可用性分析代理
package agent

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dumeirei/bnb-booking-backend/internal/common/config"
	"github.com/dumeirei/bnb-booking-backend/internal/common/dateutil"
)

// PricingFactors 定价因子，随结果返回以便解释
type PricingFactors struct {
	SeasonalFactor         float64 `json:"seasonal_factor"`
	DemandFactor           float64 `json:"demand_factor"`
	AdvanceBookingDiscount float64 `json:"advance_booking_discount"`
	WeekendSurcharge       float64 `json:"weekend_surcharge"`
}

// NeutralFactors 不做任何调整的因子
func NeutralFactors() PricingFactors {
	return PricingFactors{SeasonalFactor: 1, DemandFactor: 1}
}

// 季节系数，按月份
var seasonalFactors = map[time.Month]float64{
	time.January:   1.20,
	time.February:  0.90,
	time.March:     0.90,
	time.April:     1.15,
	time.May:       1.15,
	time.June:      1.30,
	time.July:      1.30,
	time.August:    1.30,
	time.September: 1.30,
	time.October:   0.90,
	time.November:  0.90,
	time.December:  1.20,
}

// PricingRules 定价规则，纯函数，"今天" 由调用方传入
type PricingRules struct {
	cfg config.AgentConfig
}

// NewPricingRules 创建定价规则
func NewPricingRules(cfg config.AgentConfig) *PricingRules {
	return &PricingRules{cfg: cfg}
}

// SeasonalFactor 季节系数
func SeasonalFactor(date time.Time) float64 {
	return seasonalFactors[date.Month()]
}

// Factors 计算某天的定价因子
// concurrent 为当天被占用的未取消预订数（全部房间）
func (r *PricingRules) Factors(date, today time.Time, concurrent int) PricingFactors {
	f := NeutralFactors()
	f.SeasonalFactor = SeasonalFactor(date)

	// 周五、周六加价
	if wd := date.Weekday(); wd == time.Friday || wd == time.Saturday {
		f.WeekendSurcharge = r.cfg.WeekendSurcharge
	}

	switch {
	case concurrent > r.cfg.DemandHighBookings:
		f.DemandFactor = r.cfg.DemandHighMultiplier
	case concurrent > r.cfg.DemandLowBookings:
		f.DemandFactor = r.cfg.DemandLowMultiplier
	}

	switch advance := dateutil.DaysBetween(today, date); {
	case advance > r.cfg.AdvanceLongDays:
		f.AdvanceBookingDiscount = r.cfg.AdvanceLongDiscount
	case advance > r.cfg.AdvanceShortDays:
		f.AdvanceBookingDiscount = r.cfg.AdvanceShortDiscount
	}

	return f
}

// Adjust 按 base × 季节 × 需求 × (1+周末) × (1−提前折扣) 计算，四舍五入到分
func Adjust(base float64, f PricingFactors) float64 {
	one := decimal.NewFromInt(1)
	price := decimal.NewFromFloat(base).
		Mul(decimal.NewFromFloat(f.SeasonalFactor)).
		Mul(decimal.NewFromFloat(f.DemandFactor)).
		Mul(one.Add(decimal.NewFromFloat(f.WeekendSurcharge))).
		Mul(one.Sub(decimal.NewFromFloat(f.AdvanceBookingDiscount)))
	return price.Round(2).InexactFloat64()
}

// Evaluate 计算某天的建议价格，同时返回所用因子
func (r *PricingRules) Evaluate(base float64, date, today time.Time, concurrent int) (float64, PricingFactors) {
	f := r.Factors(date, today, concurrent)
	return Adjust(base, f), f
}

// ChangePercent 调整幅度百分比 |adjusted − original| / original × 100
func ChangePercent(original, adjusted float64) decimal.Decimal {
	orig := decimal.NewFromFloat(original)
	if orig.IsZero() {
		return decimal.NewFromInt(100)
	}
	return decimal.NewFromFloat(adjusted).Sub(orig).Abs().Div(orig).Mul(decimal.NewFromInt(100))
}

// ExceedsThreshold 调整幅度是否严格大于阈值
func ExceedsThreshold(original, adjusted, threshold float64) bool {
	return ChangePercent(original, adjusted).GreaterThan(decimal.NewFromFloat(threshold))
}
