package workflow

import (
	"context"
	"fmt"
	"strings"

	"bitbucket.org/kiranetwork/recon_backend/config"
	"bitbucket.org/kiranetwork/recon_backend/models"
	"bitbucket.org/kiranetwork/recon_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FeeConfig struct {
	FeeType string          `json:"fee_type"`
	FeeRate decimal.Decimal `json:"fee_rate"`
}

// GetSettlementRules returns channel -> "T+<N>", keys lowercased.
// Redis first, then db, cache result.
func GetSettlementRules(ctx context.Context) (map[string]string, error) {
	rules := make(map[string]string)
	exists, err := utils.FetchCachedObject(utils.RedisKeySettlementRules, &rules)
	if err != nil {
		return nil, err
	}
	if !exists {
		params, err := listParameters(ctx, models.ParameterTypeSettlementRule)
		if err != nil {
			return nil, err
		}
		for _, p := range params {
			rules[strings.ToLower(p.Key)] = strings.ToUpper(strings.TrimSpace(p.Value))
		}
		if err := utils.CacheObject(utils.RedisKeySettlementRules, rules); err != nil {
			return nil, err
		}
	}
	return rules, nil
}

func GetAddOnHolidays(ctx context.Context) (HolidaySet, error) {
	return holidaySetByType(ctx, models.ParameterTypeAddOnHoliday, utils.RedisKeyAddOnHolidays)
}

func GetPublicHolidays(ctx context.Context) (HolidaySet, error) {
	return holidaySetByType(ctx, models.ParameterTypePublicHoliday, utils.RedisKeyPublicHolidays)
}

// CombinedHolidays is what the settlement calculator consumes:
// public holidays plus the merchant-maintained add-on dates.
func CombinedHolidays(ctx context.Context) (HolidaySet, error) {
	public, err := GetPublicHolidays(ctx)
	if err != nil {
		return nil, err
	}
	addOn, err := GetAddOnHolidays(ctx)
	if err != nil {
		return nil, err
	}
	return MergeHolidaySets(public, addOn), nil
}

func holidaySetByType(ctx context.Context, paramType string, redisKey string) (HolidaySet, error) {
	var dates []string
	exists, err := utils.FetchCachedObject(redisKey, &dates)
	if err != nil {
		return nil, err
	}
	if !exists {
		params, err := listParameters(ctx, paramType)
		if err != nil {
			return nil, err
		}
		for _, p := range params {
			dates = append(dates, p.Key)
		}
		if err := utils.CacheObject(redisKey, dates); err != nil {
			return nil, err
		}
	}
	set := make(HolidaySet, len(dates))
	for _, d := range dates {
		set.Add(d)
	}
	return set, nil
}

// GetFeeConfig resolves the fee configuration for one (entity, bucket).
// No configuration is not an error: fee falls back to zero. A malformed
// value is logged as a configuration problem and treated as unset.
func GetFeeConfig(ctx context.Context, entity string, bucket models.Bucket) (*FeeConfig, error) {
	configs, err := GetFeeConfigs(ctx)
	if err != nil {
		return nil, err
	}
	fc, ok := configs[FeeConfigKey(entity, bucket)]
	if !ok {
		return nil, nil
	}
	return &fc, nil
}

// GetFeeConfigs returns every fee config keyed "<entity>|<bucket>".
func GetFeeConfigs(ctx context.Context) (map[string]FeeConfig, error) {
	logger := config.GetLogger()
	configs := make(map[string]FeeConfig)
	exists, err := utils.FetchCachedObject(utils.RedisKeyFeeConfigs, &configs)
	if err != nil {
		return nil, err
	}
	if !exists {
		params, err := listParameters(ctx, models.ParameterTypeFeeConfig)
		if err != nil {
			return nil, err
		}
		for _, p := range params {
			fc, err := parseFeeConfigValue(p.Value)
			if err != nil {
				config.LogError(logger, "workflow", "GetFeeConfigs", "parseFeeConfigValue "+p.Key, p.Value,
					&utils.ConfigurationError{Scope: "fee_config:" + p.Key, Missing: "valid <fee_type>:<rate> value"})
				continue
			}
			configs[p.Key] = fc
		}
		if err := utils.CacheObject(utils.RedisKeyFeeConfigs, configs); err != nil {
			return nil, err
		}
	}
	return configs, nil
}

func FeeConfigKey(entity string, bucket models.Bucket) string {
	return entity + "|" + string(bucket)
}

func parseFeeConfigValue(value string) (FeeConfig, error) {
	feeType, rateStr, found := strings.Cut(value, ":")
	if !found {
		return FeeConfig{}, fmt.Errorf("invalid fee config value %q", value)
	}
	if !models.IsValidFeeType(feeType) {
		return FeeConfig{}, fmt.Errorf("invalid fee type %q", feeType)
	}
	rate, err := utils.ParseDecimal(rateStr)
	if err != nil {
		return FeeConfig{}, err
	}
	return FeeConfig{FeeType: strings.ToLower(strings.TrimSpace(feeType)), FeeRate: rate}, nil
}

// ResolveSettlementRule applies the precedence chain: a row-level manual
// override wins, then the channel's configured rule, then the default.
func ResolveSettlementRule(rules map[string]string, override *string, channelKey string) string {
	if override != nil && strings.TrimSpace(*override) != "" {
		return strings.ToUpper(strings.TrimSpace(*override))
	}
	if rule, ok := rules[strings.ToLower(channelKey)]; ok && rule != "" {
		return rule
	}
	return DefaultSettlementRule
}

func listParameters(ctx context.Context, paramType string) ([]models.Parameter, error) {
	db := config.GetDB()
	var params []models.Parameter
	if err := db.WithContext(ctx).
		Where("type = ?", paramType).
		Order("`key`").
		Find(&params).Error; err != nil {
		return nil, err
	}
	return params, nil
}

type HolidayInput struct {
	Date        string `json:"date" binding:"required"`
	Description string `json:"description"`
}

type FeeConfigInput struct {
	Entity  string          `json:"entity" binding:"required"`
	Bucket  string          `json:"bucket" binding:"required,oneof=fpx ewallet"`
	FeeType string          `json:"fee_type" binding:"required"`
	FeeRate decimal.Decimal `json:"fee_rate"`
}

type SaveParametersInput struct {
	SettlementRules map[string]string `json:"settlement_rules"`
	AddOnHolidays   []HolidayInput    `json:"add_on_holidays"`
	FeeConfigs      []FeeConfigInput  `json:"fee_configs"`
}

// SaveParameters upserts settlement rules and fee configs and replaces
// the add-on holiday list (dates omitted from the payload are deleted).
// The parameter cache is cleared afterwards so the next ledger build
// sees the new values.
func SaveParameters(ctx context.Context, input SaveParametersInput) error {
	for _, rule := range input.SettlementRules {
		if _, err := ParseSettlementRule(rule); err != nil {
			return err
		}
	}
	for _, h := range input.AddOnHolidays {
		if _, err := models.ParseDateOnly(h.Date); err != nil {
			return err
		}
	}
	for _, fc := range input.FeeConfigs {
		if !models.IsValidFeeType(fc.FeeType) {
			return fmt.Errorf("invalid fee type %q", fc.FeeType)
		}
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for channel, rule := range input.SettlementRules {
			p := models.Parameter{
				Type:  models.ParameterTypeSettlementRule,
				Key:   strings.ToLower(strings.TrimSpace(channel)),
				Value: strings.ToUpper(strings.TrimSpace(rule)),
			}
			if err := upsertParameter(tx, p); err != nil {
				return err
			}
		}

		if input.AddOnHolidays != nil {
			keptDates := make([]string, 0, len(input.AddOnHolidays))
			for _, h := range input.AddOnHolidays {
				d, _ := models.ParseDateOnly(h.Date)
				p := models.Parameter{
					Type:        models.ParameterTypeAddOnHoliday,
					Key:         d.String(),
					Value:       d.String(),
					Description: h.Description,
				}
				if err := upsertParameter(tx, p); err != nil {
					return err
				}
				keptDates = append(keptDates, d.String())
			}
			// removing a holiday from the payload removes it from the set
			deleteQuery := tx.Where("type = ?", models.ParameterTypeAddOnHoliday)
			if len(keptDates) > 0 {
				deleteQuery = deleteQuery.Where("`key` NOT IN ?", keptDates)
			}
			if err := deleteQuery.Delete(&models.Parameter{}).Error; err != nil {
				return err
			}
		}

		for _, fc := range input.FeeConfigs {
			p := models.Parameter{
				Type:  models.ParameterTypeFeeConfig,
				Key:   FeeConfigKey(strings.TrimSpace(fc.Entity), models.Bucket(fc.Bucket)),
				Value: strings.ToLower(strings.TrimSpace(fc.FeeType)) + ":" + fc.FeeRate.String(),
			}
			if err := upsertParameter(tx, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	return utils.ClearParameterCache()
}

// UpsertPublicHolidays replaces nothing: holiday feeds only ever add or
// rename dates, so rows are upserted and stale rows left alone.
func UpsertPublicHolidays(ctx context.Context, holidays []HolidayInput) (int, error) {
	db := config.GetDB()
	upserted := 0
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, h := range holidays {
			d, err := models.ParseDateOnly(h.Date)
			if err != nil {
				return err
			}
			p := models.Parameter{
				Type:        models.ParameterTypePublicHoliday,
				Key:         d.String(),
				Value:       d.String(),
				Description: h.Description,
			}
			if err := upsertParameter(tx, p); err != nil {
				return err
			}
			upserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return upserted, utils.ClearParameterCache()
}

func upsertParameter(tx *gorm.DB, p models.Parameter) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "type"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "description"}),
	}).Create(&p).Error
}

type HolidayView struct {
	Date        string `json:"date"`
	Description string `json:"description"`
}

type ParametersView struct {
	SettlementRules map[string]string    `json:"settlement_rules"`
	AddOnHolidays   []HolidayView        `json:"add_on_holidays"`
	PublicHolidays  []HolidayView        `json:"public_holidays"`
	FeeConfigs      map[string]FeeConfig `json:"fee_configs"`
}

// GetParametersView assembles every parameter group for the settings
// screen. Reads go straight to the db, skipping the redis cache: the
// screen is where operators verify what a save actually changed.
func GetParametersView(ctx context.Context) (*ParametersView, error) {
	view := &ParametersView{
		SettlementRules: make(map[string]string),
		FeeConfigs:      make(map[string]FeeConfig),
	}

	rules, err := listParameters(ctx, models.ParameterTypeSettlementRule)
	if err != nil {
		return nil, err
	}
	for _, p := range rules {
		view.SettlementRules[strings.ToLower(p.Key)] = strings.ToUpper(strings.TrimSpace(p.Value))
	}

	holidayViews := func(paramType string) ([]HolidayView, error) {
		params, err := listParameters(ctx, paramType)
		if err != nil {
			return nil, err
		}
		out := make([]HolidayView, 0, len(params))
		for _, p := range params {
			out = append(out, HolidayView{Date: p.Key, Description: p.Description})
		}
		return out, nil
	}
	if view.AddOnHolidays, err = holidayViews(models.ParameterTypeAddOnHoliday); err != nil {
		return nil, err
	}
	if view.PublicHolidays, err = holidayViews(models.ParameterTypePublicHoliday); err != nil {
		return nil, err
	}

	feeParams, err := listParameters(ctx, models.ParameterTypeFeeConfig)
	if err != nil {
		return nil, err
	}
	for _, p := range feeParams {
		fc, err := parseFeeConfigValue(p.Value)
		if err != nil {
			continue
		}
		view.FeeConfigs[p.Key] = fc
	}
	return view, nil
}
