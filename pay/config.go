package pay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/dealdesk/ledger"
)

// =============================================================================
// CONFIG MANAGER - Pay plan persistence
// =============================================================================

// ConfigManager stores one pay plan per user. Created with defaults on
// first access, overwritten wholesale on save, never versioned: the
// CURRENT plan applies retroactively even to archived-month pay views.
type ConfigManager struct {
	store  ledger.Store
	events *ledger.Broadcaster
}

func NewConfigManager(store ledger.Store, events *ledger.Broadcaster) *ConfigManager {
	return &ConfigManager{store: store, events: events}
}

// Get returns the user's pay plan, persisting defaults on first access so
// subsequent reads (and exports) see a concrete record.
func (cm *ConfigManager) Get(ctx context.Context, userID string) (PayPlanConfig, error) {
	data, err := cm.store.Get(ctx, ledger.KindPayPlan, userID)
	if err != nil {
		return PayPlanConfig{}, err
	}

	config := DefaultConfig()
	if ledger.DecodeTolerant(ledger.KindPayPlan, userID, data, &config) {
		return config, nil
	}

	// First access (or corrupt record): write defaults back.
	if err := cm.Save(ctx, userID, config); err != nil {
		return PayPlanConfig{}, err
	}
	return config, nil
}

// Save overwrites the user's pay plan wholesale.
func (cm *ConfigManager) Save(ctx context.Context, userID string, config PayPlanConfig) error {
	verr := validate(config)
	if verr != nil {
		return verr
	}

	data, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshal pay plan for user %s: %w", userID, err)
	}
	if err := cm.store.Set(ctx, ledger.KindPayPlan, userID, data); err != nil {
		return err
	}
	cm.events.Publish(ledger.Change{UserID: userID, Kind: ledger.ChangePayPlan})
	return nil
}

func validate(config PayPlanConfig) error {
	fields := make(map[string]string)
	hundred := decimal.NewFromInt(100)

	if config.CommissionRate.IsNegative() || config.CommissionRate.GreaterThan(hundred) {
		fields["commissionRate"] = "must be between 0 and 100"
	}
	if config.BaseRate.IsNegative() {
		fields["baseRate"] = "must not be negative"
	}
	if config.VSCBonus.IsNegative() {
		fields["vscBonus"] = "must not be negative"
	}
	if config.GAPBonus.IsNegative() {
		fields["gapBonus"] = "must not be negative"
	}
	if config.PPMBonus.IsNegative() {
		fields["ppmBonus"] = "must not be negative"
	}

	if len(fields) == 0 {
		return nil
	}
	return &ledger.ValidationError{Fields: fields}
}
