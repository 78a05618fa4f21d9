package ops

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"riskcore/internal/risk"
	"riskcore/internal/schema"
)

// FileConfig mirrors the JSON/YAML config layout. Money and price values
// are decimal strings; resolution shifts them into ticks by the relevant
// scale.
type FileConfig struct {
	Version    uint64             `json:"version" yaml:"version"`
	MoneyScale schema.Scale       `json:"moneyScale" yaml:"moneyScale"`
	Registry   RegistryConfig     `json:"registry" yaml:"registry"`
	Limits     LimitsConfig       `json:"limits" yaml:"limits"`
	Breaker    BreakerConfig      `json:"breaker" yaml:"breaker"`
	Margin     MarginConfig       `json:"margin" yaml:"margin"`
	Flow       FlowConfig         `json:"flow" yaml:"flow"`
	Features   FeatureFlagsConfig `json:"features" yaml:"features"`
}

// RegistryConfig defines account and instrument mappings.
type RegistryConfig struct {
	Accounts    []AccountConfig    `json:"accounts" yaml:"accounts"`
	Instruments []InstrumentConfig `json:"instruments" yaml:"instruments"`
}

// AccountConfig describes an account entry. Limits, when present,
// override the default limits for this account only.
type AccountConfig struct {
	Name   string        `json:"name" yaml:"name"`
	Limits *LimitsConfig `json:"limits,omitempty" yaml:"limits,omitempty"`
}

// InstrumentConfig describes an instrument entry.
type InstrumentConfig struct {
	Name  string      `json:"name" yaml:"name"`
	Scale ScaleConfig `json:"scale" yaml:"scale"`
}

// ScaleConfig mirrors schema.ScaleSpec with config tags.
type ScaleConfig struct {
	Price    schema.Scale `json:"price" yaml:"price"`
	Quantity schema.Scale `json:"quantity" yaml:"quantity"`
	Notional schema.Scale `json:"notional" yaml:"notional"`
	Fee      schema.Scale `json:"fee" yaml:"fee"`
}

// LimitsConfig carries the pre-trade limit fields. Nil fields keep the
// value they overlay; money fields are decimal strings at MoneyScale.
type LimitsConfig struct {
	MaxPosition   *int64  `json:"maxPosition" yaml:"maxPosition"`
	MaxOrderSize  *int64  `json:"maxOrderSize" yaml:"maxOrderSize"`
	MaxNotional   *string `json:"maxNotional" yaml:"maxNotional"`
	MaxOpenOrders *uint32 `json:"maxOpenOrders" yaml:"maxOpenOrders"`
	MaxDailyLoss  *string `json:"maxDailyLoss" yaml:"maxDailyLoss"`
}

// BreakerConfig carries the circuit breaker bounds. MaxMove is a decimal
// string in price units, shifted by each instrument's price scale.
type BreakerConfig struct {
	MaxMove           string                  `json:"maxMove" yaml:"maxMove"`
	MaxFillsPerWindow uint32                  `json:"maxFillsPerWindow" yaml:"maxFillsPerWindow"`
	WindowMs          int64                   `json:"windowMs" yaml:"windowMs"`
	Overrides         []BreakerOverrideConfig `json:"overrides,omitempty" yaml:"overrides,omitempty"`
}

// BreakerOverrideConfig widens or tightens MaxMove for one instrument.
type BreakerOverrideConfig struct {
	Instrument string `json:"instrument" yaml:"instrument"`
	MaxMove    string `json:"maxMove" yaml:"maxMove"`
}

// MarginConfig carries margin rates in basis points and the starting
// account equity as a decimal string at MoneyScale.
type MarginConfig struct {
	InitialMarginBps     *uint32 `json:"initialMarginBps" yaml:"initialMarginBps"`
	MaintenanceMarginBps *uint32 `json:"maintenanceMarginBps" yaml:"maintenanceMarginBps"`
	Equity               string  `json:"equity" yaml:"equity"`
}

// FlowConfig describes the synthetic order flow the daemon can generate.
type FlowConfig struct {
	Account     string `json:"account" yaml:"account"`
	Instrument  string `json:"instrument" yaml:"instrument"`
	BasePrice   string `json:"basePrice" yaml:"basePrice"`
	Qty         int64  `json:"qty" yaml:"qty"`
	Seed        uint64 `json:"seed" yaml:"seed"`
	DriftTicks  int64  `json:"driftTicks" yaml:"driftTicks"`
	JitterTicks int64  `json:"jitterTicks" yaml:"jitterTicks"`
}

// FeatureFlagsConfig captures optional runtime flags.
type FeatureFlagsConfig struct {
	EnableOrderFlow   *bool `json:"enableOrderFlow" yaml:"enableOrderFlow"`
	EnableFills       *bool `json:"enableFills" yaml:"enableFills"`
	EnableMarginWatch *bool `json:"enableMarginWatch" yaml:"enableMarginWatch"`
}

// FeatureFlags are resolved runtime flags.
type FeatureFlags struct {
	EnableOrderFlow   bool
	EnableFills       bool
	EnableMarginWatch bool
}

// FlowSpec is the resolved synthetic flow definition.
type FlowSpec struct {
	AccountID    uint32
	InstrumentID uint32
	BasePrice    schema.Price
	Qty          schema.Quantity
	Seed         uint64
	DriftTicks   int64
	JitterTicks  int64
}

// Enabled reports whether a flow was configured.
func (s FlowSpec) Enabled() bool {
	return s.InstrumentID != 0
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Version   uint64
	Registry  *schema.Registry
	Limits    risk.Limits
	Overrides map[uint32]risk.Limits
	Breakers  map[uint32]risk.BreakerConfig
	Margin    risk.MarginParams
	Equity    schema.Money
	Flow      FlowSpec
	Features  FeatureFlags
}

// LimitsFor returns the limits in force for an account.
func (l Loaded) LimitsFor(accountID uint32) risk.Limits {
	if limits, ok := l.Overrides[accountID]; ok {
		return limits
	}
	return l.Limits
}

// Load reads a config file, JSON or YAML by extension, and resolves it.
func Load(path string) (Loaded, error) {
	cfg, err := readFile(path)
	if err != nil {
		return Loaded{}, err
	}

	registry, err := buildRegistry(cfg.Registry)
	if err != nil {
		return Loaded{}, err
	}

	defaults, err := resolveLimits(risk.DefaultLimits(), cfg.Limits, cfg.MoneyScale)
	if err != nil {
		return Loaded{}, fmt.Errorf("limits: %w", err)
	}

	overrides := make(map[uint32]risk.Limits)
	for _, acct := range cfg.Registry.Accounts {
		if acct.Limits == nil {
			continue
		}
		id, ok := registry.AccountIDByName(acct.Name)
		if !ok {
			return Loaded{}, fmt.Errorf("account not found: %s", acct.Name)
		}
		resolved, err := resolveLimits(defaults, *acct.Limits, cfg.MoneyScale)
		if err != nil {
			return Loaded{}, fmt.Errorf("account %s limits: %w", acct.Name, err)
		}
		overrides[uint32(id)] = resolved
	}

	breakers, err := resolveBreakers(cfg.Breaker, registry)
	if err != nil {
		return Loaded{}, err
	}

	margin, equity, err := resolveMargin(cfg.Margin, cfg.MoneyScale)
	if err != nil {
		return Loaded{}, err
	}

	flow, err := resolveFlow(cfg.Flow, registry)
	if err != nil {
		return Loaded{}, err
	}

	return Loaded{
		Version:   cfg.Version,
		Registry:  registry,
		Limits:    defaults,
		Overrides: overrides,
		Breakers:  breakers,
		Margin:    margin,
		Equity:    equity,
		Flow:      flow,
		Features:  resolveFeatures(cfg.Features),
	}, nil
}

// LoadRegistry reads a config file and only builds the registry.
func LoadRegistry(path string) (*schema.Registry, error) {
	cfg, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return buildRegistry(cfg.Registry)
}

func readFile(path string) (FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, err
	}
	var cfg FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return FileConfig{}, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return FileConfig{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return cfg, nil
}

func buildRegistry(cfg RegistryConfig) (*schema.Registry, error) {
	reg := schema.NewRegistry()
	for _, acct := range cfg.Accounts {
		if _, err := reg.AddAccount(acct.Name); err != nil {
			return nil, err
		}
	}
	for _, inst := range cfg.Instruments {
		if err := validateScale(inst.Scale); err != nil {
			return nil, fmt.Errorf("invalid scale for %s: %w", inst.Name, err)
		}
		spec := schema.ScaleSpec{
			PriceScale:    inst.Scale.Price,
			QuantityScale: inst.Scale.Quantity,
			NotionalScale: inst.Scale.Notional,
			FeeScale:      inst.Scale.Fee,
		}
		if _, err := reg.AddInstrument(inst.Name, spec); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func validateScale(scale ScaleConfig) error {
	if scale.Price < 0 || scale.Quantity < 0 || scale.Notional < 0 || scale.Fee < 0 {
		return fmt.Errorf("scale must be >= 0")
	}
	return nil
}

func resolveLimits(base risk.Limits, cfg LimitsConfig, moneyScale schema.Scale) (risk.Limits, error) {
	out := base
	if cfg.MaxPosition != nil {
		if *cfg.MaxPosition < 0 {
			return out, fmt.Errorf("maxPosition must be >= 0")
		}
		out.MaxPosition = schema.Quantity(*cfg.MaxPosition)
	}
	if cfg.MaxOrderSize != nil {
		if *cfg.MaxOrderSize < 0 {
			return out, fmt.Errorf("maxOrderSize must be >= 0")
		}
		out.MaxOrderSize = schema.Quantity(*cfg.MaxOrderSize)
	}
	if cfg.MaxNotional != nil {
		ticks, err := parseTicks(*cfg.MaxNotional, moneyScale)
		if err != nil {
			return out, fmt.Errorf("maxNotional: %w", err)
		}
		if ticks < 0 {
			return out, fmt.Errorf("maxNotional must be >= 0")
		}
		out.MaxNotional = schema.Notional(ticks)
	}
	if cfg.MaxOpenOrders != nil {
		out.MaxOpenOrders = *cfg.MaxOpenOrders
	}
	if cfg.MaxDailyLoss != nil {
		ticks, err := parseTicks(*cfg.MaxDailyLoss, moneyScale)
		if err != nil {
			return out, fmt.Errorf("maxDailyLoss: %w", err)
		}
		if ticks > 0 {
			return out, fmt.Errorf("maxDailyLoss must be <= 0")
		}
		out.MaxDailyLoss = schema.Money(ticks)
	}
	return out, nil
}

func resolveBreakers(cfg BreakerConfig, reg *schema.Registry) (map[uint32]risk.BreakerConfig, error) {
	if cfg.MaxMove == "" {
		return nil, fmt.Errorf("breaker.maxMove is empty")
	}
	if cfg.WindowMs <= 0 {
		return nil, fmt.Errorf("breaker.windowMs must be > 0")
	}
	windowNs := (time.Duration(cfg.WindowMs) * time.Millisecond).Nanoseconds()

	overrides := make(map[string]string, len(cfg.Overrides))
	for _, o := range cfg.Overrides {
		if _, ok := reg.InstrumentIDByName(o.Instrument); !ok {
			return nil, fmt.Errorf("breaker override instrument not found: %s", o.Instrument)
		}
		overrides[o.Instrument] = o.MaxMove
	}

	out := make(map[uint32]risk.BreakerConfig, reg.InstrumentCount())
	for i := 0; i < reg.InstrumentCount(); i++ {
		inst, _ := reg.InstrumentAt(i)
		raw := cfg.MaxMove
		if o, ok := overrides[inst.Name]; ok {
			raw = o
		}
		ticks, err := parseTicks(raw, inst.Scale.PriceScale)
		if err != nil {
			return nil, fmt.Errorf("breaker.maxMove for %s: %w", inst.Name, err)
		}
		if ticks < 0 {
			return nil, fmt.Errorf("breaker.maxMove for %s must be >= 0", inst.Name)
		}
		out[uint32(inst.ID)] = risk.BreakerConfig{
			MaxMove:           schema.Price(ticks),
			MaxFillsPerWindow: cfg.MaxFillsPerWindow,
			WindowNs:          windowNs,
		}
	}
	return out, nil
}

func resolveMargin(cfg MarginConfig, moneyScale schema.Scale) (risk.MarginParams, schema.Money, error) {
	params := risk.DefaultMarginParams()
	if cfg.InitialMarginBps != nil {
		params.InitialMarginBps = *cfg.InitialMarginBps
	}
	if cfg.MaintenanceMarginBps != nil {
		params.MaintenanceMarginBps = *cfg.MaintenanceMarginBps
	}
	if params.MaintenanceMarginBps > params.InitialMarginBps {
		return params, 0, fmt.Errorf("margin.maintenanceMarginBps exceeds initialMarginBps")
	}

	var equity schema.Money
	if cfg.Equity != "" {
		ticks, err := parseTicks(cfg.Equity, moneyScale)
		if err != nil {
			return params, 0, fmt.Errorf("margin.equity: %w", err)
		}
		if ticks < 0 {
			return params, 0, fmt.Errorf("margin.equity must be >= 0")
		}
		equity = schema.Money(ticks)
	}
	return params, equity, nil
}

func resolveFlow(cfg FlowConfig, reg *schema.Registry) (FlowSpec, error) {
	if cfg.Instrument == "" && cfg.Account == "" {
		return FlowSpec{}, nil
	}
	accountID, ok := reg.AccountIDByName(cfg.Account)
	if !ok {
		return FlowSpec{}, fmt.Errorf("flow account not found: %s", cfg.Account)
	}
	instrumentID, ok := reg.InstrumentIDByName(cfg.Instrument)
	if !ok {
		return FlowSpec{}, fmt.Errorf("flow instrument not found: %s", cfg.Instrument)
	}
	inst, _ := reg.Instrument(instrumentID)
	if cfg.BasePrice == "" {
		return FlowSpec{}, fmt.Errorf("flow.basePrice is empty")
	}
	basePrice, err := parseTicks(cfg.BasePrice, inst.Scale.PriceScale)
	if err != nil {
		return FlowSpec{}, fmt.Errorf("flow.basePrice: %w", err)
	}
	if basePrice <= 0 {
		return FlowSpec{}, fmt.Errorf("flow.basePrice must be > 0")
	}
	if cfg.Qty <= 0 {
		return FlowSpec{}, fmt.Errorf("flow.qty must be > 0")
	}
	if cfg.JitterTicks < 0 {
		return FlowSpec{}, fmt.Errorf("flow.jitterTicks must be >= 0")
	}
	return FlowSpec{
		AccountID:    uint32(accountID),
		InstrumentID: uint32(instrumentID),
		BasePrice:    schema.Price(basePrice),
		Qty:          schema.Quantity(cfg.Qty),
		Seed:         cfg.Seed,
		DriftTicks:   cfg.DriftTicks,
		JitterTicks:  cfg.JitterTicks,
	}, nil
}

func resolveFeatures(cfg FeatureFlagsConfig) FeatureFlags {
	flags := FeatureFlags{
		EnableOrderFlow:   true,
		EnableFills:       true,
		EnableMarginWatch: true,
	}
	if cfg.EnableOrderFlow != nil {
		flags.EnableOrderFlow = *cfg.EnableOrderFlow
	}
	if cfg.EnableFills != nil {
		flags.EnableFills = *cfg.EnableFills
	}
	if cfg.EnableMarginWatch != nil {
		flags.EnableMarginWatch = *cfg.EnableMarginWatch
	}
	return flags
}

var (
	maxTickValue = decimal.NewFromInt(math.MaxInt64)
	minTickValue = decimal.NewFromInt(math.MinInt64)
)

// parseTicks parses a decimal string and shifts it into integer ticks at
// the given scale. The shifted value must land on a whole tick.
func parseTicks(raw string, scale schema.Scale) (int64, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, err
	}
	shifted := d.Shift(int32(scale))
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("%s has more precision than scale %d allows", raw, scale)
	}
	if shifted.GreaterThan(maxTickValue) || shifted.LessThan(minTickValue) {
		return 0, fmt.Errorf("%s overflows int64 at scale %d", raw, scale)
	}
	return shifted.IntPart(), nil
}
