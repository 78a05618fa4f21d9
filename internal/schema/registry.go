package schema

import "fmt"

// Scale is the number of decimal places used by a scaled integer.
// Example: Scale=8 means the integer value is scaled by 1e8.
type Scale int32

// ScaleSpec defines scaling for common numeric fields.
type ScaleSpec struct {
	PriceScale    Scale
	QuantityScale Scale
	NotionalScale Scale
	FeeScale      Scale
}

// AccountID is the numeric identifier for a trading account.
type AccountID uint32

// InstrumentID is the numeric identifier for an instrument.
type InstrumentID uint32

// Account describes a trading account subject to pre-trade limits.
type Account struct {
	ID   AccountID
	Name string
}

// Instrument describes a tradable instrument.
type Instrument struct {
	ID    InstrumentID
	Name  string
	Scale ScaleSpec
}

// Registry stores account and instrument mappings in a compact form.
type Registry struct {
	accounts         []Account
	instruments      []Instrument
	accountByName    map[string]AccountID
	instrumentByName map[string]InstrumentID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		accountByName:    make(map[string]AccountID),
		instrumentByName: make(map[string]InstrumentID),
	}
}

// AddAccount registers a new account and returns its ID.
func (r *Registry) AddAccount(name string) (AccountID, error) {
	if name == "" {
		return 0, fmt.Errorf("account name is empty")
	}
	if id, ok := r.accountByName[name]; ok {
		return id, fmt.Errorf("account already exists: %s", name)
	}
	id := AccountID(len(r.accounts) + 1)
	r.accounts = append(r.accounts, Account{ID: id, Name: name})
	r.accountByName[name] = id
	return id, nil
}

// AddInstrument registers a new instrument and returns its ID.
func (r *Registry) AddInstrument(name string, scale ScaleSpec) (InstrumentID, error) {
	if name == "" {
		return 0, fmt.Errorf("instrument name is empty")
	}
	if id, ok := r.instrumentByName[name]; ok {
		return id, fmt.Errorf("instrument already exists: %s", name)
	}
	id := InstrumentID(len(r.instruments) + 1)
	r.instruments = append(r.instruments, Instrument{
		ID:    id,
		Name:  name,
		Scale: scale,
	})
	r.instrumentByName[name] = id
	return id, nil
}

// Account returns the account by ID.
func (r *Registry) Account(id AccountID) (Account, bool) {
	if id == 0 || int(id) > len(r.accounts) {
		return Account{}, false
	}
	return r.accounts[id-1], true
}

// Instrument returns the instrument by ID.
func (r *Registry) Instrument(id InstrumentID) (Instrument, bool) {
	if id == 0 || int(id) > len(r.instruments) {
		return Instrument{}, false
	}
	return r.instruments[id-1], true
}

// AccountCount returns the number of accounts in the registry.
func (r *Registry) AccountCount() int {
	return len(r.accounts)
}

// AccountAt returns the account by zero-based index.
func (r *Registry) AccountAt(index int) (Account, bool) {
	if index < 0 || index >= len(r.accounts) {
		return Account{}, false
	}
	return r.accounts[index], true
}

// InstrumentCount returns the number of instruments in the registry.
func (r *Registry) InstrumentCount() int {
	return len(r.instruments)
}

// InstrumentAt returns the instrument by zero-based index.
func (r *Registry) InstrumentAt(index int) (Instrument, bool) {
	if index < 0 || index >= len(r.instruments) {
		return Instrument{}, false
	}
	return r.instruments[index], true
}

// AccountIDByName returns the account ID for a name.
func (r *Registry) AccountIDByName(name string) (AccountID, bool) {
	id, ok := r.accountByName[name]
	return id, ok
}

// InstrumentIDByName returns the instrument ID for a name.
func (r *Registry) InstrumentIDByName(name string) (InstrumentID, bool) {
	id, ok := r.instrumentByName[name]
	return id, ok
}
