// Package validate decides whether a parse result holds anything worth
// reviewing.
package validate

import (
	"fmt"
	"sort"
	"sync"

	"github.com/JonMunkholm/datadonation/internal/extract"
)

// Reasons returned with an invalid verdict.
const (
	ReasonNoData           = "No data"
	ReasonNoSheetsWithData = "No sheets with data"
)

// Verdict is the outcome of validation.
type Verdict struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// Func validates a parse result.
type Func func(*extract.Result) Verdict

// Validate passes when at least one sheet has a record. A nil result or nil
// data yields ReasonNoData.
func Validate(res *extract.Result) Verdict {
	if res == nil || res.Data == nil {
		return Verdict{Reason: ReasonNoData}
	}
	for _, s := range res.Data.Sheets() {
		if len(s.Records) > 0 {
			return Verdict{Valid: true}
		}
	}
	return Verdict{Reason: ReasonNoSheetsWithData}
}

// Default is the name the standard validator is registered under.
const Default = "default"

var (
	registry   = map[string]Func{Default: Validate}
	registryMu sync.RWMutex
)

// Register adds a named validator. It panics on duplicate names.
func Register(name string, fn Func) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("validator already registered: %s", name))
	}
	registry[name] = fn
}

// Get returns a validator by name. An empty name returns the default.
func Get(name string) (Func, error) {
	if name == "" {
		name = Default
	}
	registryMu.RLock()
	defer registryMu.RUnlock()

	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown validator: %s", name)
	}
	return fn, nil
}

// Names returns the registered validator names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
