package tenant

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

// BankConfig describes one food bank served by this backend.
type BankConfig struct {
	BankID         string   `json:"bank_id"`
	Name           string   `json:"name"`
	Municipalities []string `json:"municipalities"`
}

type BanksFile struct {
	Banks []BankConfig `json:"banks"`
}

type Registry struct {
	mu    sync.RWMutex
	banks map[string]*BankConfig
}

func NewRegistry() *Registry {
	return &Registry{
		banks: make(map[string]*BankConfig),
	}
}

func LoadFromFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read banks config: %w", err)
	}

	var file BanksFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse banks config: %w", err)
	}

	registry := NewRegistry()
	for i := range file.Banks {
		if file.Banks[i].BankID == "" {
			return nil, fmt.Errorf("bank #%d has no bank_id", i)
		}
		registry.Register(&file.Banks[i])
	}
	return registry, nil
}

func (r *Registry) Register(cfg *BankConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.banks[cfg.BankID] = cfg
}

func (r *Registry) Get(bankID string) *BankConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.banks[bankID]
}

func (r *Registry) Exists(bankID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.banks[bankID]
	return ok
}

func (r *Registry) All() []*BankConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*BankConfig, 0, len(r.banks))
	for _, cfg := range r.banks {
		result = append(result, cfg)
	}
	return result
}

// Municipalities returns the enumerated municipalities of a bank.
func (r *Registry) Municipalities(bankID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.banks[bankID]
	if !ok {
		return nil
	}
	out := make([]string, len(cfg.Municipalities))
	copy(out, cfg.Municipalities)
	return out
}

// CanonicalMunicipality returns the configured spelling of name for the bank,
// compared case-insensitively.
func (r *Registry) CanonicalMunicipality(bankID, name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	for _, m := range r.Municipalities(bankID) {
		if strings.EqualFold(m, name) {
			return m, true
		}
	}
	return "", false
}
