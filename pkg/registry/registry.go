// pkg/registry/registry.go
package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
)

//go:embed contracts.json
var defaultContracts []byte

func LoadRegistry(path string) (*ContractRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Default returns the registry compiled into the binary.
func Default() *ContractRegistry {
	reg, err := Parse(defaultContracts)
	if err != nil {
		panic(fmt.Sprintf("embedded contract registry is invalid: %v", err))
	}
	return reg
}

func Parse(data []byte) (*ContractRegistry, error) {
	var reg ContractRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	seen := make(map[string]bool, len(reg.Contracts))
	for _, c := range reg.Contracts {
		if c.ID == "" {
			return nil, fmt.Errorf("contract without id")
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("duplicate contract id %q", c.ID)
		}
		seen[c.ID] = true
	}
	return &reg, nil
}

// Lookup finds a contract by id.
func (r *ContractRegistry) Lookup(id string) (*Contract, bool) {
	for i := range r.Contracts {
		if r.Contracts[i].ID == id {
			return &r.Contracts[i], true
		}
	}
	return nil, false
}
