package chain

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Definitions models the structure of configs/chains.yaml.
type Definitions struct {
	Chains map[string]Definition `yaml:"chains"`
}

// Definition describes a single chain endpoint definition.
type Definition struct {
	ChainID     uint64 `yaml:"chain_id"`
	RPCURL      string `yaml:"rpc_url"`
	Currency    string `yaml:"currency"`
	Description string `yaml:"description"`
}

// LoadDefinitions parses the YAML file containing chain metadata.
func LoadDefinitions(path string) (Definitions, error) {
	if strings.TrimSpace(path) == "" {
		return Definitions{Chains: map[string]Definition{}}, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return Definitions{}, fmt.Errorf("读取链配置失败: %w", err)
	}

	var defs Definitions
	if err := yaml.Unmarshal(content, &defs); err != nil {
		return Definitions{}, fmt.Errorf("解析链配置失败: %w", err)
	}
	if defs.Chains == nil {
		defs.Chains = map[string]Definition{}
	}
	return defs, nil
}

// Descriptors converts the loaded definitions into descriptors ordered by
// chain id, alongside the index-aligned RPC endpoints.
func (d Definitions) Descriptors() ([]Descriptor, []string, error) {
	names := make([]string, 0, len(d.Chains))
	for name := range d.Chains {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return d.Chains[names[i]].ChainID < d.Chains[names[j]].ChainID
	})

	descs := make([]Descriptor, 0, len(names))
	urls := make([]string, 0, len(names))
	for _, name := range names {
		def := d.Chains[name]
		if def.ChainID == 0 {
			return nil, nil, fmt.Errorf("链 %s 缺少 chain_id", name)
		}
		currency := def.Currency
		if currency == "" {
			currency = "ETH"
		}
		descs = append(descs, Descriptor{ID: def.ChainID, Name: name, Currency: currency})
		urls = append(urls, strings.TrimSpace(def.RPCURL))
	}
	return descs, urls, nil
}
