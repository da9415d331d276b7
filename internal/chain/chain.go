package chain

import "strconv"

// Descriptor is the immutable identity of a supported chain. Instances are
// supplied at client construction time and never mutated afterwards.
type Descriptor struct {
	ID       uint64 `json:"id" yaml:"chain_id"`
	Name     string `json:"name" yaml:"name"`
	Currency string `json:"currency" yaml:"currency"`
}

// Well known EVM networks. Tool families reference these when declaring the
// chains they support.
var (
	Mainnet  = Descriptor{ID: 1, Name: "ethereum", Currency: "ETH"}
	Optimism = Descriptor{ID: 10, Name: "optimism", Currency: "ETH"}
	Polygon  = Descriptor{ID: 137, Name: "polygon", Currency: "POL"}
	Base     = Descriptor{ID: 8453, Name: "base", Currency: "ETH"}
	Arbitrum = Descriptor{ID: 42161, Name: "arbitrum", Currency: "ETH"}
	Sepolia  = Descriptor{ID: 11155111, Name: "sepolia", Currency: "ETH"}
)

// All lists the networks this toolkit ships descriptors for, in stable
// chain-id order.
func All() []Descriptor {
	return []Descriptor{Mainnet, Optimism, Polygon, Base, Arbitrum, Sepolia}
}

// ByID returns the well known descriptor for a chain id.
func ByID(id uint64) (Descriptor, bool) {
	for _, desc := range All() {
		if desc.ID == id {
			return desc, true
		}
	}
	return Descriptor{}, false
}

// Contains reports whether the descriptor set includes the given chain id.
func Contains(set []Descriptor, id uint64) bool {
	for _, desc := range set {
		if desc.ID == id {
			return true
		}
	}
	return false
}

// Names renders the descriptor set as a list of "name(id)" labels, used when
// error messages need to enumerate the chains that were considered.
func Names(set []Descriptor) []string {
	labels := make([]string, 0, len(set))
	for _, desc := range set {
		labels = append(labels, desc.Label())
	}
	return labels
}

// Label renders the descriptor as "name(id)".
func (d Descriptor) Label() string {
	if d.Name == "" {
		return strconv.FormatUint(d.ID, 10)
	}
	return d.Name + "(" + strconv.FormatUint(d.ID, 10) + ")"
}
