package registry

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/bimakw/holdings-reconciler/internal/domain/entities"
	"github.com/bimakw/holdings-reconciler/internal/domain/providers"
)

// Ensure Registry implements providers.Catalog
var _ providers.Catalog = (*Registry)(nil)

// DefaultStableSymbols are treated as worth exactly one US dollar on every chain
var DefaultStableSymbols = []string{
	"USDC", "USDT", "DAI", "USDBC", "USDP", "USDS", "PAX", "BUSD", "TUSD", "FRAX",
	"LUSD", "GUSD", "SUSD", "USD+", "YOUUSD", "PYUSD", "USDE", "USDL", "USX", "USDD",
}

// File is the YAML shape of a registry
type File struct {
	StableSymbols   []string                          `yaml:"stableSymbols"`
	StableAddresses map[int64][]string                `yaml:"stableAddresses"`
	Exclusions      ExclusionsFile                    `yaml:"exclusions"`
	PriceOverrides  PriceOverridesFile                `yaml:"priceOverrides"`
	Chains          map[int64]ChainFile               `yaml:"chains"`
	Protocols       map[string]map[int64][]MarketFile `yaml:"protocols"`
}

type ExclusionsFile struct {
	Global []string           `yaml:"global"`
	Chains map[int64][]string `yaml:"chains"`
}

type PriceOverridesFile struct {
	Symbols   map[string]float64 `yaml:"symbols"`
	Addresses map[string]float64 `yaml:"addresses"`
}

type ChainFile struct {
	Stable []TokenFile `yaml:"stable"`
	Assets []TokenFile `yaml:"assets"`
}

type TokenFile struct {
	Symbol       string   `yaml:"symbol"`
	Address      string   `yaml:"address"`
	Decimals     *int     `yaml:"decimals"`
	Price        *float64 `yaml:"price"`
	PriceAddress string   `yaml:"priceAddress"`
}

type MarketFile struct {
	Key      string `yaml:"key"`
	Contract string `yaml:"contract"`
	Asset    string `yaml:"asset"`
	Symbol   string `yaml:"symbol"`
	Decimals *int   `yaml:"decimals"`
	Role     string `yaml:"role"`

	// Maturity is a YYYY-MM-DD date
	Maturity string `yaml:"maturity"`
}

// Registry is the in-memory token, exclusion and market catalog. It is
// immutable after construction and safe for concurrent use.
type Registry struct {
	stableSymbols   []string
	stableAddresses map[int64][]string
	globalExcluded  []string
	chainExcluded   map[int64][]string
	symbolPrices    map[string]float64
	addressPrices   map[string]float64
	portfolios      map[int64]entities.PortfolioTokens
	markets         map[entities.Protocol]map[int64][]entities.Market
}

// NewDefault builds a registry from the built-in tables only
func NewDefault() (*Registry, error) {
	return build(builtin)
}

// Load builds a registry from the built-in tables merged with the YAML file
// at path. An empty path yields the defaults.
func Load(path string, logger *zap.Logger) (*Registry, error) {
	if path == "" {
		return NewDefault()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry %s: %w", path, err)
	}

	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load registry %s: %w", path, err)
	}

	logger.Named("registry").Info("Loaded registry file",
		zap.String("path", path),
		zap.Int("chains", len(r.portfolios)),
	)
	return r, nil
}

// Parse merges a YAML document over the built-in tables.
// Lists are appended; chain token lists and protocol market lists given in
// the document replace the built-in ones for that chain.
func Parse(data []byte) (*Registry, error) {
	var overlay File
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("%w: invalid registry yaml: %v", entities.ErrConfiguration, err)
	}
	return build(merge(builtin, overlay))
}

func merge(base, overlay File) File {
	out := File{
		StableSymbols:   append(append([]string{}, base.StableSymbols...), overlay.StableSymbols...),
		StableAddresses: map[int64][]string{},
		Exclusions: ExclusionsFile{
			Global: append(append([]string{}, base.Exclusions.Global...), overlay.Exclusions.Global...),
			Chains: map[int64][]string{},
		},
		PriceOverrides: PriceOverridesFile{
			Symbols:   map[string]float64{},
			Addresses: map[string]float64{},
		},
		Chains:    map[int64]ChainFile{},
		Protocols: map[string]map[int64][]MarketFile{},
	}

	for _, f := range []File{base, overlay} {
		for chainID, addrs := range f.StableAddresses {
			out.StableAddresses[chainID] = append(out.StableAddresses[chainID], addrs...)
		}
		for chainID, addrs := range f.Exclusions.Chains {
			out.Exclusions.Chains[chainID] = append(out.Exclusions.Chains[chainID], addrs...)
		}
		for k, v := range f.PriceOverrides.Symbols {
			out.PriceOverrides.Symbols[k] = v
		}
		for k, v := range f.PriceOverrides.Addresses {
			out.PriceOverrides.Addresses[k] = v
		}
		for chainID, chain := range f.Chains {
			out.Chains[chainID] = chain
		}
		for protocol, byChain := range f.Protocols {
			protocol = strings.ToLower(protocol)
			if out.Protocols[protocol] == nil {
				out.Protocols[protocol] = map[int64][]MarketFile{}
			}
			for chainID, markets := range byChain {
				out.Protocols[protocol][chainID] = markets
			}
		}
	}

	return out
}

func build(f File) (*Registry, error) {
	r := &Registry{
		stableAddresses: map[int64][]string{},
		chainExcluded:   map[int64][]string{},
		symbolPrices:    map[string]float64{},
		addressPrices:   map[string]float64{},
		portfolios:      map[int64]entities.PortfolioTokens{},
		markets:         map[entities.Protocol]map[int64][]entities.Market{},
	}

	r.stableSymbols = uniqueUpper(append(append([]string{}, DefaultStableSymbols...), f.StableSymbols...))
	r.globalExcluded = uniqueLower(f.Exclusions.Global)
	for chainID, addrs := range f.Exclusions.Chains {
		r.chainExcluded[chainID] = uniqueLower(addrs)
	}
	for k, v := range f.PriceOverrides.Symbols {
		r.symbolPrices[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	for k, v := range f.PriceOverrides.Addresses {
		r.addressPrices[strings.ToLower(strings.TrimSpace(k))] = v
	}

	for chainID, chain := range f.Chains {
		tokens := entities.PortfolioTokens{
			Stable: toCandidates(chain.Stable),
			Assets: toCandidates(chain.Assets),
		}
		r.portfolios[chainID] = tokens

		// Stable portfolio tokens extend the chain's stable address allow-list
		stable := append([]string{}, f.StableAddresses[chainID]...)
		for _, t := range tokens.Stable {
			if !t.Native {
				stable = append(stable, t.Address)
			}
		}
		r.stableAddresses[chainID] = uniqueLower(stable)
	}
	for chainID, addrs := range f.StableAddresses {
		if _, ok := r.stableAddresses[chainID]; !ok {
			r.stableAddresses[chainID] = uniqueLower(addrs)
		}
	}

	for name, byChain := range f.Protocols {
		protocol := entities.Protocol(strings.ToLower(name))
		r.markets[protocol] = map[int64][]entities.Market{}
		for chainID, markets := range byChain {
			list := make([]entities.Market, 0, len(markets))
			for i, m := range markets {
				market, err := toMarket(protocol, chainID, m)
				if err != nil {
					return nil, fmt.Errorf("%w: %s market %d on chain %d: %v",
						entities.ErrConfiguration, protocol, i, chainID, err)
				}
				list = append(list, market)
			}
			r.markets[protocol][chainID] = list
		}
	}

	return r, nil
}

func toCandidates(tokens []TokenFile) []entities.TokenCandidate {
	out := make([]entities.TokenCandidate, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, entities.TokenCandidate{
			Symbol:       t.Symbol,
			Address:      t.Address,
			Decimals:     t.Decimals,
			Price:        t.Price,
			PriceAddress: t.PriceAddress,
		}.Normalized())
	}
	return out
}

func toMarket(protocol entities.Protocol, chainID int64, m MarketFile) (entities.Market, error) {
	if m.Contract == "" || m.Asset == "" {
		return entities.Market{}, fmt.Errorf("contract and asset are required")
	}

	role := entities.MarketRole(strings.ToLower(m.Role))
	if role == "" {
		role = defaultRole(protocol)
	}

	market := entities.Market{
		Protocol:   protocol,
		ChainID:    chainID,
		Key:        m.Key,
		Contract:   strings.ToLower(m.Contract),
		Asset:      strings.ToLower(m.Asset),
		Symbol:     strings.ToUpper(m.Symbol),
		Decimals:   m.Decimals,
		Role:       role,
		ValueAtPar: role == entities.MarketRolePrincipal,
	}

	if m.Maturity != "" {
		t, err := time.Parse("2006-01-02", m.Maturity)
		if err != nil {
			return entities.Market{}, fmt.Errorf("invalid maturity %q: %w", m.Maturity, err)
		}
		unix := t.Unix()
		market.Maturity = &unix
	}

	return market, nil
}

func defaultRole(protocol entities.Protocol) entities.MarketRole {
	switch protocol {
	case entities.ProtocolCompound:
		return entities.MarketRoleBase
	case entities.ProtocolPendle:
		return entities.MarketRolePrincipal
	default:
		return entities.MarketRoleSupply
	}
}

// PortfolioTokens returns the wallet-scan tokens for the chain
func (r *Registry) PortfolioTokens(chainID int64) entities.PortfolioTokens {
	p := r.portfolios[chainID]
	return entities.PortfolioTokens{
		Stable: append([]entities.TokenCandidate{}, p.Stable...),
		Assets: append([]entities.TokenCandidate{}, p.Assets...),
	}
}

// StableAddresses returns the lower-cased stable allow-list for the chain
func (r *Registry) StableAddresses(chainID int64) []string {
	return append([]string{}, r.stableAddresses[chainID]...)
}

// StableSymbols returns the upper-cased stable symbols
func (r *Registry) StableSymbols() []string {
	return append([]string{}, r.stableSymbols...)
}

// Exclusions returns the global and per-chain excluded counterparties
func (r *Registry) Exclusions(chainID int64) []string {
	return uniqueLower(append(append([]string{}, r.globalExcluded...), r.chainExcluded[chainID]...))
}

// PriceOverride looks up a fixed price by symbol first, then by address
func (r *Registry) PriceOverride(symbol, address string) (float64, bool) {
	if symbol != "" {
		if p, ok := r.symbolPrices[strings.ToUpper(strings.TrimSpace(symbol))]; ok {
			return p, true
		}
	}
	if address != "" {
		if p, ok := r.addressPrices[strings.ToLower(strings.TrimSpace(address))]; ok {
			return p, true
		}
	}
	return 0, false
}

// Markets returns the protocol's markets on the chain
func (r *Registry) Markets(protocol entities.Protocol, chainID int64) []entities.Market {
	return append([]entities.Market{}, r.markets[protocol][chainID]...)
}

// Chains lists every chain with a configured portfolio, ascending
func (r *Registry) Chains() []int64 {
	chains := make([]int64, 0, len(r.portfolios))
	for chainID := range r.portfolios {
		chains = append(chains, chainID)
	}
	sort.Slice(chains, func(i, j int) bool { return chains[i] < chains[j] })
	return chains
}

func uniqueLower(values []string) []string {
	return unique(values, strings.ToLower)
}

func uniqueUpper(values []string) []string {
	return unique(values, strings.ToUpper)
}

func unique(values []string, norm func(string) string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = norm(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
