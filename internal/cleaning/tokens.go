package cleaning

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownToken is returned when a token address has no registered symbol.
var ErrUnknownToken = errors.New("unknown token address")

// TokenRegistry maps token contract addresses to symbols.
// It is immutable after construction and safe for concurrent use.
type TokenRegistry struct {
	symbols map[string]string // lowercased address -> symbol
}

// NewTokenRegistry creates a registry from an address -> symbol map.
// Addresses are matched case-insensitively.
func NewTokenRegistry(symbols map[string]string) *TokenRegistry {
	m := make(map[string]string, len(symbols))
	for addr, sym := range symbols {
		m[normalizeAddress(addr)] = sym
	}
	return &TokenRegistry{symbols: m}
}

// ArbitrumTokens returns the GMX Arbitrum token table.
func ArbitrumTokens() map[string]string {
	return map[string]string{
		"0x82af49447d8a07e3bd95bd0d56f35241523fbab1": "WETH",
		"0xff970a61a04b1ca14834a43f5de4533ebddb5cc8": "USDC",
		"0xda10009cbd5d07dd0cecc66161fc93d7c9000da1": "DAI",
		"0x2f2a2543b76a4166549f7aab2e75bef0aefc5b0f": "WBTC",
		"0xfd086bc7cd5c481dcc9c85ebe478a1c0b69fcbb9": "USDT",
		"0xf97f4df75117a78c1a5a0dbb814af92458539fb4": "LINK",
		"0xfa7f8980b0f1e64a2062791cc3b0871572f1f7f0": "UNI",
		"0xfea7a6a0b346362bf88a9e4a88416b77a57d6c2a": "MIM",
		"0x17fc002b466eec40dae837fc4be5c67993ddbd6f": "FRAX",
	}
}

// Symbol resolves an address. Returns ErrUnknownToken if not registered.
func (r *TokenRegistry) Symbol(addr string) (string, error) {
	sym, ok := r.symbols[normalizeAddress(addr)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownToken, addr)
	}
	return sym, nil
}

// Len returns the number of registered tokens.
func (r *TokenRegistry) Len() int {
	return len(r.symbols)
}

type tokenFile struct {
	Tokens map[string]string `yaml:"tokens"`
}

// LoadTokenRegistry reads a YAML file of the form
//
//	tokens:
//	  "0x82af...": WETH
func LoadTokenRegistry(path string) (*TokenRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}

	var f tokenFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse token file: %w", err)
	}
	if len(f.Tokens) == 0 {
		return nil, fmt.Errorf("token file %s: no tokens", path)
	}

	return NewTokenRegistry(f.Tokens), nil
}

func normalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
