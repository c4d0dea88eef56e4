package cleaning

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	wethAddr = "0x82af49447d8a07e3bd95bd0d56f35241523fbab1"
	usdcAddr = "0xff970a61a04b1ca14834a43f5de4533ebddb5cc8"
)

func TestTokenRegistry_Symbol(t *testing.T) {
	reg := NewTokenRegistry(ArbitrumTokens())

	sym, err := reg.Symbol(wethAddr)
	require.NoError(t, err)
	assert.Equal(t, "WETH", sym)

	sym, err = reg.Symbol("0x82AF49447D8A07E3BD95BD0D56F35241523FBAB1")
	require.NoError(t, err)
	assert.Equal(t, "WETH", sym, "lookup is case-insensitive")

	_, err = reg.Symbol("0xdeadbeef")
	assert.True(t, errors.Is(err, ErrUnknownToken))

	assert.Equal(t, 9, reg.Len())
}

func TestTokenRegistry_Immutable(t *testing.T) {
	src := map[string]string{wethAddr: "WETH"}
	reg := NewTokenRegistry(src)
	src[wethAddr] = "CHANGED"

	sym, err := reg.Symbol(wethAddr)
	require.NoError(t, err)
	assert.Equal(t, "WETH", sym)
}

func TestLoadTokenRegistry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tokens.yaml")
	body := "tokens:\n  \"0x82AF49447D8A07E3BD95BD0D56F35241523FBAB1\": WETH\n  \"" + usdcAddr + "\": USDC\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	reg, err := LoadTokenRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())

	sym, err := reg.Symbol(wethAddr)
	require.NoError(t, err)
	assert.Equal(t, "WETH", sym)
}

func TestLoadTokenRegistry_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadTokenRegistry(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("tokens: {}\n"), 0o644))
	_, err = LoadTokenRegistry(empty)
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("tokens: [unterminated\n"), 0o644))
	_, err = LoadTokenRegistry(bad)
	assert.Error(t, err)
}
