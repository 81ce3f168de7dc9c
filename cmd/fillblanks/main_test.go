package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/fillblanks/internal/server"
)

func TestServerFlags(t *testing.T) {
	var cli CLI
	parser, err := kong.New(&cli, options()...)
	require.NoError(t, err)

	ctx, err := parser.Parse([]string{"server", "--addr", ":9000"})
	require.NoError(t, err)
	assert.Equal(t, "server", ctx.Command())
	assert.Equal(t, server.DefaultConfigFile, cli.Server.Config)
	assert.Equal(t, ":9000", cli.Server.Addr)
	assert.Nil(t, cli.Server.Seed)

	deckFile := filepath.Join(t.TempDir(), "a.white")
	require.NoError(t, os.WriteFile(deckFile, []byte("kot\n"), 0o644))
	ctx, err = parser.Parse([]string{"check-deck", deckFile})
	require.NoError(t, err)
	assert.Equal(t, "check-deck <files>", ctx.Command())
	assert.Equal(t, []string{deckFile}, cli.CheckDeck.Files)

	_, err = parser.Parse([]string{"check-deck", filepath.Join(t.TempDir(), "missing.white")})
	require.Error(t, err)
}
