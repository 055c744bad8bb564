package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/noke/internal/security/secretbox"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "keygen", "version"}, names)

	// El schema se aplica al conectar (storage.migrate), no hay comando aparte.
	_, _, err := root.Find([]string{"migrate"})
	assert.Error(t, err)
}

func TestKeygen(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"keygen"})
	require.NoError(t, root.Execute())

	vals := map[string]string{}
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		k, v, ok := strings.Cut(line, "=")
		require.True(t, ok, line)
		vals[k] = v
	}
	_, err := secretbox.FromString(vals["SECRETBOX_MASTER_KEY"])
	assert.NoError(t, err)
	assert.NotEmpty(t, vals["SESSION_SECRET"])
}
