package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traveltrackie/superteam-ireland/internal/reward"
)

func TestRunJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, run(&buf, true, "sender", "receiver"))

	var pairs []keypair
	require.NoError(t, json.Unmarshal(buf.Bytes(), &pairs))
	require.Len(t, pairs, 2)
	assert.NotEqual(t, pairs[0].PublicKey, pairs[1].PublicKey)

	for _, p := range pairs {
		arr, err := json.Marshal(p.PrivateKey)
		require.NoError(t, err)

		fromArray, err := reward.ParsePrivateKey(string(arr))
		require.NoError(t, err, p.Name)
		assert.Equal(t, p.PublicKey, fromArray.PublicKey().String())

		fromB58, err := reward.ParsePrivateKey(p.Base58)
		require.NoError(t, err, p.Name)
		assert.Equal(t, p.PublicKey, fromB58.PublicKey().String())
	}
}

func TestRunText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, run(&buf, false, "sender"))

	out := buf.String()
	assert.Contains(t, out, "sender private key (64-byte array): [")
	assert.Contains(t, out, "sender public key: ")
	assert.Equal(t, 3, strings.Count(out, "sender "))
}
