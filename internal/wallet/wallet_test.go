// internal/wallet/wallet_test.go
package wallet

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromBase58(t *testing.T) {
	source := solana.NewWallet()
	w, err := New(source.PrivateKey.String())
	require.NoError(t, err)
	assert.Equal(t, source.PublicKey(), w.PublicKey)
	assert.Equal(t, source.PublicKey().String(), w.String())
}

func TestNewRejectsBadKeys(t *testing.T) {
	_, err := New("not base58 at all!!!")
	assert.Error(t, err)

	_, err = New("abc") // valid base58, wrong length
	assert.Error(t, err)
}

func TestGetATACached(t *testing.T) {
	w, err := New(solana.NewWallet().PrivateKey.String())
	require.NoError(t, err)
	mint := solana.NewWallet().PublicKey()

	ata1, err := w.GetATA(mint)
	require.NoError(t, err)
	ata2, err := w.GetATA(mint)
	require.NoError(t, err)
	assert.Equal(t, ata1, ata2)
	assert.Len(t, w.ATACache, 1)

	expected, _, err := solana.FindAssociatedTokenAddress(w.PublicKey, mint)
	require.NoError(t, err)
	assert.Equal(t, expected, ata1)
}
