package lottery

import (
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luckysol/internal/address"
	"luckysol/internal/codec/codectest"
)

func TestDiscriminator(t *testing.T) {
	sum := sha256.Sum256([]byte("global:buy_ticket"))
	d := Discriminator(InstructionBuyTicket)

	assert.Equal(t, sum[:8], d[:])
	assert.NotEqual(t, d, Discriminator(InstructionPayout))
}

func TestNewInitializeLottery_Layout(t *testing.T) {
	lottery := codectest.Key(1)
	authority := codectest.Key(2)

	ix, err := NewInitializeLottery(address.DefaultProgramID, lottery, authority, 1<<40, 25_000_000, 100, 86_400)
	require.NoError(t, err)

	data, err := ix.Data()
	require.NoError(t, err)
	require.Len(t, data, 8+8+8+4+8)

	d := Discriminator(InstructionInitializeLottery)
	assert.Equal(t, d[:], data[:8])
	assert.Equal(t, uint64(1<<40), binary.LittleEndian.Uint64(data[8:16]))
	assert.Equal(t, uint64(25_000_000), binary.LittleEndian.Uint64(data[16:24]))
	assert.Equal(t, uint32(100), binary.LittleEndian.Uint32(data[24:28]))
	assert.Equal(t, uint64(86_400), binary.LittleEndian.Uint64(data[28:36]))
	assert.Equal(t, address.DefaultProgramID, ix.ProgramID())

	accounts := ix.Accounts()
	require.Len(t, accounts, 3)
	assert.Equal(t, authority, accounts[0].PublicKey, "authority pays for the new account")
	assert.True(t, accounts[0].IsSigner)
	assert.True(t, accounts[0].IsWritable)
	assert.Equal(t, lottery, accounts[1].PublicKey)
	assert.False(t, accounts[1].IsSigner)
	assert.True(t, accounts[1].IsWritable)
	assert.Equal(t, solana.SystemProgramID, accounts[2].PublicKey)
	assert.False(t, accounts[2].IsWritable)
}

func TestNewBuyTicket_Layout(t *testing.T) {
	ix, err := NewBuyTicket(address.DefaultProgramID, codectest.Key(1), codectest.Key(2), codectest.Key(3), 42)
	require.NoError(t, err)

	data, err := ix.Data()
	require.NoError(t, err)
	require.Len(t, data, 16)
	assert.Equal(t, uint64(42), binary.LittleEndian.Uint64(data[8:]))

	accounts := ix.Accounts()
	require.Len(t, accounts, 4)
	assert.True(t, accounts[0].IsSigner)
	assert.True(t, accounts[2].IsWritable)
	assert.False(t, accounts[2].IsSigner)
	assert.Equal(t, solana.SystemProgramID, accounts[3].PublicKey)
}

func TestNewPayout_NoArgs(t *testing.T) {
	ix, err := NewPayout(address.DefaultProgramID, PayoutAccounts{})
	require.NoError(t, err)

	data, err := ix.Data()
	require.NoError(t, err)
	d := Discriminator(InstructionPayout)
	assert.Equal(t, d[:], data)
	assert.False(t, ix.Accounts()[2].IsWritable, "winner ticket is read only")
}
