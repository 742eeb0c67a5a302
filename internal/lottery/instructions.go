package lottery

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Program instruction names
const (
	InstructionInitializeLottery = "initialize_lottery"
	InstructionBuyTicket         = "buy_ticket"
	InstructionFulfillRandomness = "fulfill_randomness"
	InstructionPayout            = "payout"
)

// Discriminator returns the 8-byte selector the program dispatches name on
func Discriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("global:" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

type initializeLotteryArgs struct {
	LotteryID   uint64
	TicketPrice uint64
	MaxTickets  uint32
	Duration    uint64
}

type buyTicketArgs struct {
	LotteryID uint64
}

type fulfillRandomnessArgs struct {
	Seed [32]byte
}

func instructionData(name string, args any) ([]byte, error) {
	d := Discriminator(name)
	buf := bytes.NewBuffer(d[:])
	if args != nil {
		if err := bin.NewBorshEncoder(buf).Encode(args); err != nil {
			return nil, fmt.Errorf("encode %s args: %w", name, err)
		}
	}
	return buf.Bytes(), nil
}

func newInstruction(programID solana.PublicKey, name string, args any, accounts solana.AccountMetaSlice) (solana.Instruction, error) {
	data, err := instructionData(name, args)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(programID, accounts, data), nil
}

// NewInitializeLottery builds the instruction creating round roundID at lottery
func NewInitializeLottery(programID, lottery, authority solana.PublicKey, roundID, ticketPrice uint64, maxTickets uint32, duration uint64) (solana.Instruction, error) {
	return newInstruction(programID, InstructionInitializeLottery,
		initializeLotteryArgs{
			LotteryID:   roundID,
			TicketPrice: ticketPrice,
			MaxTickets:  maxTickets,
			Duration:    duration,
		},
		solana.AccountMetaSlice{
			solana.NewAccountMeta(authority, true, true),
			solana.NewAccountMeta(lottery, true, false),
			solana.NewAccountMeta(solana.SystemProgramID, false, false),
		})
}

// NewBuyTicket builds the instruction buying the ticket at ticket for player
func NewBuyTicket(programID, player, lottery, ticket solana.PublicKey, roundID uint64) (solana.Instruction, error) {
	return newInstruction(programID, InstructionBuyTicket,
		buyTicketArgs{LotteryID: roundID},
		solana.AccountMetaSlice{
			solana.NewAccountMeta(player, true, true),
			solana.NewAccountMeta(lottery, true, false),
			solana.NewAccountMeta(ticket, true, false),
			solana.NewAccountMeta(solana.SystemProgramID, false, false),
		})
}

// NewFulfillRandomness builds the instruction revealing the winner from seed
func NewFulfillRandomness(programID, authority, lottery solana.PublicKey, seed [32]byte) (solana.Instruction, error) {
	return newInstruction(programID, InstructionFulfillRandomness,
		fulfillRandomnessArgs{Seed: seed},
		solana.AccountMetaSlice{
			solana.NewAccountMeta(authority, true, true),
			solana.NewAccountMeta(lottery, true, false),
		})
}

// PayoutAccounts lists the accounts a payout distributes between
type PayoutAccounts struct {
	Authority    solana.PublicKey
	Lottery      solana.PublicKey
	WinnerTicket solana.PublicKey
	Winner       solana.PublicKey
	Creator      solana.PublicKey
	PlatformFee  solana.PublicKey
}

// NewPayout builds the instruction distributing the prize pool
func NewPayout(programID solana.PublicKey, acc PayoutAccounts) (solana.Instruction, error) {
	return newInstruction(programID, InstructionPayout, nil,
		solana.AccountMetaSlice{
			solana.NewAccountMeta(acc.Authority, true, true),
			solana.NewAccountMeta(acc.Lottery, true, false),
			solana.NewAccountMeta(acc.WinnerTicket, false, false),
			solana.NewAccountMeta(acc.Winner, true, false),
			solana.NewAccountMeta(acc.Creator, true, false),
			solana.NewAccountMeta(acc.PlatformFee, true, false),
			solana.NewAccountMeta(solana.SystemProgramID, false, false),
		})
}
