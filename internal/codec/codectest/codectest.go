// Package codectest lays out program account bytes for tests.
package codectest

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"

	"luckysol/internal/models"
)

// Discriminators used for generated accounts. Decoding never checks them.
var (
	LotteryDiscriminator = []byte{0xd0, 0x8c, 0x4b, 0x1e, 0x7a, 0x11, 0x93, 0x5f}
	TicketDiscriminator  = []byte{0x29, 0xe4, 0x02, 0xbd, 0x6c, 0x40, 0x8a, 0x71}
)

// Lottery encodes l in the on-chain layout
func Lottery(l *models.Lottery) []byte {
	buf := append([]byte{}, LotteryDiscriminator...)
	buf = append(buf, l.Authority.Bytes()...)
	buf = binary.LittleEndian.AppendUint64(buf, l.RoundID)
	buf = binary.LittleEndian.AppendUint64(buf, l.TicketPrice)
	buf = binary.LittleEndian.AppendUint32(buf, l.MaxTickets)
	buf = binary.LittleEndian.AppendUint32(buf, l.TicketsSold)
	buf = binary.LittleEndian.AppendUint64(buf, l.TotalPrizePool)
	if l.WinnerTicket != nil {
		buf = append(buf, 1)
		buf = binary.LittleEndian.AppendUint32(buf, *l.WinnerTicket)
	} else {
		buf = append(buf, 0, 0, 0, 0, 0)
	}
	buf = binary.LittleEndian.AppendUint64(buf, uint64(l.CreatedAt))
	buf = binary.LittleEndian.AppendUint64(buf, l.Duration)
	buf = append(buf, boolByte(l.RandomnessFulfilled), l.Bump)
	return buf
}

// Ticket encodes t in the on-chain layout
func Ticket(t *models.Ticket) []byte {
	buf := append([]byte{}, TicketDiscriminator...)
	buf = append(buf, t.Round.Bytes()...)
	buf = append(buf, t.Owner.Bytes()...)
	buf = binary.LittleEndian.AppendUint32(buf, t.TicketNumber)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(t.PurchasedAt))
	buf = append(buf, t.Bump)
	return buf
}

// Key returns a public key with every byte set to b
func Key(b byte) solana.PublicKey {
	var k solana.PublicKey
	for i := range k {
		k[i] = b
	}
	return k
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
