package certificates

import (
	"fmt"

	"github.com/speps/go-hashids/v2"
)

const numberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NumberGenerator turns payment ids into short, non-sequential looking
// certificate numbers such as SATHI-7QK2MZ4P.
type NumberGenerator struct {
	h *hashids.HashID
}

func NewNumberGenerator(salt string) (*NumberGenerator, error) {
	hd := hashids.NewData()
	hd.Salt = salt
	hd.MinLength = 8
	hd.Alphabet = numberAlphabet

	h, err := hashids.NewWithData(hd)
	if err != nil {
		return nil, fmt.Errorf("hashids: %w", err)
	}
	return &NumberGenerator{h: h}, nil
}

func (g *NumberGenerator) Generate(paymentID int64) (string, error) {
	code, err := g.h.EncodeInt64([]int64{paymentID})
	if err != nil {
		return "", fmt.Errorf("encode certificate number: %w", err)
	}
	return "SATHI-" + code, nil
}

// Decode reverses Generate, for support lookups.
func (g *NumberGenerator) Decode(number string) (int64, error) {
	if len(number) > 6 && number[:6] == "SATHI-" {
		number = number[6:]
	}
	ids, err := g.h.DecodeInt64WithError(number)
	if err != nil {
		return 0, fmt.Errorf("decode certificate number: %w", err)
	}
	if len(ids) != 1 {
		return 0, fmt.Errorf("decode certificate number: got %d ids", len(ids))
	}
	return ids[0], nil
}
