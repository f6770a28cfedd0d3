package solana

import (
	"crypto/sha256"

	"github.com/pkg/errors"
)

const pdaMarker = "ProgramDerivedAddress"

// FindProgramAddress derives the first off-curve address for seeds under programID,
// trying bump seeds from 255 downwards.
func FindProgramAddress(seeds [][]byte, programID PublicKey) (PublicKey, uint8, error) {
	for bump := 255; bump > 0; bump-- {
		data := make([]byte, 0, 32*len(seeds)+1+PublicKeyLength+len(pdaMarker))
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, byte(bump))
		data = append(data, programID[:]...)
		data = append(data, []byte(pdaMarker)...)

		hash := sha256.Sum256(data)
		if !isOnCurve(hash[:]) {
			return PublicKey(hash), uint8(bump), nil
		}
	}

	return PublicKey{}, 0, errors.New("no viable bump seed")
}

// AssociatedTokenAddress derives the canonical token account of owner for mint.
func AssociatedTokenAddress(owner, mint, tokenProgram PublicKey) (PublicKey, error) {
	addr, _, err := FindProgramAddress([][]byte{owner[:], tokenProgram[:], mint[:]}, AssociatedTokenProgramID)
	if err != nil {
		return PublicKey{}, errors.Wrap(err, "derive associated token address")
	}
	return addr, nil
}
