package solana

import (
	"encoding/binary"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

const (
	signatureLength   = 64
	systemTransferTag = 2
)

// appendCompactU16 appends n in the short-vec encoding used by the wire format.
func appendCompactU16(b []byte, n int) []byte {
	v := uint16(n)
	for {
		elem := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(b, elem)
		}
		b = append(b, elem|0x80)
	}
}

// readCompactU16 decodes a short-vec length, returning the value and bytes consumed.
func readCompactU16(b []byte) (int, int, error) {
	var v int
	for i := 0; i < 3; i++ {
		if i >= len(b) {
			return 0, 0, errors.New("truncated compact-u16")
		}
		elem := int(b[i])
		v |= (elem & 0x7f) << (7 * i)
		if elem&0x80 == 0 {
			return v, i + 1, nil
		}
	}
	return 0, 0, errors.New("compact-u16 too long")
}

// BuildTransferMessage compiles a legacy message moving lamports from payer to dest.
func BuildTransferMessage(payer, dest PublicKey, lamports uint64, recentBlockhash string) ([]byte, error) {
	blockhash, err := base58.Decode(recentBlockhash)
	if err != nil || len(blockhash) != 32 {
		return nil, errors.Errorf("invalid blockhash %q", recentBlockhash)
	}
	if payer == dest {
		return nil, errors.New("transfer destination equals payer")
	}

	msg := make([]byte, 0, 160)
	// header: 1 signer, 0 readonly signed, 1 readonly unsigned (system program)
	msg = append(msg, 1, 0, 1)

	msg = appendCompactU16(msg, 3)
	msg = append(msg, payer[:]...)
	msg = append(msg, dest[:]...)
	msg = append(msg, SystemProgramID[:]...)

	msg = append(msg, blockhash...)

	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:4], systemTransferTag)
	binary.LittleEndian.PutUint64(data[4:12], lamports)

	msg = appendCompactU16(msg, 1)
	msg = append(msg, 2) // program id index
	msg = appendCompactU16(msg, 2)
	msg = append(msg, 0, 1)
	msg = appendCompactU16(msg, len(data))
	msg = append(msg, data...)

	return msg, nil
}

// SignMessage wraps a compiled message into a single-signer transaction.
func SignMessage(kp *Keypair, message []byte) ([]byte, string) {
	sig := kp.Sign(message)
	tx := appendCompactU16(make([]byte, 0, 1+signatureLength+len(message)), 1)
	tx = append(tx, sig...)
	tx = append(tx, message...)
	return tx, base58.Encode(sig)
}

// SignSerialized signs a transaction built elsewhere (legacy or versioned) in which
// the wallet is the fee payer, filling signature slot 0.
func SignSerialized(kp *Keypair, tx []byte) ([]byte, string, error) {
	count, n, err := readCompactU16(tx)
	if err != nil {
		return nil, "", errors.Wrap(err, "read signature count")
	}
	if count < 1 {
		return nil, "", errors.New("transaction has no signature slots")
	}

	msgStart := n + count*signatureLength
	if msgStart >= len(tx) {
		return nil, "", errors.New("truncated transaction")
	}

	message := tx[msgStart:]
	if err := checkFeePayer(message, kp.PublicKey()); err != nil {
		return nil, "", err
	}

	signed := make([]byte, len(tx))
	copy(signed, tx)
	sig := kp.Sign(message)
	copy(signed[n:n+signatureLength], sig)

	return signed, base58.Encode(sig), nil
}

// checkFeePayer verifies the first account key of message is payer.
func checkFeePayer(message []byte, payer PublicKey) error {
	offset := 0
	if len(message) > 0 && message[0]&0x80 != 0 {
		offset = 1 // versioned message prefix
	}
	offset += 3 // header

	if offset >= len(message) {
		return errors.New("truncated message header")
	}
	keys, n, err := readCompactU16(message[offset:])
	if err != nil {
		return errors.Wrap(err, "read account keys")
	}
	offset += n
	if keys == 0 || offset+PublicKeyLength > len(message) {
		return errors.New("message has no account keys")
	}

	var first PublicKey
	copy(first[:], message[offset:offset+PublicKeyLength])
	if first != payer {
		return errors.Errorf("fee payer %s does not match wallet %s", first, payer)
	}
	return nil
}
