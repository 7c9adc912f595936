package account

import (
	"crypto/ecdsa"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"
)

// DefaultPath is the first account of the standard Ethereum BIP-44 branch.
const DefaultPath = "m/44'/60'/0'/0/0"

const entropyBits = 128 // 12 words

// KeyPair is a freshly generated account. It is never persisted; printing it
// is the caller's business.
type KeyPair struct {
	PrivateKey string         `json:"privateKey"` // 0x-prefixed hex
	Address    common.Address `json:"address"`
	Mnemonic   string         `json:"mnemonic,omitempty"`
}

// Generate creates a new account. With withMnemonic the key is derived from a
// 12-word BIP-39 phrase at DefaultPath, otherwise it is a random secp256k1 key.
func Generate(withMnemonic bool) (*KeyPair, error) {
	if !withMnemonic {
		key, err := crypto.GenerateKey()
		if err != nil {
			return nil, errors.Wrap(err, "failed to generate key")
		}
		return newKeyPair(key, ""), nil
	}

	entropy, err := bip39.NewEntropy(entropyBits)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create entropy")
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create mnemonic")
	}
	return FromMnemonic(mnemonic, DefaultPath)
}

// FromMnemonic derives the account at path from a BIP-39 phrase with an
// empty passphrase.
func FromMnemonic(mnemonic, path string) (*KeyPair, error) {
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return nil, errors.Wrap(err, "invalid mnemonic")
	}
	defer wipe(seed)

	indices, err := accounts.ParseDerivationPath(path)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid derivation path %q", path)
	}

	key, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create master key")
	}
	for _, index := range indices {
		key, err = key.NewChildKey(index)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to derive child key at index %d", index)
		}
	}

	raw := common.LeftPadBytes(key.Key, 32)
	defer wipe(raw)
	priv, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, errors.Wrap(err, "failed to convert to ECDSA private key")
	}
	return newKeyPair(priv, mnemonic), nil
}

func newKeyPair(key *ecdsa.PrivateKey, mnemonic string) *KeyPair {
	return &KeyPair{
		PrivateKey: hexutil.Encode(crypto.FromECDSA(key)),
		Address:    crypto.PubkeyToAddress(key.PublicKey),
		Mnemonic:   mnemonic,
	}
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
