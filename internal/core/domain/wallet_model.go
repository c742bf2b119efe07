package domain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// WalletType tells how the key material of a wallet has been obtained.
type WalletType int

const (
	// WalletTypeStandard is a wallet derived from a BIP39 mnemonic.
	WalletTypeStandard WalletType = iota
	// WalletTypeImported is a wallet made of a single imported private key.
	WalletTypeImported
	// WalletTypeReadOnly is a watch-only wallet without any secret material.
	WalletTypeReadOnly
)

var walletTypeNames = map[WalletType]string{
	WalletTypeStandard: "standard",
	WalletTypeImported: "imported",
	WalletTypeReadOnly: "readOnly",
}

func (t WalletType) String() string {
	if name, ok := walletTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// IsValid returns whether the type is one of the known ones.
func (t WalletType) IsValid() bool {
	_, ok := walletTypeNames[t]
	return ok
}

// ParseWalletType converts the string representation of a type into a
// WalletType.
func ParseWalletType(str string) (WalletType, error) {
	for t, name := range walletTypeNames {
		if strings.EqualFold(name, str) {
			return t, nil
		}
	}
	return -1, ErrInvalidWalletType
}

// Account is a single address/keypair owned by a Wallet.
type Account struct {
	Address string
	Index   uint32
	Label   string
	Color   int
	Visible bool
	Image   *string
}

// Wallet groups the accounts derived from (or imported into) the same
// source of key material.
type Wallet struct {
	ID        string
	Type      WalletType
	Name      string
	Addresses []Account
	Damaged   bool
	Imported  bool
}

// WalletCollection is the whole metadata model: the wallets mapped by id plus
// the id of the selected one.
type WalletCollection struct {
	Wallets  map[string]*Wallet
	Selected string
}

// NewWalletCollection returns an empty collection.
func NewWalletCollection() *WalletCollection {
	return &WalletCollection{
		Wallets: map[string]*Wallet{},
	}
}

// NewAccount returns a visible Account for the given address, normalizing
// the address to its checksummed form.
func NewAccount(addr string, index uint32, color int, label string) (*Account, error) {
	checksummed, err := ChecksumAddress(addr)
	if err != nil {
		return nil, err
	}
	return &Account{
		Address: checksummed,
		Index:   index,
		Label:   label,
		Color:   color,
		Visible: true,
	}, nil
}

// ChecksumAddress validates the given hex address and returns its EIP-55
// checksummed representation.
func ChecksumAddress(addr string) (string, error) {
	if !common.IsHexAddress(addr) {
		return "", ErrInvalidAddress
	}
	return common.HexToAddress(addr).Hex(), nil
}

// SameAddress compares two addresses regardless of their checksum casing.
func SameAddress(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(
		strings.TrimPrefix(strings.ToLower(a), "0x"),
		strings.TrimPrefix(strings.ToLower(b), "0x"),
	)
}

// IdentifyWalletType tells which kind of wallet the given import input
// creates: a whitespace separated mnemonic makes a standard wallet, a 32-byte
// hex private key an imported one and a hex address a read-only one.
func IdentifyWalletType(input string) (WalletType, error) {
	input = strings.TrimSpace(input)
	switch {
	case len(strings.Fields(input)) > 1:
		return WalletTypeStandard, nil
	case common.IsHexAddress(input):
		return WalletTypeReadOnly, nil
	case isHexPrivateKey(input):
		return WalletTypeImported, nil
	default:
		return -1, ErrInvalidWalletType
	}
}

func isHexPrivateKey(str string) bool {
	str = strings.TrimPrefix(strings.TrimPrefix(str, "0x"), "0X")
	if len(str) != 64 {
		return false
	}
	for _, c := range str {
		isHex := (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
		if !isHex {
			return false
		}
	}
	return true
}
