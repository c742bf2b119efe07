package ens

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const reverseSuffix = "addr.reverse"

// NameHash returns the EIP-137 node of the given name. Names are lowercased,
// full UTS-46 normalization is not performed.
func NameHash(name string) common.Hash {
	var node common.Hash
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return node
	}

	labels := strings.Split(name, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		labelHash := crypto.Keccak256([]byte(labels[i]))
		node = crypto.Keccak256Hash(node.Bytes(), labelHash)
	}
	return node
}

// ReverseNode returns the node of the reverse record of the given address.
func ReverseNode(addr common.Address) common.Hash {
	label := strings.TrimPrefix(strings.ToLower(addr.Hex()), "0x")
	return NameHash(label + "." + reverseSuffix)
}
