package wallet

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
)

// DerivationPath is the list of BIP32 child indexes from the master key,
// hardened ones are offset by hdkeychain.HardenedKeyStart.
type DerivationPath []uint32

// DefaultBaseDerivationPath m/44'/60'/0'/0, the BIP44 external chain of the
// first Ethereum account. Account keys are its direct children.
var DefaultBaseDerivationPath = DerivationPath{
	hdkeychain.HardenedKeyStart + 44,
	hdkeychain.HardenedKeyStart + 60,
	hdkeychain.HardenedKeyStart + 0,
	0,
}

// ParseDerivationPath parses an absolute path like m/44'/60'/0'/0. Both '
// and h mark hardened elements.
func ParseDerivationPath(str string) (DerivationPath, error) {
	str = strings.TrimSpace(str)
	if str == "" {
		return nil, ErrNullDerivationPath
	}

	elems := strings.Split(str, "/")
	if strings.TrimSpace(elems[0]) != "m" || len(elems) < 2 {
		return nil, ErrMalformedDerivationPath
	}

	path := make(DerivationPath, 0, len(elems)-1)
	for _, elem := range elems[1:] {
		elem = strings.TrimSpace(elem)
		hardened := strings.HasSuffix(elem, "'") || strings.HasSuffix(elem, "h")
		if hardened {
			elem = strings.TrimSpace(elem[:len(elem)-1])
		}
		if elem == "" {
			return nil, ErrMalformedDerivationPath
		}

		index, err := strconv.ParseUint(elem, 10, 32)
		if err != nil || index >= hdkeychain.HardenedKeyStart {
			return nil, fmt.Errorf("%w: invalid element %q", ErrInvalidDerivationPath, elem)
		}
		if hardened {
			index += hdkeychain.HardenedKeyStart
		}
		path = append(path, uint32(index))
	}
	return path, nil
}

func (p DerivationPath) String() string {
	var b strings.Builder
	b.WriteString("m")
	for _, index := range p {
		if index >= hdkeychain.HardenedKeyStart {
			fmt.Fprintf(&b, "/%d'", index-hdkeychain.HardenedKeyStart)
			continue
		}
		fmt.Fprintf(&b, "/%d", index)
	}
	return b.String()
}
