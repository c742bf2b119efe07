package domain_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vaultline/walletd/internal/core/domain"
)

const (
	addrA = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	addrB = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	addrC = "0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC"
)

func TestNextIndex(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		indexes  []uint32
		expected uint32
	}{
		{"empty wallet", nil, 0},
		{"single account", []uint32{0}, 1},
		{"contiguous", []uint32{0, 1, 2}, 3},
		{"with gap", []uint32{0, 1, 3}, 4},
		{"unordered", []uint32{2, 0}, 3},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			w := &domain.Wallet{}
			for _, i := range tt.indexes {
				w.Addresses = append(w.Addresses, domain.Account{Index: i})
			}
			require.Equal(t, tt.expected, w.NextIndex())
		})
	}
}

func TestChecksumAddress(t *testing.T) {
	t.Parallel()

	addr, err := domain.ChecksumAddress("0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266")
	require.NoError(t, err)
	require.Equal(t, addrA, addr)

	_, err = domain.ChecksumAddress("not-an-address")
	require.ErrorIs(t, err, domain.ErrInvalidAddress)

	require.True(t, domain.SameAddress(addrA, "0xF39FD6E51AAD88F6F4CE6AB8827279CFFFB92266"))
	require.False(t, domain.SameAddress(addrA, addrB))
	require.False(t, domain.SameAddress("", ""))
}

func TestFirstVisible(t *testing.T) {
	t.Parallel()

	w := &domain.Wallet{
		Addresses: []domain.Account{
			{Address: addrA, Index: 0, Visible: false},
			{Address: addrB, Index: 1, Visible: true},
			{Address: addrC, Index: 2, Visible: true},
		},
	}

	account, ok := w.FirstVisible()
	require.True(t, ok)
	require.Equal(t, addrB, account.Address)
	require.Equal(t, 2, w.CountVisible())

	_, ok = w.VisibleAccount(addrA)
	require.False(t, ok)
	_, ok = w.VisibleAccount(addrC)
	require.True(t, ok)

	hidden := &domain.Wallet{Addresses: []domain.Account{{Address: addrA}}}
	_, ok = hidden.FirstVisible()
	require.False(t, ok)
}

func TestAddAccount(t *testing.T) {
	t.Parallel()

	w := &domain.Wallet{
		Addresses: []domain.Account{{Address: addrA, Index: 0, Visible: true}},
	}

	err := w.AddAccount(domain.Account{Address: addrB, Index: 0})
	require.ErrorIs(t, err, domain.ErrDuplicateAccount)

	err = w.AddAccount(domain.Account{Address: addrA, Index: 1})
	require.ErrorIs(t, err, domain.ErrDuplicateAccount)

	err = w.AddAccount(domain.Account{Address: addrB, Index: 1})
	require.NoError(t, err)
	require.Len(t, w.Addresses, 2)
}

func TestCollectionClone(t *testing.T) {
	t.Parallel()

	img := "avatar"
	c := domain.NewWalletCollection()
	c.Wallets["w1"] = &domain.Wallet{
		ID:        "w1",
		Addresses: []domain.Account{{Address: addrA, Visible: true, Image: &img}},
	}
	c.Selected = "w1"

	clone := c.Clone()
	clone.Wallets["w1"].Damaged = true
	clone.Wallets["w1"].Addresses[0].Visible = false
	*clone.Wallets["w1"].Addresses[0].Image = "changed"
	clone.Selected = "w2"

	require.False(t, c.Wallets["w1"].Damaged)
	require.True(t, c.Wallets["w1"].Addresses[0].Visible)
	require.Equal(t, "avatar", *c.Wallets["w1"].Addresses[0].Image)
	require.Equal(t, "w1", c.Selected)
}

func TestFindWalletByAddress(t *testing.T) {
	t.Parallel()

	c := domain.NewWalletCollection()
	c.Wallets["w1"] = &domain.Wallet{ID: "w1", Addresses: []domain.Account{{Address: addrA}}}
	c.Wallets["w2"] = &domain.Wallet{ID: "w2", Addresses: []domain.Account{{Address: addrB}}}

	w, ok := c.FindWalletByAddress("0x70997970c51812dc3a010c7d01b50e0d17dc79c8")
	require.True(t, ok)
	require.Equal(t, "w2", w.ID)

	_, ok = c.FindWalletByAddress(addrC)
	require.False(t, ok)
}

func TestReselectCandidate(t *testing.T) {
	t.Parallel()

	visible := []domain.Account{{Address: addrA, Visible: true}}
	c := domain.NewWalletCollection()
	c.Wallets["a"] = &domain.Wallet{ID: "a", Type: domain.WalletTypeReadOnly, Addresses: visible}
	c.Wallets["b"] = &domain.Wallet{ID: "b", Damaged: true, Addresses: visible}
	c.Wallets["c"] = &domain.Wallet{ID: "c", Addresses: visible}
	c.Wallets["d"] = &domain.Wallet{ID: "d", Addresses: visible}

	w, ok := c.ReselectCandidate("c")
	require.True(t, ok)
	require.Equal(t, "d", w.ID)

	delete(c.Wallets, "d")
	w, ok = c.ReselectCandidate("c")
	require.True(t, ok)
	require.Equal(t, "a", w.ID)

	delete(c.Wallets, "a")
	_, ok = c.ReselectCandidate("c")
	require.False(t, ok)
}

func TestParseWalletType(t *testing.T) {
	t.Parallel()

	for _, typ := range []domain.WalletType{
		domain.WalletTypeStandard,
		domain.WalletTypeImported,
		domain.WalletTypeReadOnly,
	} {
		parsed, err := domain.ParseWalletType(typ.String())
		require.NoError(t, err)
		require.Equal(t, typ, parsed)
	}

	_, err := domain.ParseWalletType("hardware")
	require.ErrorIs(t, err, domain.ErrInvalidWalletType)
	require.False(t, domain.WalletType(42).IsValid())
}

func TestSecretKeys(t *testing.T) {
	t.Parallel()

	require.Equal(t, "W1_seedPhrase", domain.SeedPhraseKey("W1"))
	require.Equal(t, addrA+"_privateKey", domain.PrivateKeyKey(addrA))
}

func TestIdentifyWalletType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected domain.WalletType
		err      error
	}{
		{
			input:    "test test test test test test test test test test test junk",
			expected: domain.WalletTypeStandard,
		},
		{
			input:    "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80",
			expected: domain.WalletTypeImported,
		},
		{
			input:    "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80",
			expected: domain.WalletTypeImported,
		},
		{
			input:    addrA,
			expected: domain.WalletTypeReadOnly,
		},
		{
			input: "vitalik.eth",
			err:   domain.ErrInvalidWalletType,
		},
	}

	for _, tt := range tests {
		typ, err := domain.IdentifyWalletType(tt.input)
		if tt.err != nil {
			require.ErrorIs(t, err, tt.err)
			continue
		}
		require.NoError(t, err)
		require.Equal(t, tt.expected, typ)
	}
}
