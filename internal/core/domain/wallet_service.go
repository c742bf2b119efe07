package domain

import "sort"

// IsReadOnly returns whether the wallet owns no secret material and is
// therefore exempt from integrity checks.
func (w *Wallet) IsReadOnly() bool {
	return w.Type == WalletTypeReadOnly
}

// NextIndex returns the derivation index for the next account, that is
// max(index)+1, or 0 for a wallet without accounts.
func (w *Wallet) NextIndex() uint32 {
	if len(w.Addresses) <= 0 {
		return 0
	}
	var max uint32
	for _, a := range w.Addresses {
		if a.Index > max {
			max = a.Index
		}
	}
	return max + 1
}

// Account returns the account with the given address.
func (w *Wallet) Account(addr string) (*Account, bool) {
	for i := range w.Addresses {
		if SameAddress(w.Addresses[i].Address, addr) {
			return &w.Addresses[i], true
		}
	}
	return nil, false
}

// HasAddress returns whether the address belongs to the wallet.
func (w *Wallet) HasAddress(addr string) bool {
	_, ok := w.Account(addr)
	return ok
}

// HasIndex returns whether some account already uses the given derivation
// index.
func (w *Wallet) HasIndex(index uint32) bool {
	for _, a := range w.Addresses {
		if a.Index == index {
			return true
		}
	}
	return false
}

// VisibleAccount returns the account with the given address only if it is
// visible.
func (w *Wallet) VisibleAccount(addr string) (*Account, bool) {
	a, ok := w.Account(addr)
	if !ok || !a.Visible {
		return nil, false
	}
	return a, true
}

// FirstVisible returns the first visible account in derivation order, the
// fallback target whenever the current address must be reselected.
func (w *Wallet) FirstVisible() (*Account, bool) {
	for i := range w.Addresses {
		if w.Addresses[i].Visible {
			return &w.Addresses[i], true
		}
	}
	return nil, false
}

// CountVisible returns the number of visible accounts.
func (w *Wallet) CountVisible() int {
	count := 0
	for _, a := range w.Addresses {
		if a.Visible {
			count++
		}
	}
	return count
}

// AddAccount appends the account to the wallet. Address and index must both
// be unused.
func (w *Wallet) AddAccount(account Account) error {
	if w.HasAddress(account.Address) || w.HasIndex(account.Index) {
		return ErrDuplicateAccount
	}
	w.Addresses = append(w.Addresses, account)
	return nil
}

// Clone returns a deep copy of the wallet.
func (w *Wallet) Clone() *Wallet {
	if w == nil {
		return nil
	}
	clone := *w
	clone.Addresses = make([]Account, 0, len(w.Addresses))
	for _, a := range w.Addresses {
		if a.Image != nil {
			img := *a.Image
			a.Image = &img
		}
		clone.Addresses = append(clone.Addresses, a)
	}
	return &clone
}

// Clone returns a deep copy of the collection.
func (c *WalletCollection) Clone() *WalletCollection {
	clone := NewWalletCollection()
	if c == nil {
		return clone
	}
	clone.Selected = c.Selected
	for id, w := range c.Wallets {
		clone.Wallets[id] = w.Clone()
	}
	return clone
}

// IsEmpty returns whether the collection holds no wallets.
func (c *WalletCollection) IsEmpty() bool {
	return c == nil || len(c.Wallets) <= 0
}

// Wallet returns the wallet with the given id.
func (c *WalletCollection) Wallet(id string) (*Wallet, bool) {
	if c == nil || id == "" {
		return nil, false
	}
	w, ok := c.Wallets[id]
	return w, ok
}

// SelectedWallet resolves the selected pointer.
func (c *WalletCollection) SelectedWallet() (*Wallet, bool) {
	if c == nil {
		return nil, false
	}
	return c.Wallet(c.Selected)
}

// FindWalletByAddress returns the wallet owning the given address. Wallets
// are visited in id order so that the result is deterministic.
func (c *WalletCollection) FindWalletByAddress(addr string) (*Wallet, bool) {
	for _, id := range c.SortedIDs() {
		if w := c.Wallets[id]; w.HasAddress(addr) {
			return w, true
		}
	}
	return nil, false
}

// SortedIDs returns the wallet ids in lexicographic order.
func (c *WalletCollection) SortedIDs() []string {
	if c == nil {
		return nil
	}
	ids := make([]string, 0, len(c.Wallets))
	for id := range c.Wallets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// VisibleAddresses returns the deduplicated list of visible addresses of all
// wallets.
func (c *WalletCollection) VisibleAddresses() []string {
	seen := map[string]bool{}
	addresses := make([]string, 0)
	for _, id := range c.SortedIDs() {
		for _, a := range c.Wallets[id].Addresses {
			if !a.Visible || seen[a.Address] {
				continue
			}
			seen[a.Address] = true
			addresses = append(addresses, a.Address)
		}
	}
	return addresses
}

// ReselectCandidate returns a non-damaged wallet other than the excluded one
// to move the selection to. Wallets with secret material are preferred over
// read-only ones, ties are broken by id.
func (c *WalletCollection) ReselectCandidate(excludedID string) (*Wallet, bool) {
	var readOnly *Wallet
	for _, id := range c.SortedIDs() {
		w := c.Wallets[id]
		if id == excludedID || w.Damaged {
			continue
		}
		if _, ok := w.FirstVisible(); !ok {
			continue
		}
		if !w.IsReadOnly() {
			return w, true
		}
		if readOnly == nil {
			readOnly = w
		}
	}
	return readOnly, readOnly != nil
}
