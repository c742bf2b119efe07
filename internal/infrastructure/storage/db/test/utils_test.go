package db_test

import (
	"crypto/rand"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/vaultline/walletd/internal/core/domain"
)

func makeRandomWallet(walletType domain.WalletType, numOfAccounts int) *domain.Wallet {
	accounts := make([]domain.Account, 0, numOfAccounts)
	for i := 0; i < numOfAccounts; i++ {
		accounts = append(accounts, domain.Account{
			Address: randomAddress(),
			Index:   uint32(i),
			Label:   fmt.Sprintf("Account #%d", i+1),
			Color:   i,
			Visible: true,
		})
	}
	return &domain.Wallet{
		ID:        randomWalletID(),
		Type:      walletType,
		Name:      "Wallet",
		Addresses: accounts,
	}
}

func randomWalletID() string {
	return fmt.Sprintf("wallet_%s", uuid.New().String())
}

func randomAddress() string {
	return common.BytesToAddress(randomBytes(20)).Hex()
}

func randomBytes(len int) []byte {
	b := make([]byte, len)
	//nolint
	rand.Read(b)
	return b
}
