package ports

import "github.com/vaultline/walletd/internal/core/domain"

// RepoManager gives access to the repositories of the configured storage.
type RepoManager interface {
	WalletRepository() domain.WalletRepository
	Close()
}
