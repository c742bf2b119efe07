package domain

import "context"

// WalletRepository persists the non-secret wallet metadata. Absent values are
// reported as zero values (empty collection, empty string), never as errors.
type WalletRepository interface {
	LoadCollection(ctx context.Context) (*WalletCollection, error)
	SaveCollection(ctx context.Context, collection *WalletCollection) error
	LoadSelectedID(ctx context.Context) (string, error)
	SaveSelectedID(ctx context.Context, walletID string) error
	LoadCurrentAddress(ctx context.Context) (string, error)
	SaveCurrentAddress(ctx context.Context, addr string) error
	LoadDisplayNames(ctx context.Context) (map[string]string, error)
	SaveDisplayNames(ctx context.Context, names map[string]string) error
}
