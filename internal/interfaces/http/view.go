package httpinterface

import (
	"github.com/vaultline/walletd/internal/core/application"
)

type AccountView struct {
	Address     string `json:"address"`
	Index       uint32 `json:"index"`
	Label       string `json:"label,omitempty"`
	Color       int    `json:"color"`
	Visible     bool   `json:"visible"`
	DisplayName string `json:"display_name,omitempty"`
}

type WalletView struct {
	ID       string        `json:"id"`
	Type     string        `json:"type"`
	Name     string        `json:"name,omitempty"`
	Damaged  bool          `json:"damaged"`
	Imported bool          `json:"imported"`
	Accounts []AccountView `json:"accounts"`
}

type StateView struct {
	Selected       string       `json:"selected"`
	CurrentAddress string       `json:"current_address"`
	Wallets        []WalletView `json:"wallets"`
}

func NewStateView(state application.WalletsState) StateView {
	view := StateView{
		Selected:       state.Collection.Selected,
		CurrentAddress: state.CurrentAddress,
		Wallets:        make([]WalletView, 0, len(state.Collection.Wallets)),
	}
	for _, id := range state.Collection.SortedIDs() {
		w := state.Collection.Wallets[id]
		wv := WalletView{
			ID:       w.ID,
			Type:     w.Type.String(),
			Name:     w.Name,
			Damaged:  w.Damaged,
			Imported: w.Imported,
			Accounts: make([]AccountView, 0, len(w.Addresses)),
		}
		for _, a := range w.Addresses {
			wv.Accounts = append(wv.Accounts, AccountView{
				Address:     a.Address,
				Index:       a.Index,
				Label:       a.Label,
				Color:       a.Color,
				Visible:     a.Visible,
				DisplayName: state.DisplayNames[a.Address],
			})
		}
		view.Wallets = append(view.Wallets, wv)
	}
	return view
}

type WalletReportView struct {
	WalletID    string            `json:"wallet_id"`
	Skipped     bool              `json:"skipped,omitempty"`
	Healthy     bool              `json:"healthy"`
	MissingSeed bool              `json:"missing_seed,omitempty"`
	MissingKeys []string          `json:"missing_keys,omitempty"`
	ReadErrors  map[string]string `json:"read_errors,omitempty"`
	MarkError   string            `json:"mark_error,omitempty"`
}

type ReportView struct {
	Healthy bool               `json:"healthy"`
	Damaged []string           `json:"damaged"`
	Wallets []WalletReportView `json:"wallets"`
	Legacy  map[string]bool    `json:"legacy_entries"`
}

func NewReportView(report *application.IntegrityReport) ReportView {
	view := ReportView{
		Healthy: report.Healthy,
		Damaged: report.DamagedWallets(),
		Wallets: make([]WalletReportView, 0, len(report.Wallets)),
		Legacy: map[string]bool{
			"address":            report.Legacy.Address,
			"seedPhraseMigrated": report.Legacy.SeedPhraseMigrated,
			"seedPhrase":         report.Legacy.SeedPhrase,
		},
	}
	for _, r := range report.Wallets {
		rv := WalletReportView{
			WalletID:    r.WalletID,
			Skipped:     r.Skipped,
			Healthy:     r.Healthy,
			MissingSeed: r.MissingSeed,
			MissingKeys: r.MissingKeys,
		}
		if len(r.ReadErrors) > 0 {
			rv.ReadErrors = make(map[string]string, len(r.ReadErrors))
			for key, err := range r.ReadErrors {
				rv.ReadErrors[key] = err.Error()
			}
		}
		if r.MarkError != nil {
			rv.MarkError = r.MarkError.Error()
		}
		view.Wallets = append(view.Wallets, rv)
	}
	return view
}
