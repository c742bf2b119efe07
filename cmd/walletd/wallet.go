package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"
	"github.com/vaultline/walletd/internal/core/application"
	"github.com/vaultline/walletd/internal/infrastructure/keyderiver/hdwallet"
	httpinterface "github.com/vaultline/walletd/internal/interfaces/http"
	"github.com/vaultline/walletd/pkg/wallet"
)

const (
	mnemonicFlagName   = "mnemonic"
	privateKeyFlagName = "private-key"
	addressFlagName    = "address"
	nameFlagName       = "name"
	labelFlagName      = "label"
	colorFlagName      = "color"
	walletFlagName     = "wallet"
	importFlagName     = "import"
)

var genseed = cli.Command{
	Name:  "genseed",
	Usage: "generate a mnemonic seed",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  importFlagName,
			Usage: "also create a new wallet from the generated seed",
		},
		&cli.StringFlag{
			Name:  nameFlagName,
			Usage: "the name of the new wallet",
		},
	},
	Action: genSeedAction,
}

var importwallet = cli.Command{
	Name:  "import",
	Usage: "import a wallet from a mnemonic, a private key or a watch-only address",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  mnemonicFlagName,
			Usage: "the BIP39 mnemonic of a standard wallet",
		},
		&cli.StringFlag{
			Name:  privateKeyFlagName,
			Usage: "the hex private key of an imported wallet",
		},
		&cli.StringFlag{
			Name:  addressFlagName,
			Usage: "the address of a read-only wallet",
		},
		&cli.StringFlag{
			Name:  nameFlagName,
			Usage: "the name of the wallet",
		},
		&cli.StringFlag{
			Name:  labelFlagName,
			Usage: "the label of the first account",
		},
		&cli.IntFlag{
			Name:  colorFlagName,
			Usage: "the color of the first account",
		},
	},
	Action: importWalletAction,
}

var status = cli.Command{
	Name:   "status",
	Usage:  "show wallets, selection and current address",
	Action: statusAction,
}

var selectwallet = cli.Command{
	Name:  "select",
	Usage: "select a wallet",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     walletFlagName,
			Usage:    "the id of the wallet to select",
			Required: true,
		},
	},
	Action: selectWalletAction,
}

var markdamaged = cli.Command{
	Name:  "markdamaged",
	Usage: "flag a wallet as damaged, disabling write operations until re-imported",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     walletFlagName,
			Usage:    "the id of the damaged wallet",
			Required: true,
		},
	},
	Action: markDamagedAction,
}

func genSeedAction(ctx *cli.Context) error {
	mnemonic, err := hdwallet.NewMnemonic()
	if err != nil {
		return err
	}
	seed := strings.Join(mnemonic, " ")

	if !ctx.Bool(importFlagName) {
		fmt.Println()
		fmt.Println(seed)
		return nil
	}

	svcs, err := newServices(ctx)
	if err != nil {
		return err
	}
	defer svcs.close()

	w, err := svcs.walletService().ImportWallet(ctx.Context, application.ImportWalletOpts{
		Input: seed,
		Name:  ctx.String(nameFlagName),
	})
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(seed)
	fmt.Println()
	fmt.Printf("wallet %s created\n", w.ID)
	return nil
}

func importWalletAction(ctx *cli.Context) error {
	inputs := make([]string, 0, 1)
	for _, flag := range []string{mnemonicFlagName, privateKeyFlagName, addressFlagName} {
		if v := ctx.String(flag); v != "" {
			inputs = append(inputs, v)
		}
	}
	if len(inputs) != 1 {
		return &invalidUsageError{ctx, ctx.Command.Name}
	}
	if mnemonic := ctx.String(mnemonicFlagName); mnemonic != "" {
		if !wallet.IsMnemonicValid(strings.Fields(strings.ToLower(mnemonic))) {
			return wallet.ErrInvalidMnemonic
		}
	}

	svcs, err := newServices(ctx)
	if err != nil {
		return err
	}
	defer svcs.close()

	w, err := svcs.walletService().ImportWallet(ctx.Context, application.ImportWalletOpts{
		Input:    inputs[0],
		Name:     ctx.String(nameFlagName),
		Label:    ctx.String(labelFlagName),
		Color:    ctx.Int(colorFlagName),
		Imported: true,
	})
	if err != nil {
		return err
	}

	printJSON(struct {
		ID      string `json:"id"`
		Type    string `json:"type"`
		Address string `json:"address"`
	}{w.ID, w.Type.String(), w.Addresses[0].Address})
	return nil
}

func statusAction(ctx *cli.Context) error {
	svcs, err := newServices(ctx)
	if err != nil {
		return err
	}
	defer svcs.close()

	printJSON(httpinterface.NewStateView(svcs.walletService().State()))
	return nil
}

func selectWalletAction(ctx *cli.Context) error {
	svcs, err := newServices(ctx)
	if err != nil {
		return err
	}
	defer svcs.close()

	walletSvc := svcs.walletService()
	if err := walletSvc.SetSelected(ctx.Context, ctx.String(walletFlagName)); err != nil {
		return err
	}

	fmt.Printf("current address: %s\n", walletSvc.State().CurrentAddress)
	return nil
}

func markDamagedAction(ctx *cli.Context) error {
	svcs, err := newServices(ctx)
	if err != nil {
		return err
	}
	defer svcs.close()

	if err := svcs.walletService().MarkDamaged(
		ctx.Context, ctx.String(walletFlagName),
	); err != nil {
		return err
	}

	fmt.Println("Done")
	return nil
}
