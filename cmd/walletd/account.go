package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"github.com/vaultline/walletd/internal/core/application"
	httpinterface "github.com/vaultline/walletd/internal/interfaces/http"
)

var addaccount = cli.Command{
	Name:  "addaccount",
	Usage: "derive a new account for a wallet and make it the current one",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  walletFlagName,
			Usage: "the id of the wallet, defaults to the selected one",
		},
		&cli.StringFlag{
			Name:  labelFlagName,
			Usage: "the label of the account",
		},
		&cli.IntFlag{
			Name:  colorFlagName,
			Usage: "the color of the account",
		},
	},
	Action: addAccountAction,
}

var setaddress = cli.Command{
	Name:  "setaddress",
	Usage: "set the current address among the visible accounts of the selected wallet",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     addressFlagName,
			Usage:    "the address to make current",
			Required: true,
		},
	},
	Action: setAddressAction,
}

var hideaccount = cli.Command{
	Name:   "hide",
	Usage:  "hide an account, the last visible account of a wallet cannot be hidden",
	Flags:  accountFlags,
	Action: hideAccountAction,
}

var showaccount = cli.Command{
	Name:   "show",
	Usage:  "make an account visible again",
	Flags:  accountFlags,
	Action: showAccountAction,
}

var accountFlags = []cli.Flag{
	&cli.StringFlag{
		Name:     walletFlagName,
		Usage:    "the id of the wallet owning the account",
		Required: true,
	},
	&cli.StringFlag{
		Name:     addressFlagName,
		Usage:    "the address of the account",
		Required: true,
	},
}

func addAccountAction(ctx *cli.Context) error {
	svcs, err := newServices(ctx)
	if err != nil {
		return err
	}
	defer svcs.close()

	walletSvc := svcs.walletService()
	walletID := ctx.String(walletFlagName)
	if walletID == "" {
		walletID = walletSvc.GetCollection().Selected
	}

	account, err := walletSvc.AddAccount(
		ctx.Context, walletID, ctx.Int(colorFlagName), ctx.String(labelFlagName),
	)
	if err != nil {
		return err
	}

	printJSON(httpinterface.AccountView{
		Address: account.Address,
		Index:   account.Index,
		Label:   account.Label,
		Color:   account.Color,
		Visible: account.Visible,
	})
	return nil
}

func setAddressAction(ctx *cli.Context) error {
	svcs, err := newServices(ctx)
	if err != nil {
		return err
	}
	defer svcs.close()

	if err := svcs.walletService().SetSelectedAddress(
		ctx.Context, ctx.String(addressFlagName),
	); err != nil {
		return err
	}

	fmt.Println("Done")
	return nil
}

func hideAccountAction(ctx *cli.Context) error {
	return setAccountVisibility(ctx, false)
}

func showAccountAction(ctx *cli.Context) error {
	return setAccountVisibility(ctx, true)
}

func setAccountVisibility(ctx *cli.Context, visible bool) error {
	svcs, err := newServices(ctx)
	if err != nil {
		return err
	}
	defer svcs.close()

	walletSvc := svcs.walletService()
	if err := walletSvc.UpdateAccount(
		ctx.Context, ctx.String(walletFlagName), ctx.String(addressFlagName),
		application.AccountPatch{Visible: &visible},
	); err != nil {
		return err
	}

	fmt.Printf("current address: %s\n", walletSvc.State().CurrentAddress)
	return nil
}
