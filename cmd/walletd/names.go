package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"github.com/vaultline/walletd/internal/config"
)

var names = cli.Command{
	Name:   "names",
	Usage:  "refresh the display names of the visible accounts",
	Action: namesAction,
}

func namesAction(ctx *cli.Context) error {
	svcs, err := newServices(ctx)
	if err != nil {
		return err
	}
	defer svcs.close()

	nameSvc := svcs.config.NameService()
	if nameSvc == nil {
		return fmt.Errorf(
			"name resolution is disabled, set WALLETD_%s",
			config.NameResolutionRPCEndpointKey,
		)
	}

	displayNames, err := nameSvc.Refresh(ctx.Context)
	if err != nil {
		return err
	}

	printJSON(displayNames)
	return nil
}
