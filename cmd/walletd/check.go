package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
	httpinterface "github.com/vaultline/walletd/internal/interfaces/http"
)

var check = cli.Command{
	Name:   "check",
	Usage:  "verify that every wallet secret is in the key store, flagging damaged wallets",
	Action: checkAction,
}

func checkAction(ctx *cli.Context) error {
	svcs, err := newServices(ctx)
	if err != nil {
		return err
	}
	defer svcs.close()

	report := svcs.config.IntegrityService().Check(ctx.Context)
	printJSON(httpinterface.NewReportView(report))

	if !report.Healthy {
		return fmt.Errorf("keychain integrity is not OK")
	}
	return nil
}
