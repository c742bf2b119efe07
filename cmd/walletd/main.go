package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"github.com/vaultline/walletd/internal/config"
)

const (
	datadirFlagName  = "datadir"
	passwordFlagName = "password"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	app := cli.NewApp()

	app.Version = formatVersion()
	app.Name = "walletd"
	app.Usage = "manage wallets and keep the keychain consistent with them"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:  datadirFlagName,
			Usage: "data directory, overrides WALLETD_DATADIR",
		},
		&cli.StringFlag{
			Name:  passwordFlagName,
			Usage: "password of the key store, overrides WALLETD_KEYSTORE_PASSWORD_FILE",
		},
	}
	app.Before = initConfig
	app.Commands = append(
		app.Commands,
		&genseed,
		&importwallet,
		&status,
		&check,
		&addaccount,
		&selectwallet,
		&setaddress,
		&hideaccount,
		&showaccount,
		&markdamaged,
		&names,
		&changepassword,
		&run,
	)

	err := app.Run(os.Args)
	if err != nil {
		fatal(err)
	}
}

func initConfig(ctx *cli.Context) error {
	if datadir := ctx.String(datadirFlagName); datadir != "" {
		if err := os.Setenv("WALLETD_DATADIR", datadir); err != nil {
			return err
		}
	}
	if err := config.InitConfig(); err != nil {
		return err
	}
	log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))
	return nil
}

func formatVersion() string {
	return fmt.Sprintf("%s, commit: %s, date: %s", version, commit, date)
}

func printJSON(resp interface{}) {
	b, err := json.MarshalIndent(resp, "", "\t")
	if err != nil {
		fmt.Println("unable to decode response: ", err)
		return
	}
	fmt.Println(string(b))
}

type invalidUsageError struct {
	ctx     *cli.Context
	command string
}

func (e *invalidUsageError) Error() string {
	return fmt.Sprintf("invalid usage of command %s", e.command)
}

func fatal(err error) {
	var e *invalidUsageError
	if errors.As(err, &e) {
		_ = cli.ShowCommandHelp(e.ctx, e.command)
	} else {
		_, _ = fmt.Fprintf(os.Stderr, "[walletd] %v\n", err)
	}
	os.Exit(1)
}
