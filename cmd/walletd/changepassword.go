package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"github.com/vaultline/walletd/internal/config"
)

const (
	curPwdFlagName = "current_password"
	newPwdFlagName = "new_password"
)

var changepassword = cli.Command{
	Name:  "changepassword",
	Usage: "change the password to unlock the key store",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     curPwdFlagName,
			Usage:    "the old unlocking password to be changed",
			Required: true,
		},
		&cli.StringFlag{
			Name:     newPwdFlagName,
			Usage:    "the new password that replaces the old one",
			Required: true,
		},
	},
	Action: changePasswordAction,
}

func changePasswordAction(ctx *cli.Context) error {
	if config.GetString(config.KeystoreTypeKey) != config.KeystoreBolt {
		return fmt.Errorf("only the bolt key store is password protected")
	}

	store, err := openSecureStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	curPwd := ctx.String(curPwdFlagName)
	newPwd := ctx.String(newPwdFlagName)

	if err := store.ChangePassword([]byte(curPwd), []byte(newPwd)); err != nil {
		return err
	}

	fmt.Println("Done")
	return nil
}
