package main

import (
	"github.com/spf13/cobra"

	"yieldFarm/internal/config"
)

func newTokensCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "Browse and import tokens",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List bundled and imported tokens",
		RunE:  runTokensList,
	}
	addChainFlags(listCmd)

	importCmd := &cobra.Command{
		Use:   "import <address>",
		Short: "Import an ERC20 token by address",
		Args:  cobra.ExactArgs(1),
		RunE:  runTokensImport,
	}
	addChainFlags(importCmd)

	cmd.AddCommand(listCmd, importCmd)
	return cmd
}

func runTokensList(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signalContext()
	defer stop()

	sess, err := openSession(ctx, cfg, logger, false)
	if err != nil {
		return err
	}
	defer sess.Close()

	return printJSON(cmd, sess.registry.Tokens())
}

func runTokensImport(cmd *cobra.Command, args []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signalContext()
	defer stop()

	sess, err := openSession(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer sess.Close()

	token, err := sess.registry.Import(ctx, args[0])
	if err != nil {
		return err
	}
	return printJSON(cmd, token)
}
