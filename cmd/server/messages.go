package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tyrowin/gorelay/internal/server"
	"github.com/Tyrowin/gorelay/internal/store"
)

func messagesCmd() *cobra.Command {
	var (
		envFile string
		file    string
	)

	cmd := &cobra.Command{
		Use:   "messages",
		Short: "Print the persisted message log",
		Long: `Print the persisted message log as JSON.

The file is resolved like serve resolves it: MESSAGES_FILE from the
environment or the env file, unless --file is given.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("file") {
				cfg, err := server.NewConfigFromEnv(envFile)
				if err != nil {
					return err
				}
				file = cfg.MessagesFile
			}

			messages, err := store.NewFile(file).Load()
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			}

			out, err := json.MarshalIndent(messages, "", "  ")
			if err != nil {
				return fmt.Errorf("encode messages: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", ".env", "env file loaded before reading the environment")
	cmd.Flags().StringVar(&file, "file", "", "message log persistence file (default MESSAGES_FILE)")
	return cmd
}
