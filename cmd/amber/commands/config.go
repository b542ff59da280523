package commands

import (
	"fmt"
	"os"

	"github.com/amberlabs/amber/pkg/amber/bot"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// newConfigCmd cria o comando `amber config` com utilitários de
// configuração e segredos.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspeciona a configuração e gerencia a chave de API",
	}
	cmd.AddCommand(newConfigPathCmd(), newConfigSetKeyCmd(), newConfigDeleteKeyCmd())
	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Mostra qual arquivo de configuração está em uso",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, path, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func newConfigSetKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-key",
		Short: "Grava a chave de API no chaveiro do sistema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !bot.KeyringAvailable() {
				return fmt.Errorf("chaveiro do sistema indisponível; use a variável AMBER_API_KEY")
			}

			fmt.Fprint(cmd.OutOrStdout(), "Chave de API: ")
			key, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Fprintln(cmd.OutOrStdout())
			if err != nil {
				return fmt.Errorf("lendo chave: %w", err)
			}
			if len(key) == 0 {
				return fmt.Errorf("chave vazia")
			}

			if err := bot.StoreAPIKey(string(key)); err != nil {
				return fmt.Errorf("gravando chave: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Chave gravada no chaveiro do sistema.")
			return nil
		},
	}
}

func newConfigDeleteKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-key",
		Short: "Remove a chave de API do chaveiro do sistema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := bot.DeleteKeyring("api_key"); err != nil {
				return fmt.Errorf("removendo chave: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Chave removida.")
			return nil
		},
	}
}
