// Package commands implementa os comandos CLI da Amber usando cobra.
package commands

import (
	"fmt"

	"github.com/amberlabs/amber/pkg/amber/bot"
	"github.com/spf13/cobra"
)

// NewRootCmd cria o comando raiz do CLI com todos os subcomandos registrados.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "amber",
		Short: "Amber - Assistente pessoal no WhatsApp",
		Long: `Amber é uma assistente pessoal que vive no WhatsApp: responde
mensagens e áudios, lembra fatos sobre você e agenda lembretes.

Exemplos:
  amber serve
  amber chat
  amber ask "vai chover amanhã?"
  amber remember "meu aniversário é dia 12 de março"
  amber schedule add "0 9 * * *" "resumo do dia" --chat-id 5511912345678`,
		Version: version,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newChatCmd(),
		newAskCmd(),
		newRememberCmd(),
		newScheduleCmd(),
		newSetupCmd(),
		newConfigCmd(),
	)

	rootCmd.PersistentFlags().StringP("config", "c", "", "caminho para o arquivo de configuração")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "habilita logs detalhados")

	return rootCmd
}

// resolveConfig carrega a configuração a partir da flag --config ou dos
// caminhos padrão.
func resolveConfig(cmd *cobra.Command) (*bot.Config, string, error) {
	path, _ := cmd.Root().PersistentFlags().GetString("config")
	if path == "" {
		path = bot.FindConfigFile()
	}
	if path == "" {
		return nil, "", fmt.Errorf("nenhum arquivo de configuração encontrado (rode 'amber setup')")
	}

	cfg, err := bot.LoadConfigFromFile(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// applyVerbose rebaixa o nível de log para debug quando --verbose está ativo.
func applyVerbose(cmd *cobra.Command, cfg *bot.Config) {
	if verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose"); verbose {
		cfg.Logging.Level = "debug"
	}
}
