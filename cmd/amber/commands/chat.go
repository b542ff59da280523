package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/amberlabs/amber/pkg/amber/bot"
	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

// chatUserID identifica conversas feitas pelo terminal no log de memórias.
const chatUserID = "cli"

// newChatCmd cria o comando `amber chat` para conversar pelo terminal.
func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat [mensagem]",
		Short: "Conversa com a Amber pelo terminal",
		Long: `Abre uma conversa interativa com a Amber sem passar pelo WhatsApp.
Com um argumento, envia uma única mensagem e imprime a resposta.

Exemplos:
  amber chat
  amber chat "me lembra do que eu falei ontem?"`,
		Args: cobra.ArbitraryArgs,
		RunE: runChat,
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, _, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	applyVerbose(cmd, cfg)
	logger := bot.NewLogger(cfg.Logging)

	if err := cfg.Validate(); err != nil {
		return err
	}

	assistant, responder, err := bot.BuildAssistant(cfg, logger)
	if err != nil {
		return err
	}
	defer assistant.Stop()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Modo de tiro único: mensagem passada como argumento.
	if len(args) > 0 {
		reply := responder.Respond(ctx, chatUserID, strings.Join(args, " "))
		fmt.Fprintln(cmd.OutOrStdout(), reply)
		return nil
	}

	rl, err := readline.New("você> ")
	if err != nil {
		return fmt.Errorf("iniciando terminal: %w", err)
	}
	defer rl.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "Conversando com %s. Ctrl+D para sair.\n", cfg.Name)
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "/sair" || line == "/quit" {
			return nil
		}

		reply := responder.Respond(ctx, chatUserID, line)
		fmt.Fprintf(cmd.OutOrStdout(), "%s> %s\n", strings.ToLower(cfg.Name), reply)
	}
}
