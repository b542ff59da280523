package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/amberlabs/amber/pkg/amber/bot"
	"github.com/spf13/cobra"
)

// newAskCmd cria o comando `amber ask` para perguntas pontuais.
func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <pergunta>",
		Short: "Faz uma pergunta e imprime a resposta",
		Long: `Envia uma pergunta única para a Amber e imprime a resposta no
terminal. A conversa fica registrada na memória como qualquer outra.

Exemplo:
  amber ask "qual é o meu nome?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAsk,
	}
}

func runAsk(cmd *cobra.Command, args []string) error {
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

	reply := responder.Respond(ctx, chatUserID, strings.Join(args, " "))
	fmt.Fprintln(cmd.OutOrStdout(), reply)
	return nil
}
