package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/amberlabs/amber/pkg/amber/bot"
	"github.com/amberlabs/amber/pkg/amber/bot/memory"
	"github.com/spf13/cobra"
)

// newRememberCmd cria o comando `amber remember` para gravar fatos direto
// na memória.
func newRememberCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remember <fato>",
		Short: "Grava um fato na memória da Amber",
		Long: `Grava um fato diretamente na memória de longo prazo, sem passar
pela conversa. Use --user para associar o fato a um número específico.

Exemplos:
  amber remember "meu aniversário é dia 12 de março"
  amber remember --user 5511912345678 "prefere ser chamado de Zé"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runRemember,
	}
	cmd.Flags().String("user", chatUserID, "usuário dono do fato")
	return cmd
}

func runRemember(cmd *cobra.Command, args []string) error {
	cfg, _, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	applyVerbose(cmd, cfg)
	logger := bot.NewLogger(cfg.Logging)

	userID, _ := cmd.Flags().GetString("user")
	fact := strings.Join(args, " ")

	embedder := memory.NewOpenAIEmbedder(cfg.Memory.Embedding)
	store, err := memory.NewSQLiteStore(cfg.Memory.Path, embedder, logger)
	if err != nil {
		return fmt.Errorf("abrindo memória: %w", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := store.Add(ctx, fact, userID, memory.RoleUser); err != nil {
		return fmt.Errorf("gravando fato: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Anotado!")
	return nil
}
