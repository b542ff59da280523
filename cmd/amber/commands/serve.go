package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/amberlabs/amber/pkg/amber/bot"
	"github.com/amberlabs/amber/pkg/amber/channels"
	"github.com/amberlabs/amber/pkg/amber/channels/whatsapp"
	"github.com/amberlabs/amber/pkg/amber/gateway"
	"github.com/amberlabs/amber/pkg/amber/scheduler"
	"github.com/spf13/cobra"
)

// newServeCmd cria o comando `amber serve` que sobe o daemon.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Inicia o daemon conectado ao WhatsApp",
		Long: `Inicia a Amber como serviço: conecta ao WhatsApp, processa
mensagens e mantém o agendador de lembretes rodando.

Exemplos:
  amber serve
  amber serve --config ./amber.yaml`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, configPath, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	applyVerbose(cmd, cfg)
	logger := bot.NewLogger(cfg.Logging)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuração inválida (%s): %w", configPath, err)
	}

	assistant, responder, err := bot.BuildAssistant(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.WhatsApp.Enabled {
		wa := whatsapp.New(cfg.WhatsApp, logger)
		if err := assistant.Manager().Register(wa); err != nil {
			return fmt.Errorf("registrando canal whatsapp: %w", err)
		}
	}

	if err := assistant.Start(ctx); err != nil {
		return err
	}
	defer assistant.Stop()

	// Agendador de lembretes.
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		storage, err := scheduler.NewSQLiteStorage(cfg.Scheduler.Storage)
		if err != nil {
			return fmt.Errorf("abrindo storage do agendador: %w", err)
		}
		defer storage.Close()

		sched = scheduler.New(storage,
			func(ctx context.Context, job *scheduler.Job) (string, error) {
				return responder.Respond(ctx, job.CreatedBy, job.Prompt), nil
			},
			func(ctx context.Context, channel, chatID, message string) error {
				return assistant.Manager().Send(ctx, channel, chatID,
					&channels.OutgoingMessage{Content: message})
			},
			logger)
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer sched.Stop()
	}

	// Gateway HTTP local.
	if cfg.Gateway.Enabled {
		gw := gateway.New(responder, cfg.Gateway, logger)
		if err := gw.Start(ctx); err != nil {
			return err
		}
		defer gw.Stop(context.Background())
	}

	logger.Info("amber rodando", "config", configPath)

	// Aguarda sinal de término.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("encerrando...")
	return nil
}
