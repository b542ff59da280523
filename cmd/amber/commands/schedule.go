package commands

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/amberlabs/amber/pkg/amber/scheduler"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// newScheduleCmd cria o comando `amber schedule` com os subcomandos de
// gerenciamento de lembretes.
func newScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Gerencia lembretes agendados",
		Long: `Gerencia os lembretes da Amber. As alterações são gravadas no
banco de jobs e entram em vigor na próxima vez que o daemon carregar
os agendamentos.

Exemplos:
  amber schedule list
  amber schedule add "0 9 * * *" "resumo do dia" --chat-id 5511912345678
  amber schedule add "15:30" "ligar pro dentista" --type at --chat-id 5511912345678
  amber schedule remove 3f2a...`,
	}

	cmd.AddCommand(newScheduleListCmd(), newScheduleAddCmd(), newScheduleRemoveCmd())
	return cmd
}

func newScheduleListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Lista os lembretes cadastrados",
		RunE: func(cmd *cobra.Command, _ []string) error {
			storage, err := openJobStorage(cmd)
			if err != nil {
				return err
			}
			defer storage.Close()

			jobs, err := storage.LoadAll()
			if err != nil {
				return fmt.Errorf("carregando lembretes: %w", err)
			}
			if len(jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nenhum lembrete cadastrado.")
				return nil
			}

			sort.Slice(jobs, func(i, j int) bool {
				return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
			})

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tAGENDA\tTIPO\tDESTINO\tÚLTIMA EXECUÇÃO\tPROMPT")
			for _, j := range jobs {
				lastRun := "-"
				if j.LastRunAt != nil {
					lastRun = j.LastRunAt.Format("02/01 15:04")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					shortID(j.ID), j.Schedule, j.Type, j.ChatID, lastRun, j.Prompt)
			}
			return w.Flush()
		},
	}
}

func newScheduleAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <agenda> <prompt>",
		Short: "Cadastra um novo lembrete",
		Long: `Cadastra um lembrete. A agenda depende do tipo:

  cron   expressão cron de 5 campos ("0 9 * * *") ou descritor ("@daily")
  every  intervalo ("30m", "2h")
  at     disparo único ("15:04", "5m", "2026-12-25 08:00")`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobType, _ := cmd.Flags().GetString("type")
			channel, _ := cmd.Flags().GetString("channel")
			chatID, _ := cmd.Flags().GetString("chat-id")

			schedule := args[0]
			prompt := strings.Join(args[1:], " ")

			if err := scheduler.ValidateSchedule(jobType, schedule); err != nil {
				return fmt.Errorf("agenda inválida %q: %w", schedule, err)
			}

			storage, err := openJobStorage(cmd)
			if err != nil {
				return err
			}
			defer storage.Close()

			job := &scheduler.Job{
				ID:        uuid.NewString(),
				Schedule:  schedule,
				Type:      jobType,
				Prompt:    prompt,
				Channel:   channel,
				ChatID:    chatID,
				Enabled:   true,
				CreatedBy: chatID,
				CreatedAt: time.Now(),
			}
			if err := storage.Save(job); err != nil {
				return fmt.Errorf("gravando lembrete: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Lembrete %s cadastrado.\n", shortID(job.ID))
			return nil
		},
	}
	cmd.Flags().String("type", "cron", "tipo do lembrete (cron, every, at)")
	cmd.Flags().String("channel", "whatsapp", "canal de entrega")
	cmd.Flags().String("chat-id", "", "número que recebe o lembrete")
	_ = cmd.MarkFlagRequired("chat-id")
	return cmd
}

func newScheduleRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove um lembrete",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			storage, err := openJobStorage(cmd)
			if err != nil {
				return err
			}
			defer storage.Close()

			jobs, err := storage.LoadAll()
			if err != nil {
				return fmt.Errorf("carregando lembretes: %w", err)
			}

			// Aceita tanto o ID completo quanto o prefixo curto do list.
			var match *scheduler.Job
			for _, j := range jobs {
				if j.ID == args[0] || strings.HasPrefix(j.ID, args[0]) {
					if match != nil {
						return fmt.Errorf("prefixo %q é ambíguo, use o ID completo", args[0])
					}
					match = j
				}
			}
			if match == nil {
				return fmt.Errorf("lembrete %q não encontrado", args[0])
			}

			if err := storage.Delete(match.ID); err != nil {
				return fmt.Errorf("removendo lembrete: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Lembrete %s removido.\n", shortID(match.ID))
			return nil
		},
	}
}

// openJobStorage abre o banco de jobs apontado pela configuração.
func openJobStorage(cmd *cobra.Command) (*scheduler.SQLiteStorage, error) {
	cfg, _, err := resolveConfig(cmd)
	if err != nil {
		return nil, err
	}
	storage, err := scheduler.NewSQLiteStorage(cfg.Scheduler.Storage)
	if err != nil {
		return nil, fmt.Errorf("abrindo storage do agendador: %w", err)
	}
	return storage, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
