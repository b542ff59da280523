package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/amberlabs/amber/pkg/amber/bot"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// newSetupCmd cria o comando `amber setup`, o assistente interativo de
// primeira configuração.
func newSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Configura a Amber pela primeira vez",
		Long: `Guia interativo de configuração: pergunta o nome da assistente,
o número autorizado, a chave de API e o modelo, grava a chave no
chaveiro do sistema e escreve o arquivo amber.yaml.`,
		RunE: runSetup,
	}
}

func runSetup(cmd *cobra.Command, _ []string) error {
	cfg := bot.DefaultConfig()

	var (
		allowedNumber string
		apiKey        string
		useKeyring    = true
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Nome da assistente").
				Description("Como ela vai se apresentar nas conversas.").
				Value(&cfg.Name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("o nome não pode ficar vazio")
					}
					return nil
				}),
			huh.NewInput().
				Title("Seu número do WhatsApp").
				Description("Somente dígitos, com DDI (ex: 5511912345678). Vazio libera para qualquer número.").
				Value(&allowedNumber),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Chave de API").
				Description("Chave da API de linguagem (OpenAI ou compatível).").
				EchoMode(huh.EchoModePassword).
				Value(&apiKey).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("a chave de API é obrigatória")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Modelo de linguagem").
				Options(
					huh.NewOption("gpt-4o-mini (recomendado)", "gpt-4o-mini"),
					huh.NewOption("gpt-4o", "gpt-4o"),
					huh.NewOption("gpt-4.1-mini", "gpt-4.1-mini"),
				).
				Value(&cfg.LLM.Model),
			huh.NewConfirm().
				Title("Guardar a chave no chaveiro do sistema?").
				Description("Se não, a chave fica no amber.yaml como ${AMBER_API_KEY}.").
				Value(&useKeyring),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("configuração cancelada: %w", err)
	}

	if n := strings.TrimSpace(allowedNumber); n != "" {
		cfg.Access.AllowedNumbers = []string{n}
	}

	out := cmd.OutOrStdout()

	if useKeyring && bot.KeyringAvailable() {
		if err := bot.StoreAPIKey(apiKey); err != nil {
			return fmt.Errorf("gravando chave no chaveiro: %w", err)
		}
		cfg.LLM.APIKey = ""
		fmt.Fprintln(out, "Chave gravada no chaveiro do sistema.")
	} else {
		if useKeyring {
			fmt.Fprintln(out, "Chaveiro indisponível; usando variável de ambiente.")
		}
		cfg.LLM.APIKey = "${AMBER_API_KEY}"
		fmt.Fprintln(out, "Defina AMBER_API_KEY no ambiente ou num arquivo .env ao lado do amber.yaml.")
	}

	path := "amber.yaml"
	if flagPath, _ := cmd.Root().PersistentFlags().GetString("config"); flagPath != "" {
		path = flagPath
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s já existe; remova-o ou use --config para outro caminho", path)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("serializando configuração: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("escrevendo %s: %w", path, err)
	}

	abs, _ := filepath.Abs(path)
	fmt.Fprintf(out, "\nConfiguração salva em %s.\nRode 'amber serve' e escaneie o QR code para conectar o WhatsApp.\n", abs)
	return nil
}
