package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/folio-hq/folio/internal/api"
	"github.com/folio-hq/folio/internal/config"
	"github.com/folio-hq/folio/internal/markup"
	"github.com/folio-hq/folio/internal/portfolio"
)

// --- portfolio ---

var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Manage portfolios",
}

var portfolioInitCmd = &cobra.Command{
	Use:   "init <username>",
	Short: "Create a portfolio (no-op if it already exists)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		result, err := initPortfolio(cmd.Context(), client, args[0], email)
		if err != nil {
			return err
		}
		if result.Created {
			printSuccess("Created portfolio %s", result.Portfolio.Username)
		} else {
			printWarning("Portfolio %s already exists", result.Portfolio.Username)
		}
		return nil
	},
}

var portfolioShowCmd = &cobra.Command{
	Use:   "show <username>",
	Short: "Show a portfolio as it is served publicly",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		p, err := fetchPortfolio(cmd.Context(), client, args[0])
		if err != nil {
			return err
		}
		return writePortfolio(os.Stdout, p, format)
	},
}

var portfolioImportCmd = &cobra.Command{
	Use:   "import <username> <file>",
	Short: "Update a portfolio from a YAML or JSON file",
	Long: `Update a portfolio from a YAML or JSON file.

Only the fields present in the file are changed. Identity fields
(username, email) are ignored.

Examples:
  folio portfolio import ada ./ada.yaml
  folio portfolio import ada ./ada.json --email ada@example.com`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		username, path := args[0], args[1]
		email, _ := cmd.Flags().GetString("email")

		patch, err := readPatchFile(path)
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		if email != "" {
			if _, err := initPortfolio(cmd.Context(), client, username, email); err != nil {
				return err
			}
		}
		if _, err := updatePortfolio(cmd.Context(), client, username, patch); err != nil {
			return err
		}

		printSuccess("Imported %d fields into %s", len(patch.Fields()), username)
		return nil
	},
}

var portfolioSetKeyCmd = &cobra.Command{
	Use:   "set-key <username> <openrouter-api-key>",
	Short: "Store the OpenRouter API key used by a portfolio's assistant",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := strings.TrimSpace(args[1])
		if key == "" {
			return fmt.Errorf("API key must not be empty")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		if _, err := updatePortfolio(cmd.Context(), client, args[0], portfolio.Patch{OpenRouterAPIKey: &key}); err != nil {
			return err
		}
		printSuccess("API key set for %s", args[0])
		return nil
	},
}

var portfolioContextCmd = &cobra.Command{
	Use:   "context <username>",
	Short: "Print the assistant's system prompt for a portfolio",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		text, err := fetchContext(cmd.Context(), client, args[0])
		if err != nil {
			return err
		}
		fmt.Println(text)
		return nil
	},
}

func init() {
	portfolioInitCmd.Flags().String("email", "", "owner email")
	portfolioInitCmd.MarkFlagRequired("email")
	portfolioShowCmd.Flags().String("format", "json", "output format: json or yaml")
	portfolioImportCmd.Flags().String("email", "", "create the portfolio with this email first if it does not exist")

	portfolioCmd.AddCommand(portfolioInitCmd)
	portfolioCmd.AddCommand(portfolioShowCmd)
	portfolioCmd.AddCommand(portfolioImportCmd)
	portfolioCmd.AddCommand(portfolioSetKeyCmd)
	portfolioCmd.AddCommand(portfolioContextCmd)
}

func initPortfolio(ctx context.Context, c *apiClient, username, email string) (api.PortfolioResponse, error) {
	resp, err := c.post(ctx, "/api/portfolios", api.InitRequest{Username: username, Email: email})
	if err != nil {
		return api.PortfolioResponse{}, err
	}
	var result api.PortfolioResponse
	if err := decodeJSON(resp, &result); err != nil {
		return api.PortfolioResponse{}, err
	}
	return result, nil
}

func fetchPortfolio(ctx context.Context, c *apiClient, username string) (portfolio.Portfolio, error) {
	resp, err := c.get(ctx, portfolioPath(username))
	if err != nil {
		return portfolio.Portfolio{}, err
	}
	var result api.PortfolioResponse
	if err := decodeJSON(resp, &result); err != nil {
		return portfolio.Portfolio{}, err
	}
	return result.Portfolio, nil
}

func updatePortfolio(ctx context.Context, c *apiClient, username string, patch portfolio.Patch) (portfolio.Portfolio, error) {
	resp, err := c.patch(ctx, portfolioPath(username), patch)
	if err != nil {
		return portfolio.Portfolio{}, err
	}
	var result api.PortfolioResponse
	if err := decodeJSON(resp, &result); err != nil {
		return portfolio.Portfolio{}, err
	}
	return result.Portfolio, nil
}

func fetchContext(ctx context.Context, c *apiClient, username string) (string, error) {
	resp, err := c.get(ctx, portfolioPath(username, "context"))
	if err != nil {
		return "", err
	}
	var result api.ContextResponse
	if err := decodeJSON(resp, &result); err != nil {
		return "", err
	}
	return result.Context, nil
}

// readPatchFile parses a YAML document (JSON is accepted as YAML) into the
// updatable portfolio fields.
func readPatchFile(path string) (portfolio.Patch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return portfolio.Patch{}, fmt.Errorf("reading file: %w", err)
	}
	var patch portfolio.Patch
	if err := yaml.Unmarshal(data, &patch); err != nil {
		return portfolio.Patch{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	if patch.IsEmpty() {
		return portfolio.Patch{}, fmt.Errorf("no portfolio fields found in %s", path)
	}
	return patch, nil
}

func writePortfolio(w io.Writer, p portfolio.Portfolio, format string) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(p); err != nil {
			return err
		}
		return enc.Close()
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	default:
		return fmt.Errorf("unknown format %q: want json or yaml", format)
	}
}

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat <username> <message>",
	Short: "Ask a portfolio's assistant a question",
	Long: `Ask a portfolio's assistant a question.

Examples:
  folio chat ada "What is Ada known for?"
  folio chat ada which projects are listed --plain`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		plain, _ := cmd.Flags().GetBool("plain")
		message := strings.Join(args[1:], " ")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		reply, err := sendChat(cmd.Context(), client, args[0], message)
		if err != nil {
			return err
		}
		if plain {
			fmt.Println(markup.Strip(reply))
		} else {
			fmt.Println(renderReply(reply))
		}
		return nil
	},
}

func init() {
	chatCmd.Flags().Bool("plain", false, "strip bold and link markers from the reply")
}

func sendChat(ctx context.Context, c *apiClient, username, message string) (string, error) {
	resp, err := c.post(ctx, portfolioPath(username, "chat"), api.PortfolioChatRequest{Message: message})
	if err != nil {
		return "", err
	}
	var result api.ChatResponse
	if err := decodeJSON(resp, &result); err != nil {
		return "", err
	}
	return result.Response, nil
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s  %s\n", colorize(colorBold, k.Key), k.Value, colorize(colorCyan, "$"+k.EnvVar))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: "Set a configuration value.\n\nValid keys:\n  " +
		strings.Join(config.ValidKeys(), "\n  "),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configSetSecretCmd = &cobra.Command{
	Use:   "set-secret <key> <value>",
	Short: "Store a secret (storage.mongo_uri) in the secrets file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetSecret(args[0], args[1]); err != nil {
			return err
		}
		printSuccess("Stored secret %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configSetSecretCmd)
}
