package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"inatscraper/pkg/auth"
	"inatscraper/pkg/ui"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the optional iNaturalist API token",
	Long: `Manage a stored iNaturalist API token.

Harvesting works without a token. When one is stored it is sent with every
observation query. Tokens are kept in:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - INATSCRAPER_API_TOKEN (read only)`,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store an API token",
	Example: `  # Interactive login
  inatscraper auth login

  # Store under a named profile
  inatscraper auth login --profile field`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored API token",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List stored API tokens",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(statusCmd)

	authCmd.PersistentFlags().StringVar(&profile, "profile", auth.DefaultProfile, "token profile name")
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	auth.ShowTokenGuide(os.Stdout)
	fmt.Println()

	if existing, _ := manager.Retrieve(profile); existing != nil {
		fmt.Printf("A token for profile '%s' already exists. Replace it? (y/N): ", profile)
		reader := bufio.NewReader(os.Stdin)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return nil
		}
	}

	fmt.Print("API token (hidden): ")
	token, err := readSecret()
	if err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}

	cred := &auth.Credential{Profile: profile, Token: token}
	if err := manager.Store(cred); err != nil {
		return err
	}

	ui.PrintSuccess(fmt.Sprintf("Token stored for profile '%s' (%s)", profile, auth.Sanitize(cred).Token))
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	if err := manager.Delete(profile); err != nil {
		return err
	}
	ui.PrintSuccess("Token removed for profile: " + profile)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	creds, err := manager.List()
	if err != nil {
		return err
	}
	if len(creds) == 0 {
		ui.PrintInfo("No stored tokens", "requests are sent anonymously")
		return nil
	}

	ui.PrintHighlight("Stored tokens")
	for _, cred := range creds {
		s := auth.Sanitize(cred)
		ui.PrintInfo(s.Profile, fmt.Sprintf("%s (updated %s)", s.Token, s.LastModified.Format("2006-01-02 15:04")))
	}
	return nil
}

// readSecret reads a line from stdin without echo when stdin is a terminal
func readSecret() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	input, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
