package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"igvision/pkg/auth"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Apify and Google Cloud Vision credentials",
	Long: `Manage stored credentials.

Credentials are stored using, in order of preference:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read only)

Never share your credentials or config files!`,
}

var loginCmd = &cobra.Command{
	Use:   "login [profile]",
	Short: "Store credentials under a profile",
	Long: `Store an Apify API token and, optionally, the path to a Google Cloud
service account key file under a profile (default: "default").

The token is read without echo. Leave the key file empty to use
Application Default Credentials.`,
	Example: `  igvision auth login
  igvision auth login work`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout [profile]",
	Short: "Remove a stored profile",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLogout,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored profiles",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)
}

func profileArg(args []string) string {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return strings.TrimSpace(args[0])
	}
	return auth.DefaultProfile
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	out := cmd.OutOrStdout()
	printer := newPrinter(out, !noColor)
	reader := bufio.NewReader(cmd.InOrStdin())
	profile := profileArg(args)

	if existing, _ := manager.Retrieve(profile); existing != nil {
		answer, err := promptString(reader, out, fmt.Sprintf("Profile '%s' already exists. Update it? (y/N)", profile))
		if err != nil {
			return err
		}
		if !strings.HasPrefix(strings.ToLower(answer), "y") {
			return nil
		}
	}

	fmt.Fprint(out, "Apify API token (hidden): ")
	token, err := readSecret(reader)
	if err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}
	fmt.Fprintln(out)

	keyFile, err := promptString(reader, out, "Google Cloud key file (empty for default credentials)")
	if err != nil {
		return err
	}

	creds := &auth.Credentials{
		Profile:               profile,
		ApifyToken:            token,
		VisionCredentialsFile: keyFile,
	}
	if err := manager.Store(creds); err != nil {
		return err
	}

	sanitized := auth.Sanitize(creds)
	printer.Success("Credentials stored for profile: " + profile)
	printer.Info("Apify token", sanitized.ApifyToken)
	if keyFile != "" {
		printer.Info("Vision key file", keyFile)
	}
	fmt.Fprintf(out, "\nStart a run with:\n  igvision run <username> --profile %s\n", profile)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	profile := profileArg(args)
	if err := manager.Delete(profile); err != nil {
		return err
	}
	newPrinter(cmd.OutOrStdout(), !noColor).Success("Profile removed: " + profile)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	profiles, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list profiles: %w", err)
	}

	out := cmd.OutOrStdout()
	printer := newPrinter(out, !noColor)
	if len(profiles) == 0 {
		printer.Info("No stored profiles", "use 'igvision auth login' to add one")
		return nil
	}

	for i, creds := range profiles {
		sanitized := auth.Sanitize(creds)
		fmt.Fprintf(out, "%d. %s\n", i+1, sanitized.Profile)
		fmt.Fprintf(out, "   Apify token: %s\n", sanitized.ApifyToken)
		if sanitized.VisionCredentialsFile != "" {
			fmt.Fprintf(out, "   Vision key file: %s\n", sanitized.VisionCredentialsFile)
		}
		fmt.Fprintf(out, "   Last modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// readSecret reads a line without echo when stdin is a terminal
func readSecret(r *bufio.Reader) (string, error) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		secret, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}

	input, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
