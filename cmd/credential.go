package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/auth"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/credential"
)

var credentialCmd = &cobra.Command{
	Use:   "credential",
	Short: "Branch operator credential tools",
}

var hashCmd = &cobra.Command{
	Use:   "hash [password]",
	Short: "Print a bcrypt hash for the credential file",
	Long:  `Hash a password for the "password" field of a credential record. Reads stdin when no argument is given.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password := ""
		if len(args) == 1 {
			password = args[0]
		} else {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read password: %w", err)
			}
			password = strings.TrimRight(line, "\r\n")
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Validate a credential file",
	Long:  `Load a credential file and list each operator with its branch location. Secrets are never printed.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "./data/users.json"
		if len(args) == 1 {
			path = args[0]
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		creds, err := credential.ParseFile(data)
		if err != nil {
			return err
		}
		if _, err := credential.NewMemoryStore(path, creds); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		incomplete := 0
		for _, c := range creds {
			state := "ok"
			if _, err := c.Identity(); err != nil {
				state = "incomplete"
				incomplete++
			}
			fmt.Fprintf(out, "%-24s location=%-6d %s\n", c.Username, c.LocationID, state)
		}
		fmt.Fprintf(out, "%d records, %d incomplete\n", len(creds), incomplete)
		return nil
	},
}

func init() {
	credentialCmd.AddCommand(hashCmd)
	credentialCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(credentialCmd)
}
