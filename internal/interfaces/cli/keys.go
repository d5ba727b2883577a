package cli

import (
	"bufio"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gorilla/securecookie"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

func newKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "Generate HOLD_HASH_KEY and HOLD_BLOCK_KEY values (base64)",
		RunE: func(cmd *cobra.Command, args []string) error {
			hash := securecookie.GenerateRandomKey(32)
			block := securecookie.GenerateRandomKey(32)
			if hash == nil || block == nil {
				return errors.New("could not read random bytes")
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "export HOLD_HASH_KEY=%s\n", base64.StdEncoding.EncodeToString(hash))
			fmt.Fprintf(out, "export HOLD_BLOCK_KEY=%s\n", base64.StdEncoding.EncodeToString(block))
			return nil
		},
	}
}

func newHashKeyCmd() *cobra.Command {
	var key string
	c := &cobra.Command{
		Use:   "hash-key",
		Short: "Hash an admin API key for ADMIN_KEY_HASH (reads stdin when --key is empty)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if key == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read key: %w", err)
				}
				key = strings.TrimSpace(line)
			}
			if key == "" {
				return errors.New("empty key")
			}
			h, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "export ADMIN_KEY_HASH='%s'\n", h)
			return nil
		},
	}
	c.Flags().StringVar(&key, "key", "", "admin API key")
	return c
}
