package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/mrz1836/addrsync/internal/config"
	"github.com/mrz1836/addrsync/internal/seedstore"
	syncerr "github.com/mrz1836/addrsync/pkg/errors"
)

// promptMnemonicFn reads the mnemonic when ADDRSYNC_MNEMONIC is unset.
// Tests replace it.
//
//nolint:gochecknoglobals // replaced in tests
var promptMnemonicFn = promptMnemonic

// promptMnemonic reads a mnemonic from stdin, hiding input on a terminal.
func promptMnemonic() (string, error) {
	out(os.Stderr, "Enter mnemonic phrase: ")

	fd := int(os.Stdin.Fd()) //nolint:gosec // G115: Fd() fits in int on supported platforms
	if term.IsTerminal(fd) {
		phrase, err := term.ReadPassword(fd)
		outln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading mnemonic: %w", err)
		}
		return string(phrase), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading mnemonic: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// loadSeedStore builds the seed store for a command. A non-empty xpub
// selects a watch-only store; otherwise the mnemonic comes from the
// environment or a prompt.
func loadSeedStore(cc *CommandContext, xpub string) (seedstore.SeedStore, error) {
	opts := seedstore.Options{
		CoinType: cc.Cfg.Sync.CoinType,
		Account:  cc.Cfg.Sync.Account,
		Metrics:  cc.Metrics,
	}

	if xpub = strings.TrimSpace(xpub); xpub != "" {
		opts.ExtendedKey = xpub
		return seedstore.New(seedstore.KindWatchOnly, opts)
	}

	mnemonic := os.Getenv(config.EnvMnemonic)
	if mnemonic == "" {
		var err error
		if mnemonic, err = promptMnemonicFn(); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(mnemonic) == "" {
		return nil, syncerr.WithSuggestion(syncerr.ErrInvalidMnemonic,
			fmt.Sprintf("set %s or pass --xpub for a watch-only account", config.EnvMnemonic))
	}

	opts.Mnemonic = mnemonic
	opts.Passphrase = os.Getenv(config.EnvPassphrase)
	return seedstore.New(seedstore.KindKeychain, opts)
}
