package secrets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService groups this app's secrets in the OS keychain.
	KeyringService = "loadwatch"
)

func Get(account string) (string, error) {
	if strings.TrimSpace(account) == "" {
		return "", errors.New("keyring account name is empty")
	}
	v, err := keyring.Get(KeyringService, account)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("keyring entry %q is empty", account)
	}
	return v, nil
}

func Set(account, value string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(value) == "" {
		return errors.New("secret value is empty")
	}
	return keyring.Set(KeyringService, account, value)
}

func Delete(account string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(KeyringService, account)
}

// Account helpers keep the naming scheme in one place.

func IMAPAccount(username, host string) string {
	return fmt.Sprintf("loadwatch:imap:%s@%s", username, host)
}

func TelegramAccount(chatID string) string {
	return fmt.Sprintf("loadwatch:telegram:%s", chatID)
}

func BoardCookieAccount(baseURL string) string {
	return fmt.Sprintf("loadwatch:board:%s", baseURL)
}
