package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

var validRoles = map[string]bool{
	"company_terms":   true,
	"vehicle_load_id": true,
	"vehicle_miles":   true,
	"pieces_weight":   true,
}

func Validate(cfg Config) error {
	var errs []string

	if cfg.App.Port <= 0 || cfg.App.Port > 65535 {
		errs = append(errs, "app.port must be 1..65535")
	}
	if cfg.App.DedupBackend != "file" && cfg.App.DedupBackend != "sqlite" {
		errs = append(errs, "app.dedup_backend must be file or sqlite")
	}
	if cfg.Polling.IntervalSeconds <= 0 {
		errs = append(errs, "polling.interval_seconds must be > 0")
	}

	seen := map[int]bool{}
	for i, e := range cfg.Extraction.Layout {
		if e.Column < 0 {
			errs = append(errs, fmt.Sprintf("extraction.layout[%d].column must be >= 0", i))
		}
		if !validRoles[e.Role] {
			errs = append(errs, fmt.Sprintf("extraction.layout[%d].role %q is not a known role", i, e.Role))
		}
		if seen[e.Column] {
			errs = append(errs, fmt.Sprintf("extraction.layout[%d] duplicates column %d", i, e.Column))
		}
		seen[e.Column] = true
	}

	lim := cfg.Extraction.Limits
	if lim.MilesMin != 0 && lim.MilesMax != 0 && lim.MilesMin > lim.MilesMax {
		errs = append(errs, "extraction.limits.miles_min must not exceed miles_max")
	}
	if lim.DisambMilesMin != 0 && lim.DisambMilesMax != 0 && lim.DisambMilesMin > lim.DisambMilesMax {
		errs = append(errs, "extraction.limits.disamb_miles_min must not exceed disamb_miles_max")
	}

	if cfg.Board.Enabled && cfg.Board.URL == "" {
		errs = append(errs, "board.url is required when board.enabled")
	}
	if cfg.Email.Enabled {
		if cfg.Email.IMAPHost == "" || cfg.Email.Username == "" {
			errs = append(errs, "email.imap_host and email.username are required when email.enabled")
		}
	}
	if cfg.Notify.Telegram.Enabled && cfg.Notify.Telegram.ChatID == "" {
		errs = append(errs, "notify.telegram.chat_id is required when telegram.enabled")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n- " + joinLines(errs))
	}
	return nil
}

func SaveAtomic(path string, cfg Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}

	b, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	bak := path + ".bak"

	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}

	_ = os.Remove(bak)
	_ = os.Rename(path, bak)

	return os.Rename(tmp, path)
}

func joinLines(lines []string) string {
	out := ""
	for i, s := range lines {
		if i > 0 {
			out += "\n- "
		}
		out += s
	}
	return out
}
