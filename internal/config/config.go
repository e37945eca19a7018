package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// LayoutEntry maps a table column index to the semantic role it carries on
// the vendor's board layout. Kept as data so format drift is a config edit,
// not a code change.
type LayoutEntry struct {
	Column int    `yaml:"column"`
	Role   string `yaml:"role"`
}

// Limits are the numeric plausibility thresholds used by the extractor. The
// defaults are tuned to this vendor's typical load sizes; they will
// misclassify legitimate outliers and are deliberately not "fixed" here.
type Limits struct {
	MilesMin        int `yaml:"miles_min"`
	MilesMax        int `yaml:"miles_max"`
	MilesClampDigit int `yaml:"miles_clamp_digits"`
	PiecesMin       int `yaml:"pieces_min"`
	PiecesMax       int `yaml:"pieces_max"`
	WeightMin       int `yaml:"weight_min"`

	// Bare-numeric-cell disambiguation ranges.
	DisambMilesMin  int `yaml:"disamb_miles_min"`
	DisambMilesMax  int `yaml:"disamb_miles_max"`
	DisambPiecesMin int `yaml:"disamb_pieces_min"`
	DisambPiecesMax int `yaml:"disamb_pieces_max"`
	DisambWeightMin int `yaml:"disamb_weight_min"`
}

type Config struct {
	App struct {
		Port    int    `yaml:"port"`
		DataDir string `yaml:"data_dir"`
		// DedupBackend is "file" (newline-delimited seen file) or "sqlite"
		// (rides the archive database).
		DedupBackend string `yaml:"dedup_backend"`
	} `yaml:"app"`

	Polling struct {
		IntervalSeconds        int `yaml:"interval_seconds"`
		BackoffSeconds         int `yaml:"backoff_seconds"`
		ProviderTimeoutSeconds int `yaml:"provider_timeout_seconds"`
	} `yaml:"polling"`

	Board struct {
		Enabled bool   `yaml:"enabled"`
		BaseURL string `yaml:"base_url"`
		URL     string `yaml:"url"`
		// Cookie may be set inline for development; the keyring account is
		// preferred.
		Cookie               string `yaml:"cookie"`
		CookieKeyringAccount string `yaml:"cookie_keyring_account"`
	} `yaml:"board"`

	Email struct {
		Enabled            bool     `yaml:"enabled"`
		IMAPHost           string   `yaml:"imap_host"`
		IMAPPort           int      `yaml:"imap_port"`
		Username           string   `yaml:"username"`
		AppPassword        string   `yaml:"app_password"`
		UseKeyringPassword bool     `yaml:"use_keyring_password"`
		Mailbox            string   `yaml:"mailbox"`
		SubjectAny         []string `yaml:"search_subject_any"`
	} `yaml:"email"`

	Extraction struct {
		Layout             []LayoutEntry `yaml:"layout"`
		Limits             Limits        `yaml:"limits"`
		CompanyTermsMarker string        `yaml:"company_terms_marker"`
		ProfileMarker      string        `yaml:"profile_marker"`
		VehicleKeywords    []string      `yaml:"vehicle_keywords"`
		InstructionTags    []string      `yaml:"instruction_tags"`
	} `yaml:"extraction"`

	Enrichment struct {
		Enabled        bool `yaml:"enabled"`
		TimeoutSeconds int  `yaml:"timeout_seconds"`
		DelaySeconds   int  `yaml:"delay_seconds"`
	} `yaml:"enrichment"`

	Notify struct {
		BatchSummaryAt      int     `yaml:"batch_summary_at"`
		EstimateRatePerMile float64 `yaml:"estimate_rate_per_mile"`
		MaxMessageLen       int     `yaml:"max_message_len"`

		Telegram struct {
			Enabled             bool   `yaml:"enabled"`
			Token               string `yaml:"token"`
			TokenKeyringAccount string `yaml:"token_keyring_account"`
			ChatID              string `yaml:"chat_id"`
			SendDelayMS         int    `yaml:"send_delay_ms"`
		} `yaml:"telegram"`
	} `yaml:"notify"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.Port == 0 {
		cfg.App.Port = 38472
	}
	if cfg.App.DedupBackend == "" {
		cfg.App.DedupBackend = "file"
	}
	if cfg.Polling.IntervalSeconds == 0 {
		cfg.Polling.IntervalSeconds = 90
	}
	if cfg.Polling.BackoffSeconds == 0 {
		cfg.Polling.BackoffSeconds = 60
	}
	if cfg.Polling.ProviderTimeoutSeconds == 0 {
		cfg.Polling.ProviderTimeoutSeconds = 60
	}
	if cfg.Email.IMAPPort == 0 {
		cfg.Email.IMAPPort = 993
	}
	if cfg.Email.Mailbox == "" {
		cfg.Email.Mailbox = "INBOX"
	}
	if cfg.Enrichment.TimeoutSeconds == 0 {
		cfg.Enrichment.TimeoutSeconds = 12
	}
	if cfg.Enrichment.DelaySeconds == 0 {
		cfg.Enrichment.DelaySeconds = 2
	}
	if cfg.Notify.BatchSummaryAt == 0 {
		cfg.Notify.BatchSummaryAt = 5
	}
	if cfg.Notify.EstimateRatePerMile == 0 {
		cfg.Notify.EstimateRatePerMile = 0.75
	}
	if cfg.Notify.MaxMessageLen == 0 {
		cfg.Notify.MaxMessageLen = 4096
	}
	if cfg.Notify.Telegram.SendDelayMS == 0 {
		cfg.Notify.Telegram.SendDelayMS = 1000
	}
}
