package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"loadwatch-engine/internal/config"
	"loadwatch-engine/internal/dedup"
	"loadwatch-engine/internal/domain"
	"loadwatch-engine/internal/enrich"
	"loadwatch-engine/internal/events"
	"loadwatch-engine/internal/extract"
	"loadwatch-engine/internal/notify"
	"loadwatch-engine/internal/poll"
	"loadwatch-engine/internal/provider"
	"loadwatch-engine/internal/secrets"
	"loadwatch-engine/internal/store"
)

func main() {
	// Data dir: env wins so a supervisor can point us somewhere, else a
	// local folder.
	dataDir := os.Getenv("LOADWATCH_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal(err)
	}

	defaultCfgPath := filepath.Join("config", "config.yml")
	userCfgPath, err := config.EnsureUserConfig(dataDir, defaultCfgPath)
	if err != nil {
		log.Fatalf("config bootstrap failed: %v", err)
	}

	cfg, err := config.Load(userCfgPath)
	if err != nil {
		log.Fatalf("config load failed (%s): %v", userCfgPath, err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config invalid (%s): %v", userCfgPath, err)
	}

	dbPath := filepath.Join(dataDir, "loadwatch.db")
	db, err := store.Open(dbPath)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	if err := store.Migrate(db.Pool); err != nil {
		log.Fatal(err)
	}

	seen, err := openDedup(cfg, dataDir, db)
	if err != nil {
		log.Fatalf("dedup store: %v", err)
	}

	hub := events.NewHub()

	deps := poll.Deps{
		Providers:       buildProviders(cfg),
		Extractor:       buildExtractor(cfg),
		Seen:            seen,
		Formatter:       notify.NewFormatter(cfg.Notify.EstimateRatePerMile, cfg.Notify.MaxMessageLen),
		Sink:            buildSink(cfg),
		Archive:         db,
		BatchSummaryAt:  cfg.Notify.BatchSummaryAt,
		ProviderTimeout: time.Duration(cfg.Polling.ProviderTimeoutSeconds) * time.Second,
		OnNewLoad: func(key string, _ domain.LoadRecord) {
			hub.Publish(events.LoadCreated(key))
		},
	}
	if cfg.Enrichment.Enabled {
		deps.Enricher = enrich.New(
			cfg.Board.BaseURL,
			time.Duration(cfg.Enrichment.TimeoutSeconds)*time.Second,
			time.Duration(cfg.Enrichment.DelaySeconds)*time.Second,
		)
	}

	poller := poll.NewPoller(deps,
		time.Duration(cfg.Polling.IntervalSeconds)*time.Second,
		time.Duration(cfg.Polling.BackoffSeconds)*time.Second)
	poller.Start(context.Background())

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(cfg.App.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           newMux(db, hub),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("engine listening on http://%s (db=%s)", addr, dbPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Print("shutting down")

	poller.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
}

func openDedup(cfg config.Config, dataDir string, db *store.DB) (dedup.Store, error) {
	switch cfg.App.DedupBackend {
	case "sqlite":
		return dedup.NewSQLStore(db.Pool), nil
	default:
		return dedup.OpenFileStore(filepath.Join(dataDir, "sent_items.txt"))
	}
}

func buildExtractor(cfg config.Config) *extract.Extractor {
	layout := extract.Layout{}
	for _, e := range cfg.Extraction.Layout {
		layout[e.Column] = extract.Role(e.Role)
	}
	l := cfg.Extraction.Limits
	return extract.New(extract.Options{
		Layout: layout,
		Limits: extract.Limits{
			MilesMin:        l.MilesMin,
			MilesMax:        l.MilesMax,
			MilesClampDigit: l.MilesClampDigit,
			PiecesMin:       l.PiecesMin,
			PiecesMax:       l.PiecesMax,
			WeightMin:       l.WeightMin,
			DisambMilesMin:  l.DisambMilesMin,
			DisambMilesMax:  l.DisambMilesMax,
			DisambPiecesMin: l.DisambPiecesMin,
			DisambPiecesMax: l.DisambPiecesMax,
			DisambWeightMin: l.DisambWeightMin,
		},
		CompanyTermsMarker: cfg.Extraction.CompanyTermsMarker,
		ProfileMarker:      cfg.Extraction.ProfileMarker,
		VehicleKeywords:    cfg.Extraction.VehicleKeywords,
		InstructionTags:    cfg.Extraction.InstructionTags,
	})
}

func buildProviders(cfg config.Config) []provider.Provider {
	var providers []provider.Provider

	if cfg.Board.Enabled {
		cookie := cfg.Board.Cookie
		if cookie == "" && cfg.Board.CookieKeyringAccount != "" {
			v, err := secrets.Get(cfg.Board.CookieKeyringAccount)
			if err != nil {
				log.Printf("[board] cookie from keyring: %v", err)
			} else {
				cookie = v
			}
		}
		b, err := provider.NewBoard(cfg.Board.BaseURL, cfg.Board.URL, cookie)
		if err != nil {
			log.Printf("[board] disabled: %v", err)
		} else {
			providers = append(providers, b)
		}
	}

	if cfg.Email.Enabled {
		password := cfg.Email.AppPassword
		if cfg.Email.UseKeyringPassword {
			account := secrets.IMAPAccount(cfg.Email.Username, cfg.Email.IMAPHost)
			v, err := secrets.Get(account)
			if err != nil {
				log.Printf("[email] password from keyring: %v", err)
			} else {
				password = v
			}
		}
		providers = append(providers, provider.NewMailbox(
			cfg.Email.IMAPHost, cfg.Email.IMAPPort,
			cfg.Email.Username, password,
			cfg.Email.Mailbox, cfg.Email.SubjectAny,
		))
	}

	if len(providers) == 0 {
		log.Print("warning: no providers enabled, nothing will be polled")
	}
	return providers
}

func buildSink(cfg config.Config) notify.Sink {
	tg := cfg.Notify.Telegram
	if !tg.Enabled {
		log.Print("[notify] telegram disabled, logging loads instead")
		return logSink{}
	}
	token := tg.Token
	if token == "" && tg.TokenKeyringAccount != "" {
		v, err := secrets.Get(tg.TokenKeyringAccount)
		if err != nil {
			log.Printf("[notify] token from keyring: %v", err)
		} else {
			token = v
		}
	}
	return notify.NewTelegram(token, tg.ChatID,
		notify.WithSendDelay(time.Duration(tg.SendDelayMS)*time.Millisecond))
}

// logSink stands in when Telegram is off so a dev run still shows what
// would have been sent.
type logSink struct{}

func (logSink) Send(_ context.Context, text string) error {
	fmt.Println("---")
	fmt.Println(text)
	return nil
}
