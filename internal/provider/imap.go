package provider

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"loadwatch-engine/internal/extract"
)

// Mailbox watches an IMAP inbox for load alert emails and turns the HTML
// bodies into table rows. The board emails each new load as a one-row
// table in the same column layout as the listing page, so the same
// extractor handles both.
type Mailbox struct {
	addr     string
	username string
	password string
	mailbox  string

	// subjectAny filters messages; a message is considered when its
	// subject contains any of these (case-insensitive). Empty means all
	// unseen mail is considered.
	subjectAny []string

	maxMessages int
}

func NewMailbox(host string, port int, username, password, mailbox string, subjectAny []string) *Mailbox {
	if mailbox == "" {
		mailbox = "INBOX"
	}
	return &Mailbox{
		addr:        fmt.Sprintf("%s:%d", host, port),
		username:    username,
		password:    password,
		mailbox:     mailbox,
		subjectAny:  subjectAny,
		maxMessages: 50,
	}
}

func (m *Mailbox) Name() string { return "email" }

func (m *Mailbox) Fetch(ctx context.Context) ([]extract.RawRow, error) {
	if m.username == "" || m.password == "" {
		return nil, errors.New("imap username/password is required")
	}

	c, err := imapclient.DialTLS(m.addr, &imapclient.Options{
		TLSConfig: &tls.Config{MinVersion: tls.VersionTLS12},
	})
	if err != nil {
		return nil, fmt.Errorf("imap dial tls: %w", err)
	}
	defer func() {
		if err := c.Logout().Wait(); err != nil {
			log.Printf("[email] logout: %v", err)
		}
		_ = c.Close()
	}()

	// Best-effort close on context cancel; the client has no ctx hooks.
	go func() {
		<-ctx.Done()
		_ = c.Close()
	}()

	if err := c.Login(m.username, m.password).Wait(); err != nil {
		return nil, fmt.Errorf("imap login: %w", err)
	}
	if _, err := c.Select(m.mailbox, &imap.SelectOptions{ReadOnly: false}).Wait(); err != nil {
		return nil, fmt.Errorf("imap select %s: %w", m.mailbox, err)
	}

	msgs, err := m.fetchUnseen(ctx, c)
	if err != nil {
		return nil, err
	}

	var rows []extract.RawRow
	var handled []imap.UID
	for _, msg := range msgs {
		if !m.subjectMatches(msg.subject) {
			continue
		}
		body := htmlBody(msg.raw)
		if body == "" {
			continue
		}
		r, err := extract.RowsFromHTML(body)
		if err != nil {
			log.Printf("[email] uid %d: parse: %v", msg.uid, err)
			continue
		}
		rows = append(rows, r...)
		handled = append(handled, msg.uid)
	}

	// Only messages we actually consumed get flagged, so a crash mid-run
	// re-delivers the rest next cycle.
	if err := markSeen(c, handled); err != nil {
		log.Printf("[email] mark seen: %v", err)
	}

	log.Printf("[email] %d messages -> %d rows", len(handled), len(rows))
	return rows, nil
}

type rawMessage struct {
	uid     imap.UID
	subject string
	raw     []byte
}

func (m *Mailbox) fetchUnseen(ctx context.Context, c *imapclient.Client) ([]rawMessage, error) {
	// Stale alerts are dead loads; don't bother with anything old.
	cutoff := time.Now().AddDate(0, -3, 0)

	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
		Since:   cutoff,
	}
	searchData, err := c.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("imap uid search unseen: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}

	// Newest first.
	for i, j := 0, len(uids)-1; i < j; i, j = i+1, j-1 {
		uids[i], uids[j] = uids[j], uids[i]
	}
	if len(uids) > m.maxMessages {
		uids = uids[:m.maxMessages]
	}

	bodyAll := &imap.FetchItemBodySection{
		Specifier: imap.PartSpecifierNone,
		Peek:      true,
	}
	fetchCmd := c.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:         true,
		Envelope:    true,
		BodySection: []*imap.FetchItemBodySection{bodyAll},
	})
	defer func() { _ = fetchCmd.Close() }()

	out := make([]rawMessage, 0, len(uids))
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		msgData := fetchCmd.Next()
		if msgData == nil {
			break
		}
		buf, err := msgData.Collect()
		if err != nil {
			return nil, fmt.Errorf("imap fetch collect: %w", err)
		}

		var msg rawMessage
		msg.uid = buf.UID
		if buf.Envelope != nil {
			msg.subject = buf.Envelope.Subject
		}
		if b := buf.FindBodySection(bodyAll); b != nil {
			msg.raw = append([]byte(nil), b...)
		}
		out = append(out, msg)
	}
	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("imap fetch close: %w", err)
	}
	return out, nil
}

func (m *Mailbox) subjectMatches(subject string) bool {
	if len(m.subjectAny) == 0 {
		return true
	}
	lower := strings.ToLower(subject)
	for _, want := range m.subjectAny {
		if want != "" && strings.Contains(lower, strings.ToLower(want)) {
			return true
		}
	}
	return false
}

func markSeen(c *imapclient.Client, uids []imap.UID) error {
	if len(uids) == 0 {
		return nil
	}
	cmd := c.Store(imap.UIDSetNum(uids...), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil)
	if err := cmd.Close(); err != nil {
		return fmt.Errorf("imap store add seen: %w", err)
	}
	return nil
}
