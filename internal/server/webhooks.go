package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"caseline/internal/config"
	"caseline/internal/domain"
	"caseline/internal/engine"
)

const (
	defaultWebhookInterval = 2 * time.Second
	defaultWebhookTimeout  = 5 * time.Second
	defaultWebhookBatch    = 100
)

// webhookDispatcher tails the audit log and posts new entries to the
// configured endpoints. Each hook keeps its own cursor; delivery stops at
// the first failure and retries the same entry on the next tick, so order
// is preserved per hook.
type webhookDispatcher struct {
	engine   engine.Engine
	webhooks []config.WebhookConfig
	client   *http.Client
	mu       sync.Mutex
	cursors  map[int]int64
}

func StartWebhookDispatcher(e engine.Engine) {
	if e.Config == nil || len(e.Config.Webhooks) == 0 {
		return
	}
	d := &webhookDispatcher{
		engine:   e,
		webhooks: e.Config.Webhooks,
		client:   &http.Client{Timeout: defaultWebhookTimeout},
		cursors:  make(map[int]int64),
	}
	go d.run()
}

func (d *webhookDispatcher) run() {
	ticker := time.NewTicker(defaultWebhookInterval)
	defer ticker.Stop()
	for {
		d.dispatchAll()
		<-ticker.C
	}
}

func (d *webhookDispatcher) dispatchAll() {
	for i, hook := range d.webhooks {
		if hook.Enabled != nil && !*hook.Enabled {
			continue
		}
		if strings.TrimSpace(hook.URL) == "" {
			continue
		}
		d.dispatchWebhook(i, hook)
	}
}

func (d *webhookDispatcher) dispatchWebhook(idx int, hook config.WebhookConfig) {
	ctx := context.Background()
	cursor := d.cursorFor(idx)
	entries, err := d.engine.Repo.AuditEntriesAfter(ctx, defaultWebhookBatch, cursor)
	if err != nil {
		log.Printf("webhook: fetch audit entries failed: %v", err)
		return
	}
	if len(entries) == 0 {
		return
	}
	filter := newStatusFilter(hook.Statuses)
	for _, entry := range entries {
		if !filter.match(entry.ToStatus) {
			d.setCursor(idx, entry.ID)
			continue
		}
		if err := d.postEntry(ctx, hook, entry); err != nil {
			log.Printf("webhook: deliver to %s failed: %v", hook.URL, err)
			return
		}
		d.setCursor(idx, entry.ID)
	}
}

func (d *webhookDispatcher) cursorFor(idx int) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cur, ok := d.cursors[idx]; ok {
		return cur
	}
	// New hooks start at the tip; only entries written after startup are
	// delivered.
	cur, err := d.engine.Repo.LatestAuditID(context.Background())
	if err != nil {
		log.Printf("webhook: init cursor failed: %v", err)
		cur = 0
	}
	d.cursors[idx] = cur
	return cur
}

func (d *webhookDispatcher) setCursor(idx int, value int64) {
	d.mu.Lock()
	d.cursors[idx] = value
	d.mu.Unlock()
}

type webhookEvent struct {
	ID          int64   `json:"id"`
	CaseID      string  `json:"case_id"`
	FromStatus  *string `json:"from_status,omitempty"`
	ToStatus    string  `json:"to_status"`
	PerformedBy string  `json:"performed_by"`
	Note        string  `json:"note,omitempty"`
	TS          string  `json:"ts"`
}

func (d *webhookDispatcher) postEntry(ctx context.Context, hook config.WebhookConfig, entry domain.AuditEntry) error {
	body := webhookEvent{
		ID:          entry.ID,
		CaseID:      entry.CaseID,
		FromStatus:  entry.FromStatus,
		ToStatus:    entry.ToStatus,
		PerformedBy: entry.PerformedBy,
		Note:        entry.Note,
		TS:          entry.TS,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	timeout := defaultWebhookTimeout
	if hook.TimeoutSeconds > 0 {
		timeout = time.Duration(hook.TimeoutSeconds) * time.Second
	}
	client := d.client
	if timeout != d.client.Timeout {
		client = &http.Client{Timeout: timeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Caseline-Status", entry.ToStatus)
	req.Header.Set("X-Caseline-Delivery", fmt.Sprintf("%d", entry.ID))
	req.Header.Set("X-Caseline-Case", entry.CaseID)
	if strings.TrimSpace(hook.Secret) != "" {
		req.Header.Set("X-Caseline-Secret", hook.Secret)
	}
	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("status %d: %s", res.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}
	return nil
}

type statusFilter struct {
	all bool
	set map[string]struct{}
}

func newStatusFilter(statuses []string) statusFilter {
	if len(statuses) == 0 {
		return statusFilter{all: true}
	}
	set := make(map[string]struct{}, len(statuses))
	for _, s := range statuses {
		key := strings.TrimSpace(s)
		if key == "" {
			continue
		}
		set[key] = struct{}{}
	}
	if len(set) == 0 {
		return statusFilter{all: true}
	}
	return statusFilter{set: set}
}

func (f statusFilter) match(status string) bool {
	if f.all {
		return true
	}
	_, ok := f.set[status]
	return ok
}
