package ai

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	yaml "go.yaml.in/yaml/v3"
)

// KnowledgeItem is one piece of business context handed to the model.
type KnowledgeItem struct {
	Category string `yaml:"category" json:"category"`
	Title    string `yaml:"title" json:"title"`
	Content  string `yaml:"content" json:"content"`
}

type knowledgeFile struct {
	Items []KnowledgeItem `yaml:"items"`
}

var categoryLabels = map[string]string{
	"products":   "PRODUCTS & SERVICES",
	"objections": "COMMON OBJECTIONS & RESPONSES",
	"faq":        "FREQUENTLY ASKED QUESTIONS",
	"tone":       "COMMUNICATION STYLE & TONE",
	"general":    "GENERAL BUSINESS INFO",
}

// KnowledgeBase holds knowledge items loaded from a YAML file. A nil
// *KnowledgeBase is valid and empty.
type KnowledgeBase struct {
	mu    sync.RWMutex
	path  string
	items []KnowledgeItem
	log   zerolog.Logger
}

// NewKnowledgeBase builds a base from in-memory items.
func NewKnowledgeBase(items []KnowledgeItem) *KnowledgeBase {
	return &KnowledgeBase{items: items, log: zerolog.Nop()}
}

// LoadKnowledge reads path. Call Watch to pick up later edits.
func LoadKnowledge(path string, log zerolog.Logger) (*KnowledgeBase, error) {
	k := &KnowledgeBase{path: path, log: log.With().Str("component", "knowledge").Logger()}
	if err := k.Reload(); err != nil {
		return nil, err
	}
	return k, nil
}

func (k *KnowledgeBase) Reload() error {
	b, err := os.ReadFile(k.path)
	if err != nil {
		return fmt.Errorf("read knowledge file: %w", err)
	}
	var f knowledgeFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("parse knowledge file %s: %w", k.path, err)
	}
	items := make([]KnowledgeItem, 0, len(f.Items))
	for _, it := range f.Items {
		it.Category = strings.ToLower(strings.TrimSpace(it.Category))
		if it.Category == "" {
			it.Category = "general"
		}
		if strings.TrimSpace(it.Title) == "" && strings.TrimSpace(it.Content) == "" {
			continue
		}
		items = append(items, it)
	}
	k.mu.Lock()
	k.items = items
	k.mu.Unlock()
	k.log.Info().Int("items", len(items)).Msg("knowledge loaded")
	return nil
}

// Watch reloads the file when it changes until ctx is done. The directory is
// watched so editors that replace the file are seen too.
func (k *KnowledgeBase) Watch(ctx context.Context) error {
	dir, file := filepath.Dir(k.path), filepath.Base(k.path)
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	// debounce partial writes
	var (
		timerMu sync.Mutex
		timer   *time.Timer
		stopped bool
	)
	defer func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		stopped = true
		if timer != nil {
			timer.Stop()
		}
	}()
	reload := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(250*time.Millisecond, func() {
			timerMu.Lock()
			done := stopped
			timerMu.Unlock()
			if done {
				return
			}
			if err := k.Reload(); err != nil {
				k.log.Warn().Err(err).Msg("knowledge reload failed, keeping previous items")
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) == file && ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				reload()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			k.log.Warn().Err(err).Msg("knowledge watcher error")
		}
	}
}

func (k *KnowledgeBase) Items() []KnowledgeItem {
	if k == nil {
		return nil
	}
	k.mu.RLock()
	defer k.mu.RUnlock()
	return append([]KnowledgeItem(nil), k.items...)
}

// Context renders the items grouped by category in first-seen order, ready
// to be embedded in a prompt. Empty when there are no items.
func (k *KnowledgeBase) Context() string {
	items := k.Items()
	if len(items) == 0 {
		return ""
	}
	var order []string
	groups := map[string][]KnowledgeItem{}
	for _, it := range items {
		if _, seen := groups[it.Category]; !seen {
			order = append(order, it.Category)
		}
		groups[it.Category] = append(groups[it.Category], it)
	}

	var b strings.Builder
	b.WriteString("\n\n=== BUSINESS KNOWLEDGE BASE ===\n")
	for _, cat := range order {
		label, ok := categoryLabels[cat]
		if !ok {
			label = strings.ToUpper(cat)
		}
		fmt.Fprintf(&b, "\n--- %s ---\n", label)
		for _, it := range groups[cat] {
			fmt.Fprintf(&b, "\n**%s**\n%s\n", it.Title, it.Content)
		}
	}
	return b.String()
}
