package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/unclebandit/partnerline/internal/ai"
	"github.com/unclebandit/partnerline/internal/model"
)

type ContactStatus string

const (
	NeverContacted ContactStatus = "never_contacted"
	AwaitingReply  ContactStatus = "awaiting_reply"
	NeedsResponse  ContactStatus = "needs_response"
)

const (
	DefaultPoolCap     = 30
	MaxRecommendations = 5
	recentExcerpts     = 3
)

type MessageExcerpt struct {
	Direction model.Direction `json:"direction"`
	Body      string          `json:"body"`
}

// CandidateSnapshot is what the ranker sees of one partner.
type CandidateSnapshot struct {
	PartnerID        int64            `json:"id"`
	Name             string           `json:"name"`
	Company          string           `json:"company"`
	Region           string           `json:"region,omitempty"`
	Status           ContactStatus    `json:"status"`
	DaysSinceContact *int             `json:"days_since_contact"`
	LastDirection    model.Direction  `json:"last_direction,omitempty"`
	RecentMessages   []MessageExcerpt `json:"recent_messages"`
	Notes            string           `json:"notes"`

	lastAt time.Time
}

type ActionRecommendation struct {
	PartnerID        int64  `json:"partner_id"`
	Priority         string `json:"priority"`
	Reason           string `json:"reason"`
	Action           string `json:"action"`
	SuggestedMessage string `json:"suggested_message,omitempty"`
	PartnerName      string `json:"partner_name,omitempty"`
	PartnerCompany   string `json:"partner_company,omitempty"`
	PartnerPhone     string `json:"partner_phone,omitempty"`
}

var statusRank = map[ContactStatus]int{NeedsResponse: 0, AwaitingReply: 1, NeverContacted: 2}

// BuildSnapshots describes every active partner and trims the result to
// poolCap (DefaultPoolCap when <= 0). needs_response partners are never
// trimmed, even past the cap. Order: needs_response, awaiting_reply (longest
// silence first), never_contacted.
func BuildSnapshots(now time.Time, histories []PartnerHistory, poolCap int) []CandidateSnapshot {
	if poolCap <= 0 {
		poolCap = DefaultPoolCap
	}
	all := make([]CandidateSnapshot, 0, len(histories))
	for _, h := range histories {
		if !h.Partner.Active() {
			continue
		}
		all = append(all, snapshot(now, h))
	}

	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if statusRank[a.Status] != statusRank[b.Status] {
			return statusRank[a.Status] < statusRank[b.Status]
		}
		if a.Status != NeverContacted && !a.lastAt.Equal(b.lastAt) {
			return a.lastAt.Before(b.lastAt)
		}
		return a.PartnerID < b.PartnerID
	})

	if len(all) <= poolCap {
		return all
	}
	pool := make([]CandidateSnapshot, 0, poolCap)
	for _, s := range all {
		if s.Status == NeedsResponse || len(pool) < poolCap {
			pool = append(pool, s)
		}
	}
	return pool
}

func snapshot(now time.Time, h PartnerHistory) CandidateSnapshot {
	p := h.Partner
	s := CandidateSnapshot{
		PartnerID:      p.ID,
		Name:           p.FullName(),
		Company:        p.Company,
		Region:         p.RegionName,
		Status:         NeverContacted,
		RecentMessages: []MessageExcerpt{},
		Notes:          p.Notes,
	}
	if len(h.Messages) == 0 {
		return s
	}

	ordered := chronological(h.Messages)
	last := ordered[len(ordered)-1]
	days := int(math.Floor(now.Sub(last.CreatedAt).Hours() / 24))
	s.DaysSinceContact = &days
	s.LastDirection = last.Direction
	s.lastAt = last.CreatedAt
	if last.Direction == model.Inbound {
		s.Status = NeedsResponse
	} else {
		s.Status = AwaitingReply
	}
	for i := len(ordered) - 1; i >= 0 && len(s.RecentMessages) < recentExcerpts; i-- {
		s.RecentMessages = append(s.RecentMessages, MessageExcerpt{Direction: ordered[i].Direction, Body: excerpt(ordered[i].Body, 100)})
	}
	return s
}

// Prioritizer asks the AI capability to rank a candidate pool.
type Prioritizer struct {
	AI  ai.Completer
	Log zerolog.Logger
}

// Rank returns at most MaxRecommendations for partners in pool. When the AI
// is missing, fails, or replies with nothing usable, a deterministic ranking
// of the pool is returned with fallbackUsed set.
func (p *Prioritizer) Rank(ctx context.Context, pool []CandidateSnapshot, knowledge string) (recs []ActionRecommendation, fallbackUsed bool) {
	if len(pool) == 0 {
		return []ActionRecommendation{}, false
	}
	if p.AI == nil {
		return FallbackRanking(pool), true
	}

	prompt, err := rankPrompt(pool, knowledge)
	if err != nil {
		p.Log.Error().Err(err).Msg("build ranking prompt")
		return FallbackRanking(pool), true
	}
	reply, err := p.AI.Complete(ctx, prompt, 1500)
	if err != nil {
		p.Log.Warn().Err(err).Msg("ranking call failed")
		return FallbackRanking(pool), true
	}
	recs = ParseRecommendations(reply, pool)
	if len(recs) == 0 {
		p.Log.Warn().Int("reply_len", len(reply)).Msg("ranking reply unusable")
		return FallbackRanking(pool), true
	}
	return recs, false
}

// ParseRecommendations keeps well-formed entries that reference a pooled
// partner, once each, up to MaxRecommendations.
func ParseRecommendations(reply string, pool []CandidateSnapshot) []ActionRecommendation {
	res, ok := ai.ExtractJSON(reply)
	if !ok {
		return nil
	}
	if res.IsObject() {
		res = res.Get("actions")
	}
	if !res.IsArray() {
		return nil
	}

	byID := make(map[int64]CandidateSnapshot, len(pool))
	for _, s := range pool {
		byID[s.PartnerID] = s
	}
	seen := map[int64]bool{}
	out := []ActionRecommendation{}
	res.ForEach(func(_, v gjson.Result) bool {
		id := v.Get("partner_id").Int()
		cand, inPool := byID[id]
		if !inPool || seen[id] {
			return true
		}
		seen[id] = true
		out = append(out, ActionRecommendation{
			PartnerID:        id,
			Priority:         normalizePriority(v.Get("priority").String(), cand.Status),
			Reason:           strings.TrimSpace(v.Get("reason").String()),
			Action:           firstNonEmpty(strings.TrimSpace(v.Get("action").String()), defaultAction(cand.Status)),
			SuggestedMessage: strings.TrimSpace(v.Get("suggested_message").String()),
		})
		return len(out) < MaxRecommendations
	})
	return out
}

// FallbackRanking takes the head of the pool in its priority order.
func FallbackRanking(pool []CandidateSnapshot) []ActionRecommendation {
	out := []ActionRecommendation{}
	for _, s := range pool {
		if len(out) == MaxRecommendations {
			break
		}
		rec := ActionRecommendation{PartnerID: s.PartnerID, Action: defaultAction(s.Status), Priority: defaultPriority(s.Status)}
		switch s.Status {
		case NeedsResponse:
			rec.Reason = "Waiting on our reply"
		case AwaitingReply:
			rec.Reason = fmt.Sprintf("No reply in %d days", deref(s.DaysSinceContact))
		default:
			rec.Reason = "Never contacted"
		}
		out = append(out, rec)
	}
	return out
}

func rankPrompt(pool []CandidateSnapshot, knowledge string) (string, error) {
	data, err := json.MarshalIndent(pool, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode candidate pool: %w", err)
	}
	return fmt.Sprintf(`You're a sales AI assistant. Analyze these partners and recommend the top %d actions for today.
%s

Partner data:
%s

For each recommended action, provide:
1. partner_id (number)
2. priority: "high", "medium", or "low"
3. reason: Brief explanation why (under 50 chars)
4. action: What to do ("send intro", "follow up", "respond", "re-engage", "check in")
5. suggested_message: A ready-to-send SMS (under 160 chars)

Consider:
- Partners awaiting our response (needs_response) are highest priority
- Never contacted partners are opportunities
- Don't let good conversations go cold
- Warm leads need nurturing

Return ONLY a JSON array of %d action objects. Example:
[{"partner_id": 1, "priority": "high", "reason": "They asked a question 2 days ago", "action": "respond", "suggested_message": "Hey! Great question about pricing..."}]`,
		MaxRecommendations, knowledge, data, MaxRecommendations), nil
}

func normalizePriority(p string, status ContactStatus) string {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case "high", "urgent":
		return "high"
	case "medium", "med", "normal":
		return "medium"
	case "low":
		return "low"
	}
	return defaultPriority(status)
}

func defaultPriority(s ContactStatus) string {
	switch s {
	case NeedsResponse:
		return "high"
	case AwaitingReply:
		return "medium"
	}
	return "low"
}

func defaultAction(s ContactStatus) string {
	switch s {
	case NeedsResponse:
		return "respond"
	case AwaitingReply:
		return "follow up"
	}
	return "send intro"
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
