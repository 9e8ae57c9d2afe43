package insight

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/unclebandit/partnerline/internal/ai"
	appErrors "github.com/unclebandit/partnerline/internal/errors"
	"github.com/unclebandit/partnerline/internal/model"
	"github.com/unclebandit/partnerline/internal/repository"
)

const (
	ghostSuggestionLimit = 5
	noHistorySummary     = "No conversation history yet."
)

// NextActions is the ranked "who to text today" list.
type NextActions struct {
	Recommendations []ActionRecommendation `json:"recommendations"`
	FallbackUsed    bool                   `json:"fallback_used"`
	PoolSize        int                    `json:"pool_size"`
}

type Suggestions struct {
	Suggestions  []string `json:"suggestions"`
	FallbackUsed bool     `json:"fallback_used"`
}

type SentimentResult struct {
	ai.Sentiment
	FallbackUsed bool `json:"fallback_used"`
}

type Stats struct {
	TotalPartners  int     `json:"total_partners"`
	NeverContacted int     `json:"never_contacted"`
	MessagesToday  int     `json:"messages_today"`
	MessagesWeek   int     `json:"messages_week"`
	SentWeek       int     `json:"sent_week"`
	RepliesWeek    int     `json:"replies_week"`
	Unread         int     `json:"unread"`
	ResponseRate   float64 `json:"response_rate"`
}

// Service loads the message log and partners, runs the analyzers, and wraps
// the AI capability for the conversation helpers. AI may be nil.
type Service struct {
	Partners  repository.PartnerRepositoryInterface
	Messages  repository.MessageRepositoryInterface
	AI        ai.Completer
	Knowledge *ai.KnowledgeBase
	Location  *time.Location
	PoolCap   int
	Now       func() time.Time
	Log       zerolog.Logger
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now()
}

func (s *Service) partner(ctx context.Context, id int64) (*model.Partner, error) {
	p, err := s.Partners.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, appErrors.NewPartnerNotFound(id)
	}
	return p, nil
}

func (s *Service) histories(ctx context.Context) ([]PartnerHistory, error) {
	partners, err := s.Partners.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]PartnerHistory, 0, len(partners))
	for _, p := range partners {
		msgs, err := s.Messages.ListByPartner(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, PartnerHistory{Partner: p, Messages: msgs})
	}
	return out, nil
}

func (s *Service) BestTime(ctx context.Context, partnerID int64) (BestTime, error) {
	if _, err := s.partner(ctx, partnerID); err != nil {
		return BestTime{}, err
	}
	inbound, err := s.Messages.ListInbound(ctx, partnerID)
	if err != nil {
		return BestTime{}, err
	}
	return AnalyzeBestTime(inbound, s.Location), nil
}

// Ghosts lists silent partners. With an AI capability the top five also get a
// re-engagement suggestion, falling back to a stock line per partner.
func (s *Service) Ghosts(ctx context.Context) ([]GhostCandidate, error) {
	hs, err := s.histories(ctx)
	if err != nil {
		return nil, err
	}
	ghosts := DetectGhosts(s.now(), hs)
	if s.AI == nil {
		return ghosts, nil
	}
	for i := range ghosts {
		if i == ghostSuggestionLimit {
			break
		}
		g := &ghosts[i]
		prompt := fmt.Sprintf(`Write a short, friendly SMS follow-up for someone who hasn't responded in %d days.

Last message sent to them: "%s"

Keep it under 160 characters. Be casual, not pushy. Don't guilt them. Maybe add value or give them an easy out.

Return ONLY the message text.`, g.DaysWaiting, g.LastMessage)
		reply, err := s.AI.Complete(ctx, prompt, 100)
		if msg := ai.CleanMessage(reply); err == nil && msg != "" {
			g.SuggestedMessage = msg
			continue
		}
		if err != nil {
			s.Log.Warn().Err(err).Int64("partner_id", g.PartnerID).Msg("ghost suggestion failed")
		}
		g.SuggestedMessage = ai.GhostFallbackMessage
	}
	return ghosts, nil
}

// NextActions builds the candidate pool, ranks it and adds partner identity to each pick.
func (s *Service) NextActions(ctx context.Context) (NextActions, error) {
	hs, err := s.histories(ctx)
	if err != nil {
		return NextActions{}, err
	}
	pool := BuildSnapshots(s.now(), hs, s.PoolCap)
	ranker := &Prioritizer{AI: s.AI, Log: s.Log}
	recs, fallback := ranker.Rank(ctx, pool, s.Knowledge.Context())

	byID := make(map[int64]model.Partner, len(hs))
	for _, h := range hs {
		byID[h.Partner.ID] = h.Partner
	}
	for i := range recs {
		if p, ok := byID[recs[i].PartnerID]; ok {
			recs[i].PartnerName = p.FullName()
			recs[i].PartnerCompany = p.Company
			recs[i].PartnerPhone = p.Phone
		}
	}
	return NextActions{Recommendations: recs, FallbackUsed: fallback, PoolSize: len(pool)}, nil
}

// Suggestions proposes three replies from the last ten messages.
func (s *Service) Suggestions(ctx context.Context, partnerID int64) (Suggestions, error) {
	p, err := s.partner(ctx, partnerID)
	if err != nil {
		return Suggestions{}, err
	}
	recent, err := s.Messages.ListRecent(ctx, partnerID, 10)
	if err != nil {
		return Suggestions{}, err
	}
	if len(recent) == 0 {
		return Suggestions{Suggestions: ai.DefaultSuggestions}, nil
	}
	fallback := Suggestions{Suggestions: ai.FallbackSuggestions, FallbackUsed: true}
	if s.AI == nil {
		return fallback, nil
	}

	var convo strings.Builder
	for i := len(recent) - 1; i >= 0; i-- {
		role := "You"
		if recent[i].Direction == model.Inbound {
			role = "Partner"
		}
		fmt.Fprintf(&convo, "%s: %s\n", role, recent[i].Body)
	}
	prompt := fmt.Sprintf(`You are helping a partner manager respond to SMS messages from channel partners.
%s

Partner info:
- Name: %s
- Company: %s
- Region: %s
- Notes: %s

Recent conversation:
%s
Generate exactly 3 short, professional SMS reply suggestions (under 160 characters each) that the partner manager could send next. Make them contextually relevant to the conversation. Use the business knowledge above to give accurate, informed responses. Be helpful, friendly, and action-oriented.

Return ONLY a JSON array of 3 strings, no other text. Example: ["Reply 1", "Reply 2", "Reply 3"]`,
		s.Knowledge.Context(), p.FullName(), orUnknown(p.Company), orUnknown(p.RegionName), orNone(p.Notes), convo.String())

	reply, err := s.AI.Complete(ctx, prompt, 300)
	if err != nil {
		s.Log.Warn().Err(err).Int64("partner_id", partnerID).Msg("suggestions call failed")
		return fallback, nil
	}
	out, ok := ai.ParseSuggestions(reply, 3)
	if !ok {
		return fallback, nil
	}
	return Suggestions{Suggestions: out}, nil
}

// Sentiment classifies the last five inbound messages.
func (s *Service) Sentiment(ctx context.Context, partnerID int64) (SentimentResult, error) {
	if _, err := s.partner(ctx, partnerID); err != nil {
		return SentimentResult{}, err
	}
	inbound, err := s.Messages.ListInbound(ctx, partnerID)
	if err != nil {
		return SentimentResult{}, err
	}
	if len(inbound) == 0 {
		return SentimentResult{Sentiment: ai.NoMessagesSentiment}, nil
	}
	fallback := SentimentResult{Sentiment: ai.FallbackSentiment, FallbackUsed: true}
	if s.AI == nil {
		return fallback, nil
	}

	var bodies []string
	for i := len(inbound) - 1; i >= 0 && len(bodies) < 5; i-- {
		if inbound[i].Body != "" {
			bodies = append(bodies, inbound[i].Body)
		}
	}
	prompt := fmt.Sprintf(`Analyze the sentiment of these recent messages from a sales prospect:

%s

Return ONLY a JSON object with:
- "sentiment": "positive", "neutral", or "negative"
- "score": number from 0-100 (0=very negative, 100=very positive)
- "label": brief 2-3 word description (e.g., "Very interested", "Needs follow-up", "Frustrated")

Example: {"sentiment": "positive", "score": 75, "label": "Interested"}`, strings.Join(bodies, "\n"))

	reply, err := s.AI.Complete(ctx, prompt, 100)
	if err != nil {
		s.Log.Warn().Err(err).Int64("partner_id", partnerID).Msg("sentiment call failed")
		return fallback, nil
	}
	sent, ok := ai.ParseSentiment(reply)
	if !ok {
		return fallback, nil
	}
	return SentimentResult{Sentiment: sent}, nil
}

// Summary condenses the conversation into a few sentences. It needs the AI capability.
func (s *Service) Summary(ctx context.Context, partnerID int64) (string, error) {
	p, err := s.partner(ctx, partnerID)
	if err != nil {
		return "", err
	}
	msgs, err := s.Messages.ListByPartner(ctx, partnerID)
	if err != nil {
		return "", err
	}
	if len(msgs) == 0 {
		return noHistorySummary, nil
	}
	if s.AI == nil {
		return "", ai.ErrNotConfigured
	}

	var convo strings.Builder
	for _, m := range msgs {
		role := "You"
		if m.Direction == model.Inbound {
			role = p.FirstName
		}
		fmt.Fprintf(&convo, "%s: %s\n", role, orDefault(m.Body, "[Media]"))
	}
	prompt := fmt.Sprintf(`Summarize this SMS conversation between a partner manager and %s (%s).

Conversation:
%s
Provide a brief summary (2-3 sentences) covering:
1. Main topics discussed
2. Current status/next steps
3. Partner's sentiment/interest level

Return ONLY the summary, no headers or labels.`, p.FullName(), orDefault(p.Company, "unknown company"), convo.String())

	reply, err := s.AI.Complete(ctx, prompt, 200)
	if err != nil {
		return "", fmt.Errorf("summarize conversation: %w", err)
	}
	return strings.TrimSpace(reply), nil
}

// Compose drafts a message from a free-text request, optionally in the context of one partner.
func (s *Service) Compose(ctx context.Context, request string, partnerID int64) (string, error) {
	if strings.TrimSpace(request) == "" {
		return "", appErrors.InvalidInput("please provide a prompt")
	}
	if s.AI == nil {
		return "", ai.ErrNotConfigured
	}

	partnerContext := ""
	if partnerID > 0 {
		p, err := s.Partners.GetByID(ctx, partnerID)
		if err != nil {
			return "", err
		}
		if p != nil {
			partnerContext = fmt.Sprintf("\nPartner info:\n- Name: %s\n- Company: %s\n- Region: %s\n- TSD: %s\n- Notes: %s\n",
				p.FullName(), orUnknown(p.Company), orUnknown(p.RegionName), orUnknown(p.TSDName), orNone(p.Notes))
		}
	}
	prompt := fmt.Sprintf(`You are helping a partner manager write SMS messages to channel partners.
%s
%s

User request: %s

Write a professional, friendly SMS message (under 160 characters if possible, max 320 characters). Use the business knowledge above to be accurate and specific. Use {{first_name}} if you want to personalize with the partner's name.

Return ONLY the message text, no quotes or explanation.`, s.Knowledge.Context(), partnerContext, request)

	reply, err := s.AI.Complete(ctx, prompt, 200)
	if err != nil {
		return "", fmt.Errorf("compose message: %w", err)
	}
	return ai.CleanMessage(reply), nil
}

// Stats summarises activity. Day, week (from Monday) and month boundaries use Location.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	now := s.now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	week := today.AddDate(0, 0, -((int(today.Weekday()) + 6) % 7))
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)

	var (
		st  Stats
		err error
	)
	if st.TotalPartners, err = s.Partners.Count(ctx); err != nil {
		return st, err
	}
	if st.NeverContacted, err = s.Partners.CountNeverContacted(ctx); err != nil {
		return st, err
	}
	if st.MessagesToday, err = s.Messages.CountSince(ctx, today, ""); err != nil {
		return st, err
	}
	if st.MessagesWeek, err = s.Messages.CountSince(ctx, week, ""); err != nil {
		return st, err
	}
	if st.SentWeek, err = s.Messages.CountSince(ctx, week, model.Outbound); err != nil {
		return st, err
	}
	if st.RepliesWeek, err = s.Messages.CountSince(ctx, week, model.Inbound); err != nil {
		return st, err
	}
	if st.Unread, err = s.Messages.CountUnread(ctx); err != nil {
		return st, err
	}
	messaged, err := s.Messages.CountPartnersSince(ctx, month, model.Outbound)
	if err != nil {
		return st, err
	}
	replied, err := s.Messages.CountPartnersSince(ctx, month, model.Inbound)
	if err != nil {
		return st, err
	}
	if messaged > 0 {
		st.ResponseRate = math.Round(float64(replied)/float64(messaged)*1000) / 10
	}
	return st, nil
}

func orUnknown(s string) string { return orDefault(s, "Unknown") }
func orNone(s string) string    { return orDefault(s, "None") }

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
