package serviceImp

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode"

	"umbra/entities"
	"umbra/pkg/ai"
	"umbra/pkg/events"
	"umbra/pkg/gaps/repository"
	"umbra/pkg/gaps/service"
	"umbra/pkg/textkit"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	defaultPriority  = 0.5
	maxRelatedPubs   = 20
	defaultGapType   = "process_unclear"
	defaultGapImpact = "medium"
	gapTemperature   = 0.4
	gapMaxTokens     = 2048
)

type Svc struct {
	r       repository.GapRepository
	graph   service.GraphSource
	llm     ai.Client
	prompts ai.Prompts
	ev      events.Publisher
	log     *slog.Logger
	now     func() time.Time
}

func New(r repository.GapRepository, graph service.GraphSource, llm ai.Client, prompts ai.Prompts, ev events.Publisher, log *slog.Logger) *Svc {
	if ev == nil {
		ev = events.NewNoop()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Svc{r: r, graph: graph, llm: llm, prompts: prompts, ev: ev, log: log.With("component", "gaps"), now: time.Now}
}

var _ service.GapService = (*Svc)(nil)

// modelGap is one entry of the model's answer. Priority and impact come back
// under either of two names depending on the model.
type modelGap struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Priority         *float64 `json:"priority"`
	PriorityScore    *float64 `json:"priorityScore"`
	Impact           string   `json:"impact"`
	PotentialImpact  string   `json:"potentialImpact"`
	GapType          string   `json:"gapType"`
	RelevantMissions []string `json:"relevantMissions"`
}

func (s *Svc) Identify(ctx context.Context) ([]entities.ResearchGap, error) {
	stats, err := s.graph.Stats(ctx)
	if err != nil {
		return nil, err
	}
	prompt, err := ai.GapUserPrompt(stats)
	if err != nil {
		return nil, err
	}
	reply, err := s.llm.Generate(ctx, ai.GenerateRequest{
		Task:         ai.TaskIdentifyGaps,
		SystemPrompt: s.prompts.ResearchGapIdentifier,
		UserPrompt:   prompt,
		Temperature:  ai.Float(gapTemperature),
		MaxTokens:    gapMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("identify gaps: %w", err)
	}

	var raw []modelGap
	if err := ai.DecodeArray(reply, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrBadModelOutput, err)
	}
	g, err := s.graph.Graph(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]entities.ResearchGap, 0, len(raw))
	for _, m := range raw {
		gap, ok := validate(m)
		if !ok {
			continue
		}
		gap.RelatedNodeIDs, gap.RelatedPublicationIDs = related(gap.Title+" "+gap.Description, g.Nodes)
		gap.IdentifiedAt = now
		out = append(out, gap)
	}
	if len(raw) > 0 && len(out) == 0 {
		return nil, fmt.Errorf("%w: no gap had a title", service.ErrBadModelOutput)
	}
	if err := s.r.CreateBatch(ctx, out); err != nil {
		return nil, err
	}

	if err := s.ev.Publish(ctx, events.SubjectGapsIdentified, map[string]any{"count": len(out)}); err != nil {
		s.log.Warn("publish gaps event", "err", err)
	}
	s.log.Info("gaps identified", "returned", len(raw), "stored", len(out))
	return out, nil
}

func validate(m modelGap) (entities.ResearchGap, bool) {
	title := strings.TrimSpace(m.Title)
	if title == "" {
		return entities.ResearchGap{}, false
	}
	priority := defaultPriority
	if m.Priority != nil {
		priority = *m.Priority
	} else if m.PriorityScore != nil {
		priority = *m.PriorityScore
	}
	impact := m.Impact
	if impact == "" {
		impact = m.PotentialImpact
	}
	desc := strings.TrimSpace(m.Description)

	missions := []string{}
	for _, ms := range m.RelevantMissions {
		if ms = strings.TrimSpace(ms); ms != "" {
			missions = append(missions, ms)
		}
	}
	return entities.ResearchGap{
		Title:            title,
		Description:      desc,
		GapType:          gapType(m.GapType, title+" "+desc),
		PriorityScore:    min(max(priority, 0), 1),
		PotentialImpact:  normalizeImpact(impact),
		RelevantMissions: missions,
		UpvotedBy:        []string{},
		Status:           "identified",
	}, true
}

func normalizeImpact(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if slices.Contains(entities.GapImpacts, v) {
		return v
	}
	return defaultGapImpact
}

var gapTypeHints = []struct {
	gapType string
	words   []string
}{
	{"conflicting_results", []string{"conflict", "contradict", "inconsistent"}},
	{"limited_sample_size", []string{"sample size", "small sample", "limited sample", "few subjects"}},
	{"condition_untested", []string{"untested", "not been tested", "never tested", "combined effects"}},
	{"organism_understudied", []string{"understudied", "under-studied", "few studies on", "species"}},
}

// gapType keeps a valid declared type and otherwise infers one from the text.
func gapType(declared, text string) string {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if slices.Contains(entities.GapTypes, declared) {
		return declared
	}
	text = strings.ToLower(text)
	for _, h := range gapTypeHints {
		for _, w := range h.words {
			if strings.Contains(text, w) {
				return h.gapType
			}
		}
	}
	return defaultGapType
}

// related links a gap to graph nodes named in its text and their publications.
func related(text string, nodes []entities.KnowledgeNode) ([]uint, []uint) {
	padded := words(text)
	nodeIDs, pubIDs := []uint{}, []uint{}
	for _, n := range nodes {
		name := strings.TrimSpace(words(n.CanonicalName))
		if name == "" || !strings.Contains(padded, " "+name+" ") {
			continue
		}
		nodeIDs = append(nodeIDs, n.NodeID)
		for _, id := range n.PublicationIDs {
			if len(pubIDs) < maxRelatedPubs && !slices.Contains(pubIDs, id) {
				pubIDs = append(pubIDs, id)
			}
		}
	}
	return nodeIDs, pubIDs
}

// words folds s to space separated alphanumeric runs with a space at each end.
func words(s string) string {
	f := strings.FieldsFunc(textkit.Canonical(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return " " + strings.Join(f, " ") + " "
}

func (s *Svc) List(ctx context.Context, status string, limit int) ([]entities.ResearchGap, error) {
	if status != "" && !slices.Contains(entities.GapStatuses, status) {
		return nil, fmt.Errorf("%w: unknown status %q", service.ErrInvalidInput, status)
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	gs, err := s.r.List(ctx, status, min(limit, maxListLimit))
	if gs == nil {
		gs = []entities.ResearchGap{}
	}
	return gs, err
}

func (s *Svc) Upvote(ctx context.Context, id uint, userID string) (*entities.ResearchGap, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id required", service.ErrInvalidInput)
	}
	return s.r.Upvote(ctx, id, userID)
}

func (s *Svc) UpdateStatus(ctx context.Context, id uint, status string) (*entities.ResearchGap, error) {
	status = strings.TrimSpace(status)
	if !slices.Contains(entities.GapStatuses, status) {
		return nil, fmt.Errorf("%w: unknown status %q", service.ErrInvalidInput, status)
	}
	return s.r.UpdateStatus(ctx, id, status)
}
