package stakeholder

import (
	"sort"
	"strings"
	"sync"

	"github.com/ppiankov/brdsynth/internal/model"
	"github.com/ppiankov/brdsynth/internal/textutil"
)

type person struct {
	name         string
	interactions float64
	decisions    int
	channels     map[model.Channel]bool
	roles        []string
	sent         []string // Tokens of the text this person sent
}

type edge struct {
	from, to string
	channel  model.Channel
}

// Accumulator collects interaction signals per person. It is safe for
// concurrent use.
type Accumulator struct {
	mu     sync.Mutex
	config model.StakeholderConfig
	people map[string]*person
	edges  map[edge]int
}

// NewAccumulator creates an empty accumulator
func NewAccumulator(config model.StakeholderConfig) *Accumulator {
	return &Accumulator{
		config: config,
		people: make(map[string]*person),
		edges:  make(map[edge]int),
	}
}

func key(name string) string {
	return strings.ToLower(textutil.CollapseSpace(name))
}

// get returns the person for name, creating it with name as display name.
// Caller holds mu.
func (a *Accumulator) get(name string) *person {
	k := key(name)
	p, ok := a.people[k]
	if !ok {
		p = &person{name: textutil.CollapseSpace(name), channels: make(map[model.Channel]bool)}
		a.people[k] = p
	}
	return p
}

// AddRecord counts one interaction for the sender and a fractional one for
// each recipient
func (a *Accumulator) AddRecord(r model.Record) {
	a.mu.Lock()
	defer a.mu.Unlock()

	sender := ""
	if key(r.Sender) != "" {
		p := a.get(r.Sender)
		p.interactions++
		p.channels[r.Channel] = true
		p.sent = append(p.sent, textutil.Tokenize(r.RawText)...)
		sender = p.name
	}

	for _, rcpt := range model.NormalizeRecipients(r.Recipients) {
		if key(rcpt) == key(r.Sender) {
			continue
		}
		p := a.get(rcpt)
		p.interactions += a.config.RecipientWeight
		p.channels[r.Channel] = true
		if sender != "" {
			a.edges[edge{from: key(sender), to: key(rcpt), channel: r.Channel}]++
		}
	}
}

// AddMention records channel presence and the declared role of a mention
func (a *Accumulator) AddMention(m model.StakeholderMention) {
	if key(m.Name) == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	p := a.get(m.Name)
	p.channels[m.Channel] = true
	if m.Role != "" {
		p.roles = append(p.roles, m.Role)
	}
}

// AddDecision attributes a decision to its author
func (a *Accumulator) AddDecision(d model.Decision) {
	if key(d.DecidedBy) == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	p := a.get(d.DecidedBy)
	p.decisions++
	p.channels[d.Channel] = true
}

// Map computes influence, roles, hierarchy and relationships
func (a *Accumulator) Map() model.StakeholderMap {
	a.mu.Lock()
	defer a.mu.Unlock()

	var maxI, maxD, maxC float64
	for _, p := range a.people {
		maxI = max(maxI, p.interactions)
		maxD = max(maxD, float64(p.decisions))
		maxC = max(maxC, float64(len(p.channels)))
	}

	cfg := a.config
	raw := make(map[string]float64, len(a.people))
	var maxRaw float64
	for k, p := range a.people {
		v := cfg.InteractionWeight*ratio(p.interactions, maxI) +
			cfg.DecisionWeight*ratio(float64(p.decisions), maxD) +
			cfg.ChannelWeight*ratio(float64(len(p.channels)), maxC)
		raw[k] = v
		maxRaw = max(maxRaw, v)
	}

	stakeholders := make([]model.Stakeholder, 0, len(a.people))
	for k, p := range a.people {
		role := model.RoleUnknown
		if p.decisions > 0 {
			role = model.RoleDecisionMaker
		}
		stakeholders = append(stakeholders, model.Stakeholder{
			Name:             p.name,
			Role:             role,
			Function:         inferFunction(p.roles, p.sent),
			InfluenceScore:   textutil.Round(ratio(raw[k], maxRaw), 4),
			InteractionCount: p.interactions,
			Decisions:        p.decisions,
			Channels:         sortedChannels(p.channels),
		})
	}
	sort.SliceStable(stakeholders, func(i, j int) bool {
		x, y := stakeholders[i], stakeholders[j]
		if x.InfluenceScore != y.InfluenceScore {
			return x.InfluenceScore > y.InfluenceScore
		}
		return key(x.Name) < key(y.Name)
	})

	return model.StakeholderMap{
		Stakeholders:  stakeholders,
		Hierarchy:     hierarchy(stakeholders, cfg),
		Relationships: a.relationships(),
	}
}

// relationships lists directed edges by display name. Caller holds mu.
func (a *Accumulator) relationships() []model.Relationship {
	out := make([]model.Relationship, 0, len(a.edges))
	for e, n := range a.edges {
		out = append(out, model.Relationship{
			From:    a.people[e.from].name,
			To:      a.people[e.to].name,
			Channel: e.channel,
			Count:   n,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if key(out[i].From) != key(out[j].From) {
			return key(out[i].From) < key(out[j].From)
		}
		if key(out[i].To) != key(out[j].To) {
			return key(out[i].To) < key(out[j].To)
		}
		return out[i].Channel < out[j].Channel
	})
	return out
}

// hierarchy buckets stakeholders by role into the configured levels, in
// configuration order, with the default level last
func hierarchy(stakeholders []model.Stakeholder, cfg model.StakeholderConfig) []model.HierarchyLevel {
	levelOf := make(map[model.StakeholderRole]string)
	var order []string
	members := make(map[string][]string)
	for _, l := range cfg.Levels {
		levelOf[model.StakeholderRole(l.Role)] = l.Level
		if _, ok := members[l.Level]; !ok {
			members[l.Level] = nil
			order = append(order, l.Level)
		}
	}
	fallback := cfg.DefaultLevel
	if fallback == "" {
		fallback = "Contributor"
	}
	if _, ok := members[fallback]; !ok {
		order = append(order, fallback)
	}

	for _, s := range stakeholders {
		level, ok := levelOf[s.Role]
		if !ok {
			level = fallback
		}
		members[level] = append(members[level], s.Name)
	}

	var out []model.HierarchyLevel
	for _, level := range order {
		if len(members[level]) == 0 {
			continue
		}
		out = append(out, model.HierarchyLevel{Level: level, Members: members[level]})
	}
	if out == nil {
		out = []model.HierarchyLevel{}
	}
	return out
}

func ratio(v, maxV float64) float64 {
	if maxV <= 0 {
		return 0
	}
	return v / maxV
}

func sortedChannels(set map[model.Channel]bool) []model.Channel {
	out := make([]model.Channel, 0, len(set))
	for ch := range set {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Builder derives the stakeholder map of a run
type Builder struct {
	config model.StakeholderConfig
}

// NewBuilder creates a builder
func NewBuilder(config model.StakeholderConfig) *Builder {
	return &Builder{config: config}
}

// Build scans records in timestamp order so display names come from the
// first occurrence, then folds in mentions and decision attributions
func (b *Builder) Build(records []model.Record, entities model.EntitySet) model.StakeholderMap {
	sorted := append([]model.Record(nil), records...)
	model.SortRecords(sorted)

	acc := NewAccumulator(b.config)
	for _, r := range sorted {
		acc.AddRecord(r)
	}
	for _, m := range entities.Stakeholders {
		acc.AddMention(m)
	}
	for _, d := range entities.Decisions {
		acc.AddDecision(d)
	}
	return acc.Map()
}
