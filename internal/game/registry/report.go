package registry

import (
	"sort"

	"github.com/cory-johannsen/fieldops/internal/game/combat"
)

// ActorSummary aggregates one actor's activity over a finalized session.
type ActorSummary struct {
	ActorID     string `json:"actor_id"`
	Actions     int    `json:"actions"`
	Hits        int    `json:"hits"`
	Misses      int    `json:"misses"`
	DamageDealt int    `json:"damage_dealt"`
	DamageTaken int    `json:"damage_taken"`
}

// Report is a finalized result together with its full event log and
// per-actor summaries.
type Report struct {
	Result *combat.Result `json:"result"`
	Events []combat.Event `json:"events"`
	Actors []ActorSummary `json:"actors"`
}

// DetailedReport returns the report for a finalized missionID, or nil.
func (r *Registry) DetailedReport(missionID string) *Report {
	res := r.Result(missionID)
	if res == nil {
		return nil
	}
	return &Report{
		Result: res,
		Events: append([]combat.Event(nil), res.Events...),
		Actors: Summarize(res),
	}
}

// Summarize computes per-actor summaries from res.Events, sorted by actor id.
// Every participant in res.FinalHealths gets an entry even if it never acted.
func Summarize(res *combat.Result) []ActorSummary {
	byID := make(map[string]*ActorSummary)
	get := func(id string) *ActorSummary {
		s, ok := byID[id]
		if !ok {
			s = &ActorSummary{ActorID: id}
			byID[id] = s
		}
		return s
	}
	for id := range res.FinalHealths {
		get(id)
	}
	for _, ev := range res.Events {
		if ev.Action == "" {
			continue
		}
		a := get(ev.Actor)
		a.Actions++
		switch ev.Outcome {
		case combat.OutcomeHit:
			a.Hits++
		case combat.OutcomeMiss:
			a.Misses++
		}
		if ev.Damage > 0 && ev.Target != "" {
			a.DamageDealt += ev.Damage
			get(ev.Target).DamageTaken += ev.Damage
		}
	}
	out := make([]ActorSummary, 0, len(byID))
	for _, s := range byID {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActorID < out[j].ActorID })
	return out
}
