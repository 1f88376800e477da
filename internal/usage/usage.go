// Package usage folds run token/cost accounting into session rollups.
package usage

import (
	"strings"

	"github.com/charmbracelet/catwalk/pkg/catwalk"

	"github.com/tejjnayak/clawdeck/internal/proto"
	"github.com/tejjnayak/clawdeck/internal/session"
)

// localMarkers classify a model as locally hosted when its provider equals
// one of them or its id contains one of them.
var localMarkers = []string{"ollama", "local", "lmstudio", "vllm"}

// ProviderLookup resolves the provider name for a model id.
type ProviderLookup interface {
	ProviderForModel(modelID string) string
}

// CatalogLookup resolves providers from a catwalk provider catalog, falling
// back to the prefix of composite "provider/model" ids.
type CatalogLookup struct {
	providers []catwalk.Provider
}

func NewCatalogLookup(providers []catwalk.Provider) *CatalogLookup {
	return &CatalogLookup{providers: providers}
}

func (c *CatalogLookup) ProviderForModel(modelID string) string {
	for _, p := range c.providers {
		for _, m := range p.Models {
			if m.ID == modelID {
				return string(p.ID)
			}
		}
	}
	if prov, _, ok := strings.Cut(modelID, "/"); ok {
		return prov
	}
	return ""
}

// Applied reports what one Apply call folded in, so callers can persist the
// same numbers.
type Applied struct {
	Cost     float64
	Provider string
	Local    bool
}

// Accountant applies completed-run usage to a session. Invoked at most once
// per run; idempotence is the dispatcher's job, not ours.
type Accountant struct {
	lookup ProviderLookup
	prices map[string]catwalk.Model
}

// NewAccountant builds an accountant over a provider lookup and a static
// per-model price table used when the gateway reports no cost figure.
func NewAccountant(lookup ProviderLookup, prices map[string]catwalk.Model) *Accountant {
	if prices == nil {
		prices = make(map[string]catwalk.Model)
	}
	return &Accountant{lookup: lookup, prices: prices}
}

// PriceTable builds a price map keyed by model id from a catwalk catalog.
func PriceTable(providers []catwalk.Provider) map[string]catwalk.Model {
	table := make(map[string]catwalk.Model)
	for _, p := range providers {
		for _, m := range p.Models {
			table[m.ID] = m
		}
	}
	return table
}

// Apply folds usage for a completed run into the session's counters and
// breakdowns. Malformed numbers are sanitized to zero rather than aborting:
// partial accounting is preferred over none.
func (a *Accountant) Apply(sess *session.Session, u proto.Usage, modelID string) Applied {
	u = u.Sanitized()

	cost := a.cost(u, modelID)
	in := int64(u.InputTokens)
	out := int64(u.OutputTokens)

	sess.Cost += cost
	sess.InputTokens += in
	sess.OutputTokens += out
	sess.RequestCount++

	provider := ""
	if a.lookup != nil {
		provider = a.lookup.ProviderForModel(modelID)
	}
	if provider != "" {
		if sess.ProviderRequests == nil {
			sess.ProviderRequests = make(map[string]*session.ProviderUsage)
		}
		merge(sess.ProviderRequests, provider, in, out)
	}

	local := IsLocalModel(modelID, provider)
	if local {
		sess.LocalRequestCount++
		if sess.LocalModelUsage == nil {
			sess.LocalModelUsage = make(map[string]*session.ProviderUsage)
		}
		merge(sess.LocalModelUsage, modelID, in, out)
	}

	return Applied{Cost: cost, Provider: provider, Local: local}
}

// cost prefers the gateway's explicit figure and otherwise computes from the
// price table.
func (a *Accountant) cost(u proto.Usage, modelID string) float64 {
	if u.Cost != nil {
		return *u.Cost
	}
	model, ok := a.prices[modelID]
	if !ok {
		model, ok = a.prices[proto.ShortModelName(modelID)]
	}
	if !ok {
		return 0
	}
	return u.InputTokens/1e6*model.CostPer1MIn + u.OutputTokens/1e6*model.CostPer1MOut
}

// IsLocalModel reports whether the model is locally hosted, by provider name
// or id pattern.
func IsLocalModel(modelID, provider string) bool {
	id := strings.ToLower(modelID)
	prov := strings.ToLower(provider)
	for _, marker := range localMarkers {
		if prov == marker || strings.Contains(id, marker) {
			return true
		}
	}
	return false
}

func merge(m map[string]*session.ProviderUsage, key string, in, out int64) {
	pu, ok := m[key]
	if !ok {
		pu = &session.ProviderUsage{}
		m[key] = pu
	}
	pu.Requests++
	pu.InputTokens += in
	pu.OutputTokens += out
}
