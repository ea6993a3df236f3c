// Package resolver turns free-text order messages into cart additions.
//
// Matching is greedy longest-phrase-first over normalized tokens: at
// each position the longest n-gram (up to four tokens) with a catalog
// trigger wins, so "coca zero lata" beats "coca zero". Beverages are
// matched in a dedicated first pass; the food pass then accumulates
// preparation notes ("sem cebola") onto the most recent item and turns
// additive requests ("mais bacon") into separately priced cart lines.
//
// Unmatched tokens are never an error. Whatever the resolver cannot
// place is simply left alone; a message that resolves nothing resolves
// to an empty result and the caller decides what to say.
package resolver

import (
	"context"
	"log/slog"
	"strings"

	"github.com/brutusburger/brutabot/internal/catalog"
	"github.com/brutusburger/brutabot/internal/textnorm"
)

// Catalog is the lookup surface the engine needs, satisfied by
// *catalog.Cache.
type Catalog interface {
	Lookup(ctx context.Context, phrase string) (int64, bool)
	Item(ctx context.Context, id int64) (catalog.Item, bool)
}

// Add is one resolved cart addition.
type Add struct {
	Item     catalog.Item
	Quantity int
	Note     string
}

// Engine resolves tokenized messages against the catalog.
type Engine struct {
	catalog Catalog
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for match diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New creates a resolution engine over the given catalog.
func New(cat Catalog, opts ...Option) *Engine {
	e := &Engine{catalog: cat, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ResolveText tokenizes a raw message and resolves it.
func (e *Engine) ResolveText(ctx context.Context, raw string) []Add {
	return e.Resolve(ctx, textnorm.Tokenize(raw))
}

// Resolve runs both matching passes over normalized tokens and returns
// the cart additions in message order (beverages first).
func (e *Engine) Resolve(ctx context.Context, tokens []string) []Add {
	if len(tokens) == 0 {
		return nil
	}
	consumed := make([]bool, len(tokens))
	adds := e.beveragePass(ctx, tokens, consumed)
	adds = append(adds, e.foodPass(ctx, tokens, consumed)...)
	if len(adds) > 0 {
		e.logger.Debug("resolved message", "tokens", len(tokens), "adds", len(adds))
	}
	return adds
}

// beveragePass matches beverage triggers and marks their token
// positions consumed so the food pass never re-reads them.
func (e *Engine) beveragePass(ctx context.Context, tokens []string, consumed []bool) []Add {
	var adds []Add
	for i := 0; i < len(tokens); i++ {
		item, n, ok := e.matchAt(ctx, tokens, consumed, i, func(it catalog.Item) bool {
			return it.Category == catalog.CategoryBeverage
		})
		if !ok {
			continue
		}
		adds = append(adds, Add{Item: item, Quantity: quantityBefore(tokens, i)})
		for j := i; j < i+n; j++ {
			consumed[j] = true
		}
		i += n - 1
	}
	return adds
}

// pendingItem accumulates a food line while its trailing tokens are
// still being read.
type pendingItem struct {
	item     catalog.Item
	quantity int
	note     []string
}

func (e *Engine) foodPass(ctx context.Context, tokens []string, consumed []bool) []Add {
	hasPotato := false
	for _, tok := range tokens {
		if potatoMarkers[tok] {
			hasPotato = true
			break
		}
	}

	var adds []Add
	var open *pendingItem
	flush := func() {
		if open == nil {
			return
		}
		adds = append(adds, Add{
			Item:     open.item,
			Quantity: open.quantity,
			Note:     strings.Join(open.note, " "),
		})
		open = nil
	}

	for i := 0; i < len(tokens); i++ {
		if consumed[i] {
			continue
		}
		tok := tokens[i]

		// "com tudo" on fries expands to the full set of extras, each
		// as its own priced line.
		if tok == "com" && hasPotato && nextIs(tokens, consumed, i, "tudo") {
			flush()
			for _, ing := range fullLoadIngredients {
				if add, ok := e.additionAdd(ctx, ing); ok {
					adds = append(adds, add)
				}
			}
			i++
			continue
		}

		if _, isNum := ParseQuantity(tok); isNum {
			// Quantity tokens are read as lookbehind context by the
			// item they precede.
			continue
		}

		if item, n, ok := e.matchFood(ctx, tokens, consumed, i); ok {
			if item.Category == catalog.CategoryAddition {
				flush()
				adds = append(adds, Add{Item: item, Quantity: quantityBefore(tokens, i)})
			} else {
				flush()
				open = &pendingItem{item: item, quantity: quantityBefore(tokens, i)}
			}
			i += n - 1
			continue
		}

		if open == nil || ignored[tok] {
			continue
		}

		// "mais bacon" / "adicional bacon": a priced extra line.
		if additiveLeads[tok] && i+1 < len(tokens) && ingredients[tokens[i+1]] {
			if add, ok := e.additionAdd(ctx, tokens[i+1]); ok {
				flush()
				adds = append(adds, add)
				i++
				continue
			}
		}

		// "sem cebola" / "com bacon": a preparation phrase on the open
		// item.
		if modifiers[tok] && i+1 < len(tokens) && ingredients[tokens[i+1]] {
			open.note = append(open.note, tok+" "+tokens[i+1])
			i++
			continue
		}

		// A bare ingredient shortly after an additive cue is still a
		// priced extra: "adicional de bacon" arrives here as "adicional
		// bacon" split by another phrase.
		if ingredients[tok] && hasAdditiveContext(tokens, i) {
			if add, ok := e.additionAdd(ctx, tok); ok {
				flush()
				adds = append(adds, add)
				continue
			}
		}

		open.note = append(open.note, tok)
	}
	flush()
	return adds
}

// matchAt finds the longest trigger phrase starting at position i whose
// item passes the filter. Windows touching consumed positions are
// skipped.
func (e *Engine) matchAt(ctx context.Context, tokens []string, consumed []bool, i int, keep func(catalog.Item) bool) (catalog.Item, int, bool) {
	max := textnorm.MaxNGram
	if rest := len(tokens) - i; rest < max {
		max = rest
	}
	for n := max; n >= 1; n-- {
		if anyConsumed(consumed, i, n) {
			continue
		}
		phrase, ok := textnorm.NGram(tokens, i, n)
		if !ok {
			continue
		}
		id, ok := e.catalog.Lookup(ctx, phrase)
		if !ok {
			continue
		}
		item, ok := e.catalog.Item(ctx, id)
		if !ok || !keep(item) {
			continue
		}
		return item, n, true
	}
	return catalog.Item{}, 0, false
}

// matchFood matches anything non-beverage, guarding against reading a
// preparation phrase as an item: a single ingredient token right after
// a modifier ("sem cebola") must stay part of the note even when the
// ingredient happens to have its own trigger.
func (e *Engine) matchFood(ctx context.Context, tokens []string, consumed []bool, i int) (catalog.Item, int, bool) {
	item, n, ok := e.matchAt(ctx, tokens, consumed, i, func(it catalog.Item) bool {
		return it.Category != catalog.CategoryBeverage
	})
	if !ok {
		return catalog.Item{}, 0, false
	}
	if n == 1 && ingredients[tokens[i]] && i > 0 && modifiers[tokens[i-1]] {
		return catalog.Item{}, 0, false
	}
	return item, n, true
}

// additionAdd resolves the priced extra for an ingredient, if the menu
// has one.
func (e *Engine) additionAdd(ctx context.Context, ingredient string) (Add, bool) {
	id, ok := e.catalog.Lookup(ctx, additionPhrase(ingredient))
	if !ok {
		return Add{}, false
	}
	item, ok := e.catalog.Item(ctx, id)
	if !ok || item.Category != catalog.CategoryAddition {
		return Add{}, false
	}
	return Add{Item: item, Quantity: 1}, true
}

// quantityBefore reads the token just before position i as a quantity.
// Missing or non-positive quantities coerce to one.
func quantityBefore(tokens []string, i int) int {
	if i == 0 {
		return 1
	}
	n, ok := ParseQuantity(tokens[i-1])
	if !ok || n < 1 {
		return 1
	}
	return n
}

func hasAdditiveContext(tokens []string, i int) bool {
	lo := i - additiveContextWindow
	if lo < 0 {
		lo = 0
	}
	for j := lo; j < i; j++ {
		if additiveLeads[tokens[j]] {
			return true
		}
	}
	return false
}

func nextIs(tokens []string, consumed []bool, i int, want string) bool {
	return i+1 < len(tokens) && !consumed[i+1] && tokens[i+1] == want
}

func anyConsumed(consumed []bool, i, n int) bool {
	for j := i; j < i+n; j++ {
		if consumed[j] {
			return true
		}
	}
	return false
}
