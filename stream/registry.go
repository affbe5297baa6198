package stream

import "sort"

// target is the desired subscription scope for one channel: either a set
// of explicit tickers or the all-markets wildcard, never both.
type target struct {
	all     bool
	tickers map[string]struct{}
}

// registry tracks the desired subscription set per channel, independent
// of connection state. It persists across reconnects and is replayed to
// each fresh connection. Callers synchronize access; the Client guards
// it with its own mutex.
type registry struct {
	targets map[Channel]*target
}

func newRegistry() *registry {
	return &registry{targets: make(map[Channel]*target)}
}

// add merges explicit tickers into the channel's target. If the channel
// was in wildcard mode the wildcard is replaced (last write wins).
func (r *registry) add(ch Channel, tickers []string) {
	t := r.targets[ch]
	if t == nil || t.all {
		t = &target{tickers: make(map[string]struct{})}
		r.targets[ch] = t
	}
	for _, tk := range tickers {
		t.tickers[tk] = struct{}{}
	}
}

// addAll puts the channel in wildcard mode, discarding any explicit set.
func (r *registry) addAll(ch Channel) {
	r.targets[ch] = &target{all: true}
}

// remove drops the given tickers from an explicit set. An empty ticker
// list, or a channel in wildcard mode, clears the channel entirely.
// Unknown tickers and channels are ignored.
func (r *registry) remove(ch Channel, tickers []string) {
	t := r.targets[ch]
	if t == nil {
		return
	}
	if t.all || len(tickers) == 0 {
		delete(r.targets, ch)
		return
	}
	for _, tk := range tickers {
		delete(t.tickers, tk)
	}
	if len(t.tickers) == 0 {
		delete(r.targets, ch)
	}
}

// clear drops every channel.
func (r *registry) clear() {
	r.targets = make(map[Channel]*target)
}

// wildcard reports whether the channel is in all-markets mode.
func (r *registry) wildcard(ch Channel) bool {
	t := r.targets[ch]
	return t != nil && t.all
}

// tickerSet returns the explicit tickers for a channel, sorted.
func (r *registry) tickerSet(ch Channel) []string {
	t := r.targets[ch]
	if t == nil || t.all {
		return nil
	}
	out := make([]string, 0, len(t.tickers))
	for tk := range t.tickers {
		out = append(out, tk)
	}
	sort.Strings(out)
	return out
}

// subscription is one replayable subscribe request.
type subscription struct {
	channel Channel
	all     bool
	tickers []string
}

// subscriptions returns the full desired state in stable channel order,
// for replay onto a fresh connection.
func (r *registry) subscriptions() []subscription {
	var subs []subscription
	for _, ch := range channels {
		t := r.targets[ch]
		if t == nil {
			continue
		}
		if t.all {
			subs = append(subs, subscription{channel: ch, all: true})
			continue
		}
		if tks := r.tickerSet(ch); len(tks) > 0 {
			subs = append(subs, subscription{channel: ch, tickers: tks})
		}
	}
	return subs
}
