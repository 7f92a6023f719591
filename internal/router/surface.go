package router

import "time"

// Surface receives the visual effects of transitions.
type Surface interface {
	ShowPage(p Page)
	// ScrollTo scrolls to anchor ("" is the top of the page) after delay.
	ScrollTo(anchor string, delay time.Duration)
	ShowModal(f Frame)
	HideModal(f Frame)
	LockScroll(locked bool)
	// ReplaceHash rewrites the location hash without producing a hash change.
	ReplaceHash(hash string)
}

// Discard is a Surface that ignores every effect.
type Discard struct{}

func (Discard) ShowPage(Page)                  {}
func (Discard) ScrollTo(string, time.Duration) {}
func (Discard) ShowModal(Frame)                {}
func (Discard) HideModal(Frame)                {}
func (Discard) LockScroll(bool)                {}
func (Discard) ReplaceHash(string)             {}

// Effect is one recorded Surface call.
type Effect struct {
	Op      string  `json:"op"`
	Page    string  `json:"page,omitempty"`
	Anchor  string  `json:"anchor,omitempty"`
	DelayMS int64   `json:"delay_ms,omitempty"`
	Frame   *Frame  `json:"frame,omitempty"`
	Locked  *bool   `json:"locked,omitempty"`
	Hash    *string `json:"hash,omitempty"`
}

// Recorder is a Surface that queues effects for a remote client to replay.
type Recorder struct {
	effects []Effect
}

func (r *Recorder) ShowPage(p Page) {
	r.effects = append(r.effects, Effect{Op: "show_page", Page: p.String()})
}

func (r *Recorder) ScrollTo(anchor string, delay time.Duration) {
	r.effects = append(r.effects, Effect{Op: "scroll_to", Anchor: anchor, DelayMS: delay.Milliseconds()})
}

func (r *Recorder) ShowModal(f Frame) {
	r.effects = append(r.effects, Effect{Op: "show_modal", Frame: &f})
}

func (r *Recorder) HideModal(f Frame) {
	r.effects = append(r.effects, Effect{Op: "hide_modal", Frame: &f})
}

func (r *Recorder) LockScroll(locked bool) {
	r.effects = append(r.effects, Effect{Op: "lock_scroll", Locked: &locked})
}

func (r *Recorder) ReplaceHash(hash string) {
	r.effects = append(r.effects, Effect{Op: "replace_hash", Hash: &hash})
}

// Drain returns the queued effects and resets the queue.
func (r *Recorder) Drain() []Effect {
	out := r.effects
	r.effects = nil
	return out
}
