package router

import (
	"encoding/json"
	"fmt"
)

// Page is one of the full-page views.
type Page int

const (
	PageHome Page = iota
	PageArchive
	PageTeam
)

func (p Page) String() string {
	switch p {
	case PageArchive:
		return "archive"
	case PageTeam:
		return "team"
	default:
		return "home"
	}
}

func (p Page) MarshalJSON() ([]byte, error) { return json.Marshal(p.String()) }

func (p *Page) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for _, c := range []Page{PageHome, PageArchive, PageTeam} {
		if c.String() == s {
			*p = c
			return nil
		}
	}
	return fmt.Errorf("router: unknown page %q", s)
}

// FrameKind identifies the dialog a modal frame shows.
type FrameKind int

const (
	FrameEvent FrameKind = iota
	FrameTeam
	FrameSeries
	FrameSpeakerList
)

func (k FrameKind) String() string {
	switch k {
	case FrameEvent:
		return "event"
	case FrameTeam:
		return "team"
	case FrameSeries:
		return "series"
	case FrameSpeakerList:
		return "speaker_list"
	default:
		return fmt.Sprintf("frame(%d)", int(k))
	}
}

func (k FrameKind) MarshalJSON() ([]byte, error) { return json.Marshal(k.String()) }

func (k *FrameKind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for _, c := range []FrameKind{FrameEvent, FrameTeam, FrameSeries, FrameSpeakerList} {
		if c.String() == s {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("router: unknown frame kind %q", s)
}

// dismissOrder is the fixed precedence for a single dismiss signal.
var dismissOrder = [...]FrameKind{FrameSpeakerList, FrameTeam, FrameEvent, FrameSeries}

// Frame is one open dialog. ID is the event id, member id or series title;
// for a speaker list it is the id of the event underneath.
type Frame struct {
	Kind FrameKind `json:"kind"`
	ID   string    `json:"id"`
}

// MaxDepth bounds the modal stack. The second frame, when present, is always
// a speaker list on top of an event.
const MaxDepth = 2

// State is the explicit view state: the active page, the open modal stack and
// an optional retained parent. The parent is a series view hidden while an
// event opened from it is shown.
type State struct {
	Page         Page    `json:"page"`
	Stack        []Frame `json:"stack"`
	Parent       *Frame  `json:"parent,omitempty"`
	ScrollLocked bool    `json:"scroll_locked"`
}

// Top returns the visible frame.
func (s State) Top() (Frame, bool) {
	if len(s.Stack) == 0 {
		return Frame{}, false
	}
	return s.Stack[len(s.Stack)-1], true
}

// Has reports whether a frame of kind is on the stack.
func (s State) Has(kind FrameKind) bool {
	for _, f := range s.Stack {
		if f.Kind == kind {
			return true
		}
	}
	return false
}

// HasModal reports whether any dialog is open.
func (s State) HasModal() bool { return len(s.Stack) > 0 }

func (s State) clone() State {
	out := s
	out.Stack = append([]Frame(nil), s.Stack...)
	if s.Parent != nil {
		p := *s.Parent
		out.Parent = &p
	}
	return out
}

// Validate checks the stacking invariants.
func (s State) Validate() error {
	if len(s.Stack) > MaxDepth {
		return fmt.Errorf("router: stack depth %d exceeds %d", len(s.Stack), MaxDepth)
	}
	for i, f := range s.Stack {
		if f.Kind == FrameSpeakerList && i == 0 {
			return fmt.Errorf("router: speaker list without an event underneath")
		}
	}
	if len(s.Stack) == MaxDepth {
		if s.Stack[0].Kind != FrameEvent || s.Stack[1].Kind != FrameSpeakerList {
			return fmt.Errorf("router: invalid frames %v/%v", s.Stack[0].Kind, s.Stack[1].Kind)
		}
		if s.Stack[1].ID != s.Stack[0].ID {
			return fmt.Errorf("router: speaker list for %q over event %q", s.Stack[1].ID, s.Stack[0].ID)
		}
	}
	if s.Parent != nil {
		if s.Parent.Kind != FrameSeries {
			return fmt.Errorf("router: retained parent must be a series, got %v", s.Parent.Kind)
		}
		if len(s.Stack) == 0 || s.Stack[0].Kind != FrameEvent {
			return fmt.Errorf("router: retained series without an event on top")
		}
	}
	if s.ScrollLocked != s.HasModal() {
		return fmt.Errorf("router: scroll lock %v with %d open frames", s.ScrollLocked, len(s.Stack))
	}
	return nil
}
