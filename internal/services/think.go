package services

import (
	"strings"

	"github.com/GregMSThompson/finance-ledger/internal/dto"
)

const (
	thinkOpen  = "<think>"
	thinkClose = "</think>"
)

// thinkSplitter separates inline <think>…</think> segments from the answer
// text of a token stream. Tags may arrive split across chunks, so a trailing
// fragment that could still become a tag is held back until the next Feed.
type thinkSplitter struct {
	inThink bool
	pending string
}

func (s *thinkSplitter) Feed(chunk string) []dto.ChatEvent {
	s.pending += chunk

	var events []dto.ChatEvent
	for {
		tag := thinkOpen
		if s.inThink {
			tag = thinkClose
		}

		if idx := strings.Index(s.pending, tag); idx >= 0 {
			events = s.appendEvent(events, s.pending[:idx])
			s.pending = s.pending[idx+len(tag):]
			s.inThink = !s.inThink
			continue
		}

		keep := partialTagSuffix(s.pending, tag)
		events = s.appendEvent(events, s.pending[:len(s.pending)-keep])
		s.pending = s.pending[len(s.pending)-keep:]
		return events
	}
}

// Flush releases whatever is still held back. An unterminated tag fragment is
// plain text at this point.
func (s *thinkSplitter) Flush() []dto.ChatEvent {
	events := s.appendEvent(nil, s.pending)
	s.pending = ""
	return events
}

func (s *thinkSplitter) appendEvent(events []dto.ChatEvent, text string) []dto.ChatEvent {
	if text == "" {
		return events
	}
	kind := dto.ChatEventAnswer
	if s.inThink {
		kind = dto.ChatEventThinking
	}
	// merge with the previous event of the same kind
	if n := len(events); n > 0 && events[n-1].Kind == kind {
		events[n-1].Text += text
		return events
	}
	return append(events, dto.ChatEvent{Kind: kind, Text: text})
}

// partialTagSuffix returns the length of the longest suffix of s that is a
// proper prefix of tag.
func partialTagSuffix(s, tag string) int {
	for n := min(len(s), len(tag)-1); n > 0; n-- {
		if strings.HasSuffix(s, tag[:n]) {
			return n
		}
	}
	return 0
}
