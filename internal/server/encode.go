package server

import (
	"errors"
	"sort"
	"time"

	"github.com/danmuck/touch2tuio/internal/protocol"
	"github.com/danmuck/touch2tuio/internal/protocol/osc"
	"github.com/danmuck/touch2tuio/internal/protocol/xmlosc"
	"github.com/danmuck/touch2tuio/internal/tuio"
	"github.com/rs/zerolog/log"
)

// CursorMessageSize is the worst-case room one set message plus the closing
// fseq needs inside a bundle.
const CursorMessageSize = 88

// fseqElementSize is the bundle room the closing fseq takes.
var fseqElementSize = func() int {
	n, _ := osc.MessageSize(protocol.FseqMessage(0))
	return osc.ElementSizeLen + n
}()

// udpBundles encodes cursors into as many bundles as the capacity requires.
// Only the first bundle carries alive; every bundle repeats source and ends with fseq.
func (s *CursorServer) udpBundles(cursors []tuio.Cursor, include func(tuio.Cursor) bool, fseq int32) [][]byte {
	source := s.SourceName()
	b := s.bundle
	out := make([][]byte, 0, 1)

	begin := func() {
		b.Begin()
		if source != "" {
			s.addMessage(protocol.SourceMessage(source))
		}
	}
	flush := func() {
		s.addMessage(protocol.FseqMessage(fseq))
		out = append(out, append([]byte(nil), b.End()...))
	}

	begin()
	s.addAlive(sessionIDs(cursors))
	for _, c := range cursors {
		if !include(c) {
			continue
		}
		if b.Remaining() < CursorMessageSize {
			flush()
			begin()
		}
		s.addMessage(protocol.SetMessage(s.cursorSet(c)))
	}
	flush()
	return out
}

// emptyBundle announces that no cursors are alive, with fseq -1.
func (s *CursorServer) emptyBundle() [][]byte {
	b := s.bundle
	b.Begin()
	if source := s.SourceName(); source != "" {
		s.addMessage(protocol.SourceMessage(source))
	}
	s.addMessage(protocol.AliveMessage(nil))
	s.addMessage(protocol.FseqMessage(-1))
	return [][]byte{append([]byte(nil), b.End()...)}
}

// addAlive adds as many alive ids as fit while leaving room for fseq.
func (s *CursorServer) addAlive(ids []int32) {
	room := s.bundle.Remaining() - fseqElementSize
	fits := func(k int) bool {
		n, err := osc.MessageSize(protocol.AliveMessage(ids[:k]))
		return err == nil && osc.ElementSizeLen+n <= room
	}
	if !fits(len(ids)) {
		k := sort.Search(len(ids)+1, func(k int) bool { return !fits(k) }) - 1
		log.Warn().
			Int("alive", len(ids)).
			Int("kept", max(k, 0)).
			Int("capacity", s.bundle.Capacity()).
			Msg("server.CursorServer alive list truncated")
		if k < 0 {
			return
		}
		ids = ids[:k]
	}
	s.addMessage(protocol.AliveMessage(ids))
}

func (s *CursorServer) addMessage(msg protocol.Message) {
	if err := s.bundle.Add(msg); err != nil {
		level := log.Warn()
		if !errors.Is(err, osc.ErrBundleFull) {
			level = log.Error()
		}
		cmd, _ := msg.Command()
		level.Err(err).Str("command", cmd).Int("capacity", s.bundle.Capacity()).Msg("server.CursorServer message dropped")
	}
}

// xmlPacket encodes sets, alive and fseq as one XMLSocket document.
func (s *CursorServer) xmlPacket(cursors []tuio.Cursor, include func(tuio.Cursor) bool, frameTime time.Duration, fseq int32) []byte {
	msgs := make([]protocol.Message, 0, len(cursors)+2)
	for _, c := range cursors {
		if include(c) {
			msgs = append(msgs, protocol.SetMessage(s.cursorSet(c)))
		}
	}
	msgs = append(msgs, protocol.AliveMessage(sessionIDs(cursors)), protocol.FseqMessage(fseq))

	packet := xmlosc.Packet{
		Address:  s.xmlAddress,
		Port:     s.xmlPort,
		Time:     xmlosc.PacketTime(frameTime),
		Messages: msgs,
	}
	raw, err := packet.Encode()
	if err != nil {
		log.Error().Err(err).Msg("server.CursorServer xml encode failed")
		return nil
	}
	return raw
}

func (s *CursorServer) cursorSet(c tuio.Cursor) protocol.CursorSet {
	return protocol.CursorSet{
		SessionID:   int32(c.SessionID),
		X:           float32(c.X),
		Y:           float32(c.Y),
		XSpeed:      float32(c.XSpeed),
		YSpeed:      float32(c.YSpeed),
		MotionAccel: float32(c.MotionAccel),
	}.Inverted(s.invertX, s.invertY)
}

func sessionIDs(cursors []tuio.Cursor) []int32 {
	ids := make([]int32, 0, len(cursors))
	for _, c := range cursors {
		ids = append(ids, int32(c.SessionID))
	}
	return ids
}
