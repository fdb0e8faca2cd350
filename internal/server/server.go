package server

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/touch2tuio/internal/protocol/osc"
	"github.com/danmuck/touch2tuio/internal/transport"
	"github.com/danmuck/touch2tuio/internal/tuio"
	"github.com/rs/zerolog/log"
)

// DefaultXMLAddress is the ADDRESS attribute carried by XMLSocket packets.
const DefaultXMLAddress = "127.0.0.1"

// DatagramSender is a UDP channel endpoint.
type DatagramSender interface {
	Send([]byte) error
	BufferSize() int
	IsLocal() bool
	Running() bool
}

// StreamBroadcaster is the TCP channel endpoint.
type StreamBroadcaster interface {
	SendToAll([]byte) (int, error)
	Running() bool
}

// Observer receives dispatch outcomes. Implementations must not block.
type Observer interface {
	FrameCommitted(fseq int64, dirty bool)
	BundleSent(ch Channel)
	SendFailed(ch Channel, err error)
}

// Config wires a CursorServer. Nil senders leave their channel absent.
type Config struct {
	Manager *tuio.Manager

	UDPOne DatagramSender
	UDPTwo DatagramSender
	TCP    StreamBroadcaster

	EnableUDPOne bool
	EnableUDPTwo bool
	EnableTCP    bool

	FullUpdate     bool
	PeriodicUpdate bool
	UpdateInterval time.Duration
	InvertX        bool
	InvertY        bool

	// BundleCapacity overrides the UDP bundle size; zero uses the smallest sender buffer.
	BundleCapacity int
	XMLAddress     string
	XMLPort        int

	Clock    func() time.Duration
	Observer Observer
}

// CursorServer is a tuio.Manager whose CommitFrame also serializes the frame
// to the enabled channels. Like Manager it has a single writer.
type CursorServer struct {
	*tuio.Manager

	udp     [2]DatagramSender
	tcp     StreamBroadcaster
	enabled [channelCount]atomic.Bool

	fullUpdate     bool
	periodicUpdate bool
	updateInterval time.Duration
	invertX        bool
	invertY        bool
	xmlAddress     string
	xmlPort        int

	clock    func() time.Duration
	observer Observer
	bundle   *osc.BundleBuilder
	lastSent time.Duration

	sourceMu   sync.RWMutex
	sourceName string
}

// New builds a CursorServer. Call Start once the channels are ready.
func New(cfg Config) *CursorServer {
	mgr := cfg.Manager
	if mgr == nil {
		mgr = tuio.NewManager()
	}
	clock := cfg.Clock
	if clock == nil {
		started := time.Now()
		clock = func() time.Duration { return time.Since(started) }
	}
	xmlAddress := cfg.XMLAddress
	if xmlAddress == "" {
		xmlAddress = DefaultXMLAddress
	}
	interval := cfg.UpdateInterval
	if interval <= 0 {
		interval = time.Second
	}

	s := &CursorServer{
		Manager:        mgr,
		udp:            [2]DatagramSender{cfg.UDPOne, cfg.UDPTwo},
		tcp:            cfg.TCP,
		fullUpdate:     cfg.FullUpdate,
		periodicUpdate: cfg.PeriodicUpdate,
		updateInterval: interval,
		invertX:        cfg.InvertX,
		invertY:        cfg.InvertY,
		xmlAddress:     xmlAddress,
		xmlPort:        cfg.XMLPort,
		clock:          clock,
		observer:       cfg.Observer,
		bundle:         osc.NewBundleBuilder(bundleCapacity(cfg)),
	}
	s.enabled[ChannelUDPOne].Store(cfg.EnableUDPOne)
	s.enabled[ChannelUDPTwo].Store(cfg.EnableUDPTwo)
	s.enabled[ChannelTCP].Store(cfg.EnableTCP)
	return s
}

func bundleCapacity(cfg Config) int {
	if cfg.BundleCapacity > 0 {
		return cfg.BundleCapacity
	}
	capacity := 0
	for _, u := range []DatagramSender{cfg.UDPOne, cfg.UDPTwo} {
		if u == nil {
			continue
		}
		if capacity == 0 || u.BufferSize() < capacity {
			capacity = u.BufferSize()
		}
	}
	if capacity == 0 {
		capacity = transport.LocalBufferSize
	}
	return capacity
}

// SessionTime reads the session clock shared with input producers.
func (s *CursorServer) SessionTime() time.Duration {
	return s.clock()
}

// Start announces an empty cursor set on the UDP channels without consuming a frame.
func (s *CursorServer) Start() {
	s.lastSent = s.FrameTime()
	s.dispatchUDP(s.emptyBundle())
	log.Info().
		Str("source", s.SourceName()).
		Int("bundle_capacity", s.bundle.Capacity()).
		Bool("full_update", s.fullUpdate).
		Bool("periodic_update", s.periodicUpdate).
		Msg("server.CursorServer started")
}

// CommitFrame notifies subscribers and then sends the frame. A dirty frame is
// always sent; a clean one only when the keepalive interval has elapsed.
func (s *CursorServer) CommitFrame() {
	s.Manager.CommitFrame()

	now := s.FrameTime()
	fseq := int32(s.FrameID())
	dirty := s.Dirty()
	switch {
	case dirty:
		cursors := s.Cursors()
		include := func(c tuio.Cursor) bool { return s.fullUpdate || c.Time == now }
		if s.udpActive() {
			s.dispatchUDP(s.udpBundles(cursors, include, fseq))
		}
		if s.ChannelEnabled(ChannelTCP) {
			s.dispatchTCP(s.xmlPacket(cursors, include, now, fseq))
		}
		s.lastSent = now
	case s.periodicUpdate && now-s.lastSent >= s.updateInterval:
		cursors := s.Cursors()
		include := func(tuio.Cursor) bool { return s.fullUpdate }
		if s.udpActive() {
			s.dispatchUDP(s.udpBundles(cursors, include, fseq))
		}
		if s.ChannelEnabled(ChannelTCP) {
			s.dispatchTCP(s.xmlPacket(cursors, include, now, fseq))
		}
		s.lastSent = now
		log.Trace().Int32("fseq", fseq).Msg("server.CursorServer keepalive")
	}
	if s.observer != nil {
		s.observer.FrameCommitted(s.FrameID(), dirty)
	}
	s.ClearDirty()
}

// Close brings moving cursors to rest and sends a final empty frame on every
// enabled channel. Channel endpoints are owned by the caller.
func (s *CursorServer) Close() {
	s.InitFrame(s.clock())
	s.StopUntouchedMovingCursors()

	s.InitFrame(s.clock())
	s.dispatchUDP(s.emptyBundle())
	if s.ChannelEnabled(ChannelTCP) {
		none := func(tuio.Cursor) bool { return false }
		s.dispatchTCP(s.xmlPacket(nil, none, s.FrameTime(), int32(s.FrameID())))
	}
	s.ClearDirty()
	log.Info().Int64("fseq", s.FrameID()).Msg("server.CursorServer closed")
}

// SetSourceName sets the label sent with every UDP bundle. See SourceName.
func (s *CursorServer) SetSourceName(name string) {
	s.sourceMu.Lock()
	defer s.sourceMu.Unlock()
	s.sourceName = name
}

func (s *CursorServer) SourceName() string {
	s.sourceMu.RLock()
	defer s.sourceMu.RUnlock()
	return s.sourceName
}

// SetChannelEnabled toggles dispatch on ch. Encoding is unaffected.
func (s *CursorServer) SetChannelEnabled(ch Channel, on bool) error {
	if !ch.valid() {
		return ErrUnknownChannel
	}
	if s.enabled[ch].Swap(on) != on {
		log.Info().Str("channel", ch.String()).Bool("enabled", on).Msg("server.CursorServer channel toggled")
	}
	return nil
}

func (s *CursorServer) ChannelEnabled(ch Channel) bool {
	if !ch.valid() {
		return false
	}
	return s.enabled[ch].Load()
}

// ChannelRunning reports whether the channel endpoint is up, enabled or not.
func (s *CursorServer) ChannelRunning(ch Channel) bool {
	switch ch {
	case ChannelUDPOne, ChannelUDPTwo:
		u := s.udp[ch]
		return u != nil && u.Running()
	case ChannelTCP:
		return s.tcp != nil && s.tcp.Running()
	default:
		return false
	}
}

// ChannelStatuses returns the state of every channel.
func (s *CursorServer) ChannelStatuses() []ChannelStatus {
	out := make([]ChannelStatus, 0, channelCount)
	for _, ch := range Channels() {
		out = append(out, ChannelStatus{
			Channel: ch.String(),
			Enabled: s.ChannelEnabled(ch),
			Running: s.ChannelRunning(ch),
		})
	}
	return out
}

func (s *CursorServer) udpActive() bool {
	return s.ChannelEnabled(ChannelUDPOne) || s.ChannelEnabled(ChannelUDPTwo)
}

func (s *CursorServer) dispatchUDP(bundles [][]byte) {
	for _, ch := range []Channel{ChannelUDPOne, ChannelUDPTwo} {
		u := s.udp[ch]
		if u == nil || !s.ChannelEnabled(ch) {
			continue
		}
		for _, b := range bundles {
			if err := u.Send(b); err != nil {
				log.Debug().Err(err).Str("channel", ch.String()).Msg("server.CursorServer udp send failed")
				s.sendFailed(ch, err)
				continue
			}
			if s.observer != nil {
				s.observer.BundleSent(ch)
			}
		}
	}
}

func (s *CursorServer) dispatchTCP(packet []byte) {
	if s.tcp == nil || packet == nil {
		return
	}
	if _, err := s.tcp.SendToAll(packet); err != nil {
		log.Debug().Err(err).Msg("server.CursorServer tcp broadcast incomplete")
		s.sendFailed(ChannelTCP, err)
		return
	}
	if s.observer != nil {
		s.observer.BundleSent(ChannelTCP)
	}
}

func (s *CursorServer) sendFailed(ch Channel, err error) {
	if s.observer != nil {
		s.observer.SendFailed(ch, err)
	}
}
