// Package player plays back recorded audio fetched from the platform.
//
// The two primary abstractions are:
//
//   - [Backend] — knows how to open a URL as a seekable audio [Source].
//   - [Player] — drives a Source through a caller-supplied sink and emits
//     playback lifecycle events.
//
// Two backends ship with the package: [NewStreamBackend] plays progressively
// over HTTP range requests, [NewDownloadBackend] buffers the whole file
// first. [New] probes its backends in order and picks the first one that
// supports the URL, so callers get streaming where the server allows it and
// a buffered fallback everywhere else.
//
// The sink is any io.Writer; a real audio device writer applies its own
// backpressure, which is what paces playback. The Player itself does not
// sleep between chunks.
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Event classifies playback lifecycle notifications.
type Event string

const (
	// EventCanPlay fires once a source has been opened and is ready.
	EventCanPlay Event = "canplay"

	// EventPlaying fires when playback starts or resumes.
	EventPlaying Event = "playing"

	// EventTimeUpdate fires as playback progresses.
	EventTimeUpdate Event = "timeupdate"

	// EventPause fires when playback is paused or stopped.
	EventPause Event = "pause"

	// EventEnded fires when the source has been fully played.
	EventEnded Event = "ended"

	// EventError fires when playback aborts; Update.Err carries the cause.
	EventError Event = "error"
)

// Update is the payload delivered to event handlers.
type Update struct {
	// Position is the current byte offset into the source.
	Position int64

	// Size is the total source size in bytes, or -1 when unknown.
	Size int64

	// Err is set on EventError and nil otherwise.
	Err error
}

// Handler receives playback events. Handlers run on the playback goroutine;
// they must not block and must not call back into the Player.
type Handler func(u Update)

// Source is an open, seekable audio stream.
type Source interface {
	io.Reader
	io.Seeker
	io.Closer

	// Size returns the total length in bytes, or -1 when unknown.
	Size() int64
}

// Backend opens audio URLs. Implementations must be safe for concurrent use.
type Backend interface {
	// Name identifies the backend in logs.
	Name() string

	// Supported reports whether this backend can open the given URL. Probes
	// may hit the network; the context bounds them.
	Supported(ctx context.Context, url string) bool

	// Open fetches the URL and returns a seekable source.
	Open(ctx context.Context, url string) (Source, error)
}

// ErrNoSource is returned by playback controls before Load has succeeded.
var ErrNoSource = errors.New("player: no source loaded")

const chunkSize = 4096

// Player plays one source at a time through a sink. All methods are safe for
// concurrent use.
type Player struct {
	sink     io.Writer
	backends []Backend
	em       emitter

	// pos is updated by the pump goroutine without taking mu.
	pos atomic.Int64

	mu      sync.Mutex
	src     Source
	playing bool
	stop    chan struct{}
	done    chan struct{}
}

// New creates a Player writing to sink. When no backends are given, a
// streaming backend with a buffered-download fallback is installed.
func New(sink io.Writer, backends ...Backend) *Player {
	if len(backends) == 0 {
		backends = []Backend{NewStreamBackend(), NewDownloadBackend()}
	}
	return &Player{sink: sink, backends: backends}
}

// AddEventListener registers h for ev and returns a function that removes
// the registration again.
func (p *Player) AddEventListener(ev Event, h Handler) (remove func()) {
	return p.em.add(ev, h)
}

// Load opens the URL with the first backend that supports it, replacing any
// previously loaded source. Playback does not start; call Play.
func (p *Player) Load(ctx context.Context, url string) error {
	var (
		src  Source
		name string
	)
	for _, b := range p.backends {
		if !b.Supported(ctx, url) {
			continue
		}
		opened, err := b.Open(ctx, url)
		if err != nil {
			return fmt.Errorf("player: %s backend: %w", b.Name(), err)
		}
		src, name = opened, b.Name()
		break
	}
	if src == nil {
		return fmt.Errorf("player: no backend supports %q", url)
	}

	p.mu.Lock()
	p.haltLocked()
	if p.src != nil {
		_ = p.src.Close()
	}
	p.src = src
	p.pos.Store(0)
	size := src.Size()
	p.mu.Unlock()

	slog.Debug("player: source loaded", "backend", name, "size", size)
	p.em.emit(EventCanPlay, Update{Size: size})
	return nil
}

// Play starts or resumes playback from the current position.
func (p *Player) Play() error {
	p.mu.Lock()
	if p.src == nil {
		p.mu.Unlock()
		return ErrNoSource
	}
	if p.playing {
		p.mu.Unlock()
		return nil
	}
	p.playing = true
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	src, size, stop, done := p.src, p.src.Size(), p.stop, p.done
	p.mu.Unlock()

	p.em.emit(EventPlaying, Update{Position: p.pos.Load(), Size: size})
	go p.pump(src, size, stop, done)
	return nil
}

// Pause suspends playback, keeping the current position.
func (p *Player) Pause() error {
	p.mu.Lock()
	if p.src == nil {
		p.mu.Unlock()
		return ErrNoSource
	}
	wasPlaying := p.playing
	p.haltLocked()
	size := p.src.Size()
	p.mu.Unlock()

	if wasPlaying {
		p.em.emit(EventPause, Update{Position: p.pos.Load(), Size: size})
	}
	return nil
}

// Stop suspends playback and rewinds to the start.
func (p *Player) Stop() error {
	if err := p.Pause(); err != nil {
		return err
	}
	return p.Seek(0)
}

// Seek moves the playback position to the given byte offset. Seeking while
// playing continues playback from the new position.
func (p *Player) Seek(offset int64) error {
	p.mu.Lock()
	if p.src == nil {
		p.mu.Unlock()
		return ErrNoSource
	}
	resume := p.playing
	p.haltLocked()
	if _, err := p.src.Seek(offset, io.SeekStart); err != nil {
		p.mu.Unlock()
		return fmt.Errorf("player: seek: %w", err)
	}
	p.pos.Store(offset)
	size := p.src.Size()
	p.mu.Unlock()

	p.em.emit(EventTimeUpdate, Update{Position: offset, Size: size})
	if resume {
		return p.Play()
	}
	return nil
}

// Position returns the current byte offset into the source.
func (p *Player) Position() int64 {
	return p.pos.Load()
}

// Playing reports whether playback is currently running.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Close stops playback and releases the loaded source.
func (p *Player) Close() error {
	p.mu.Lock()
	p.haltLocked()
	src := p.src
	p.src = nil
	p.mu.Unlock()

	if src != nil {
		return src.Close()
	}
	return nil
}

// haltLocked stops the pump goroutine and waits for it to exit. The pump
// never takes p.mu, so waiting under the lock cannot deadlock.
func (p *Player) haltLocked() {
	if !p.playing {
		return
	}
	p.playing = false
	close(p.stop)
	<-p.done
	p.stop, p.done = nil, nil
}

func (p *Player) pump(src Source, size int64, stop, done chan struct{}) {
	buf := make([]byte, chunkSize)
	for {
		select {
		case <-stop:
			close(done)
			return
		default:
		}

		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := p.sink.Write(buf[:n]); werr != nil {
				close(done)
				p.settle(stop, fmt.Errorf("player: sink: %w", werr), size)
				return
			}
			pos := p.pos.Add(int64(n))
			p.em.emit(EventTimeUpdate, Update{Position: pos, Size: size})
		}
		if err != nil {
			close(done)
			if !errors.Is(err, io.EOF) {
				err = fmt.Errorf("player: read: %w", err)
			} else {
				err = nil
			}
			p.settle(stop, err, size)
			return
		}
	}
}

// settle flips the player back to stopped after the pump finished on its
// own. When a Pause/Stop raced the natural end, the stop channel is already
// closed and that call has emitted instead.
func (p *Player) settle(stop chan struct{}, err error, size int64) {
	p.mu.Lock()
	select {
	case <-stop:
		p.mu.Unlock()
		return
	default:
	}
	p.playing = false
	p.stop, p.done = nil, nil
	p.mu.Unlock()

	if err != nil {
		p.em.emit(EventError, Update{Position: p.pos.Load(), Size: size, Err: err})
		return
	}
	p.em.emit(EventEnded, Update{Position: p.pos.Load(), Size: size})
}
