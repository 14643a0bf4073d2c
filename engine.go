// Package mycos implements a deterministic execution engine for a mesh of
// bit-level state machines ("chunks") wired by Output->Input links,
// advanced one tick at a time via a synchronous micro-step wavefront.
package mycos

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mycos-run/mycos/chunkfmt"
	"github.com/mycos-run/mycos/internal/adjacency"
	"github.com/mycos-run/mycos/internal/bitstate"
	"github.com/mycos-run/mycos/internal/layout"
	"github.com/mycos-run/mycos/internal/scc"
	"github.com/mycos-run/mycos/internal/wavefront"
)

// Engine owns one load set's chunks, links, derived adjacency tables, and
// double-buffered state, and drives ticks over them.
type Engine struct {
	id  uuid.UUID
	log *zap.Logger
	cfg Config

	chunks []*chunkfmt.Chunk
	links  []chunkfmt.Link

	layout *layout.Layout
	csr    *adjacency.CSR
	state  *bitstate.Sections
	exec   *wavefront.Executor

	chunksLoaded bool
	linksLoaded  bool
}

// NewEngine creates an Engine with the given config and logger. A nil
// logger gets a production zap.Logger.
func NewEngine(cfg Config, log *zap.Logger) *Engine {
	if log == nil {
		log, _ = zap.NewProduction()
	}
	cfg = cfg.withDefaults()
	return &Engine{
		id:  uuid.New(),
		log: log,
		cfg: cfg,
	}
}

// ID returns this engine instance's identifier, used to correlate log
// lines and metrics across a process that hosts more than one Engine.
func (e *Engine) ID() uuid.UUID { return e.id }

// LoadChunks parses each raw chunk binary, assigns the global bit layout,
// and allocates double-buffered state. It replaces any previously loaded
// chunks and invalidates any previously built adjacency table.
func (e *Engine) LoadChunks(raw [][]byte) error {
	chunks := make([]*chunkfmt.Chunk, len(raw))
	for i, b := range raw {
		c, err := chunkfmt.Parse(b)
		if err != nil {
			return errors.Wrapf(ErrInvalidBinary, "chunk %d: %s", i, err)
		}
		chunks[i] = c
	}

	lo := layout.Build(chunks)
	state := bitstate.NewSections(lo.NumInput(), lo.NumInternal(), lo.NumOutput())
	for i, c := range chunks {
		state.Input.Seed(lo.BaseInput(i), c.Inputs, c.Ni)
		state.Internal.Seed(lo.BaseInternal(i), c.Internals, c.Nn)
		state.Output.Seed(lo.BaseOutput(i), c.Outputs, c.No)
	}

	e.chunks = chunks
	e.layout = lo
	e.state = state
	e.csr = nil
	e.exec = nil
	e.chunksLoaded = true
	e.linksLoaded = false

	e.log.Info("chunks loaded",
		zap.String("engine", e.id.String()),
		zap.Int("chunks", len(chunks)),
		zap.Uint32("inputs", lo.NumInput()),
		zap.Uint32("internals", lo.NumInternal()),
		zap.Uint32("outputs", lo.NumOutput()),
	)
	return nil
}

// LoadLinks parses the cross-chunk link table, builds the CSR-by-trigger
// adjacency over both chunk connections and links, and constructs the
// round-loop executor. Chunks must already be loaded.
func (e *Engine) LoadLinks(raw []byte) error {
	if !e.chunksLoaded {
		return ErrNotInitialized
	}
	links, err := chunkfmt.ParseLinks(raw)
	if err != nil {
		return errors.Wrap(ErrInvalidBinary, err.Error())
	}

	csr, err := adjacency.Build(e.chunks, links, e.layout)
	if err != nil {
		return errors.Wrap(ErrInvalidBinary, err.Error())
	}

	exec := wavefront.New(csr, e.layout, e.state, e.cfg.Policy, e.cfg.wavefrontConfig())
	if e.cfg.UseSCC {
		exec.SetSCC(e.buildSCC())
	}

	e.links = links
	e.csr = csr
	e.exec = exec
	e.linksLoaded = true

	e.log.Info("links loaded",
		zap.String("engine", e.id.String()),
		zap.Int("links", len(links)),
	)
	return nil
}

// buildSCC runs SCC analysis over the Internal->Internal subgraph induced
// by chunk connections (links never touch Internals). It yields component
// membership only; no topological level is computed per component.
func (e *Engine) buildSCC() *scc.Info {
	g := scc.NewGraph(int(e.layout.NumInternal()))
	for ci, c := range e.chunks {
		for _, conn := range c.Connections {
			if conn.FromSection != chunkfmt.SectionInternal || conn.ToSection != chunkfmt.SectionInternal {
				continue
			}
			u := e.layout.GlobalInternal(ci, conn.FromIndex) - e.layout.InternalStart()
			v := e.layout.GlobalInternal(ci, conn.ToIndex) - e.layout.InternalStart()
			g.AddEdge(int(u), int(v))
		}
	}
	return scc.Analyze(g)
}

func (e *Engine) ready() error {
	if !e.chunksLoaded || !e.linksLoaded {
		return ErrNotInitialized
	}
	return nil
}

// SetInputs overwrites chunk c's Input bits from words, a bit-packed
// LSB-first array of at least ceil(Ni/32) words.
func (e *Engine) SetInputs(chunk int, words []uint32) error {
	if err := e.ready(); err != nil {
		return err
	}
	if chunk < 0 || chunk >= len(e.chunks) {
		return errors.Errorf("mycos: chunk index %d out of range", chunk)
	}
	c := e.chunks[chunk]
	e.state.Input.WriteWords(e.layout.BaseInput(chunk), c.Ni, words)
	return nil
}

// GetOutputs reads chunk c's Output bits, as observed after the most
// recent completed tick, into dst (a bit-packed LSB-first array of at
// least ceil(No/32) words).
func (e *Engine) GetOutputs(chunk int, dst []uint32) error {
	if err := e.ready(); err != nil {
		return err
	}
	if chunk < 0 || chunk >= len(e.chunks) {
		return errors.Errorf("mycos: chunk index %d out of range", chunk)
	}
	c := e.chunks[chunk]
	e.state.Output.ReadWords(e.layout.BaseOutput(chunk), c.No, dst)
	return nil
}

// SetPolicy changes the quench policy applied the next time a tick
// detects a cycle.
func (e *Engine) SetPolicy(name string) error {
	if err := e.ready(); err != nil {
		return err
	}
	p, err := ParsePolicy(name)
	if err != nil {
		return err
	}
	e.cfg.Policy = p
	e.exec.SetPolicy(p)
	return nil
}

// Tick advances the engine by one tick: the full detect/expand/resolve
// /commit/next-frontier/cycle-detect round loop, finishing with the Tick
// Finalizer's Prev<-Curr commit across all sections. maxRoundsOverride, if
// non-nil, bounds this tick only.
func (e *Engine) Tick(maxRoundsOverride *uint32) (Metrics, error) {
	if err := e.ready(); err != nil {
		return Metrics{}, err
	}
	wm, err := e.exec.Tick(maxRoundsOverride)
	if err != nil {
		e.log.Error("tick failed",
			zap.String("engine", e.id.String()),
			zap.Error(err),
		)
		return Metrics{}, errors.Wrap(ErrCapacityExceeded, err.Error())
	}
	m := fromWavefront(wm)

	logFields := []zap.Field{
		zap.String("engine", e.id.String()),
		zap.Uint32("rounds", m.Rounds),
		zap.Uint64("effects_applied", m.EffectsApplied),
		zap.String("policy", m.Policy.String()),
	}
	if m.Oscillator {
		logFields = append(logFields, zap.Int("period", m.Period))
		e.log.Warn("oscillator detected", logFields...)
	} else if m.GuardTripped {
		e.log.Warn("guard tripped", logFields...)
	} else {
		e.log.Debug("tick complete", logFields...)
	}

	return m, nil
}

// Snapshot captures the Curr buffers of all three sections (Prev equals
// Curr after every tick; SetInputs changes Curr only, so Input bits written
// since the last tick are captured as written) so the state can be restored
// later without replaying from the initial chunk binaries. The cycle-hash
// ring is not part of a Snapshot.
type Snapshot struct {
	Input    []uint32
	Internal []uint32
	Output   []uint32
}

// Snapshot returns a deep copy of the engine's current state.
func (e *Engine) Snapshot() (Snapshot, error) {
	if err := e.ready(); err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Input:    e.state.Input.Snapshot(),
		Internal: e.state.Internal.Snapshot(),
		Output:   e.state.Output.Snapshot(),
	}, nil
}

// Restore overwrites the engine's Curr and Prev state from a snapshot
// taken by a prior call to Snapshot on a load set of the same shape.
func (e *Engine) Restore(s Snapshot) error {
	if err := e.ready(); err != nil {
		return err
	}
	e.state.Input.Restore(s.Input)
	e.state.Internal.Restore(s.Internal)
	e.state.Output.Restore(s.Output)
	e.state.CommitAll()
	return nil
}
