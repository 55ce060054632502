package audio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmylchreest/keyclack/internal/model"
)

// activeBank pairs a bank with the samples decoded from it. The pair is
// swapped as a unit.
type activeBank struct {
	id   string
	bank *model.SoundBank
	set  *SampleSet
	rep  LoadReport
}

type activation struct {
	report LoadReport
	err    error
}

// Engine turns key codes into sounds. Every mutating method enqueues an
// operation on a single control goroutine and returns immediately; queries
// read atomically published snapshots and are safe from any goroutine.
type Engine struct {
	opts   options
	logger *slog.Logger
	store  *SampleStore
	pool   *VoicePool
	output Output

	ops     chan func()
	stopCh  chan struct{}
	closing chan struct{}
	doneCh  chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once

	running atomic.Bool
	state   atomic.Int32
	active  atomic.Pointer[activeBank]
	status  atomic.Pointer[Status]

	processed atomic.Uint64
	dropped   atomic.Uint64
	triggered atomic.Uint64

	handlerMu sync.RWMutex
	handler   func(Event)

	loaders sync.WaitGroup

	// Owned by the control goroutine.
	volume        float64
	pitchBase     float64
	variance      bool
	muted         bool
	outputStarted bool
	outputOK      bool
	outputFailed  bool
	lastActivity  time.Time
	loadSeq       uint64
	loadCancel    context.CancelFunc
	loadCtx       context.Context
	cancelLoads   context.CancelFunc
}

// NewEngine creates an engine. It does nothing until Start.
func NewEngine(opts ...Option) *Engine {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.output == nil {
		o.output = NewSpeakerOutput(DefaultSampleRate, 0)
	}

	e := &Engine{
		opts:      o,
		logger:    o.logger,
		store:     NewSampleStore(o.logger, o.maxSampleBytes),
		pool:      NewVoicePool(o.polyphony, o.output.SampleRate(), o.quality),
		output:    o.output,
		ops:       make(chan func(), o.queueCapacity),
		stopCh:    make(chan struct{}),
		closing:   make(chan struct{}),
		doneCh:    make(chan struct{}),
		volume:    o.volume,
		pitchBase: o.pitchBase,
		variance:  o.variance,
	}
	e.pool.SetVolume(e.volume)
	e.publishStatus()
	return e
}

// Start opens the output and begins processing the control queue. An output
// that fails to open leaves the engine running with triggers suppressed
// until Resume succeeds. Cancelling ctx shuts the engine down.
func (e *Engine) Start(ctx context.Context) error {
	started := false
	e.startOnce.Do(func() {
		started = true
	})
	if !started {
		if e.State() == StateClosed {
			return ErrNotRunning
		}
		return nil
	}
	if !e.state.CompareAndSwap(int32(StateUninitialized), int32(StateReady)) {
		return ErrNotRunning
	}

	e.loadCtx, e.cancelLoads = context.WithCancel(context.Background())
	e.startOutput()
	e.lastActivity = e.opts.now()
	e.publishStatus()

	e.logger.Info("audio engine started",
		"polyphony", e.pool.Size(),
		"sample_rate", e.output.SampleRate(),
		"output", e.outputOK)

	e.running.Store(true)
	go e.loop(ctx)
	return nil
}

// Shutdown stops the control goroutine, halts output and drops all decoded
// samples. Pending operations are discarded.
func (e *Engine) Shutdown() {
	e.stopOnce.Do(func() {
		close(e.stopCh)
	})
	if e.state.CompareAndSwap(int32(StateUninitialized), int32(StateClosed)) {
		e.startOnce.Do(func() {})
		e.publishStatus()
		return
	}
	<-e.doneCh
}

// Done is closed once the engine has shut down.
func (e *Engine) Done() <-chan struct{} {
	return e.doneCh
}

func (e *Engine) loop(ctx context.Context) {
	defer close(e.doneCh)
	defer e.teardown()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stopCh:
			return
		case fn := <-e.ops:
			fn()
			e.processed.Add(1)
			e.publishStatus()
		}
	}
}

func (e *Engine) teardown() {
	e.running.Store(false)
	close(e.closing)

	e.cancelLoads()
	e.pool.StopAll()
	if err := e.output.Close(); err != nil {
		e.logger.Warn("failed to close audio output", "error", err)
	}
	e.loaders.Wait()

	e.store.Release()
	e.active.Store(nil)
	e.state.Store(int32(StateClosed))
	e.publishStatus()
	e.logger.Info("audio engine stopped")
}

// SetEventHandler installs fn to receive events. fn runs on the control
// goroutine and must not block.
func (e *Engine) SetEventHandler(fn func(Event)) {
	e.handlerMu.Lock()
	e.handler = fn
	e.handlerMu.Unlock()
}

func (e *Engine) emit(ev Event) {
	ev.Time = e.opts.now()
	e.handlerMu.RLock()
	fn := e.handler
	e.handlerMu.RUnlock()
	if fn != nil {
		fn(ev)
	}
}

// submit enqueues fn without blocking.
func (e *Engine) submit(fn func()) error {
	if !e.running.Load() {
		return ErrNotRunning
	}
	select {
	case e.ops <- fn:
		return nil
	default:
		e.dropped.Add(1)
		return ErrQueueFull
	}
}

// submitBlocking enqueues fn, waiting for room. Only internal completions
// and barriers use it.
func (e *Engine) submitBlocking(ctx context.Context, fn func()) error {
	if !e.running.Load() {
		return ErrNotRunning
	}
	select {
	case e.ops <- fn:
		return nil
	case <-e.closing:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until every operation submitted before it has run.
func (e *Engine) Wait(ctx context.Context) error {
	done := make(chan struct{})
	if err := e.submitBlocking(ctx, func() { close(done) }); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-e.doneCh:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ActivateBank stops all voices and loads bank in the background. The new
// bank replaces the active one when its load completes, unless another
// activation was submitted in the meantime. It returns the activation ID
// carried by the resulting events.
func (e *Engine) ActivateBank(bank *model.SoundBank, resolver Resolver) (string, error) {
	return e.activateBank(bank, resolver, nil)
}

// ActivateBankAndWait is ActivateBank followed by waiting for this
// activation to be installed. It returns ErrSuperseded when a later
// activation won, and ErrEmptyBank when the bank was installed with no
// playable samples.
func (e *Engine) ActivateBankAndWait(ctx context.Context, bank *model.SoundBank, resolver Resolver) (LoadReport, error) {
	done := make(chan activation, 1)
	if _, err := e.activateBank(bank, resolver, done); err != nil {
		return LoadReport{}, err
	}
	select {
	case res := <-done:
		return res.report, res.err
	case <-e.doneCh:
		return LoadReport{}, ErrNotRunning
	case <-ctx.Done():
		return LoadReport{}, ctx.Err()
	}
}

func (e *Engine) activateBank(bank *model.SoundBank, resolver Resolver, done chan activation) (string, error) {
	if bank == nil {
		return "", ErrNilBank
	}
	if resolver == nil {
		return "", ErrNilResolver
	}
	id, err := model.NewActivationID()
	if err != nil {
		return "", err
	}
	if err := e.submit(func() { e.beginActivation(id, bank, resolver, done) }); err != nil {
		return "", err
	}
	return id, nil
}

func (e *Engine) beginActivation(id string, bank *model.SoundBank, resolver Resolver, done chan activation) {
	e.pool.StopAll()

	if e.loadCancel != nil {
		e.loadCancel()
	}
	e.loadSeq++
	seq := e.loadSeq
	ctx, cancel := context.WithCancel(e.loadCtx)
	e.loadCancel = cancel

	e.logger.Debug("activating bank", "bank", bank.Name, "activation", id)

	e.loaders.Add(1)
	go func() {
		defer e.loaders.Done()

		set, report, err := e.store.Load(ctx, bank, resolver)
		report.ID = id
		finish := func() { e.finishActivation(seq, bank, set, report, err, done) }
		if serr := e.submitBlocking(context.Background(), finish); serr != nil {
			cancel()
			reply(done, activation{report: report, err: serr})
		}
	}()
}

func (e *Engine) finishActivation(seq uint64, bank *model.SoundBank, set *SampleSet, report LoadReport, err error, done chan activation) {
	if seq != e.loadSeq {
		e.logger.Debug("discarding superseded bank load", "bank", bank.Name, "activation", report.ID)
		e.emit(Event{Type: EventLoadSuperseded, ActivationID: report.ID, Bank: bank.Name, Err: ErrSuperseded})
		reply(done, activation{report: report, err: ErrSuperseded})
		return
	}
	e.loadCancel()
	e.loadCancel = nil

	if err != nil {
		e.logger.Warn("bank load failed", "bank", bank.Name, "error", err)
		e.emit(Event{Type: EventBankFailed, ActivationID: report.ID, Bank: bank.Name, Report: &report, Err: err})
		reply(done, activation{report: report, err: err})
		return
	}

	e.store.Swap(set)
	e.active.Store(&activeBank{id: report.ID, bank: bank, set: set, rep: report})

	var result error
	if set.Len() == 0 {
		e.logger.Warn("bank has no playable samples", "bank", bank.Name, "requested", report.Requested)
		result = ErrEmptyBank
	}
	e.emit(Event{Type: EventBankActivated, ActivationID: report.ID, Bank: bank.Name, Report: &report, Err: result})
	reply(done, activation{report: report, err: result})
}

func reply(done chan activation, a activation) {
	if done != nil {
		done <- a
	}
}

// Trigger plays the sample mapped to keyID on the next voice. It does
// nothing while muted, paused, without output, without a bank, or when the
// key resolves past the loaded samples.
func (e *Engine) Trigger(keyID uint16) error {
	return e.submit(func() { e.trigger(keyID) })
}

func (e *Engine) trigger(keyID uint16) {
	e.lastActivity = e.opts.now()
	if e.muted || !e.playable() {
		return
	}

	ab := e.active.Load()
	if ab == nil {
		return
	}
	idx, ok := ab.bank.AudioIndex(keyID)
	if !ok {
		return
	}
	buffer, ok := ab.set.At(idx)
	if !ok {
		e.logger.Debug("ignoring key", "key", keyID, "index", idx, "loaded", ab.set.Len(), "error", ErrInvalidKeyMapping)
		return
	}

	v := e.pool.AcquireNext()
	rate := e.nextRate()
	e.pool.Play(v, buffer, rate)
	e.triggered.Add(1)
}

func (e *Engine) nextRate() float64 {
	if !e.variance {
		return e.pitchBase
	}
	return e.pitchBase + (e.opts.random()*2-1)*PitchVariance
}

func (e *Engine) playable() bool {
	return State(e.state.Load()) == StateReady && e.outputOK
}

// Preview plays sample index (wrapped to the loaded count) at the base
// pitch. Mute does not apply to previews.
func (e *Engine) Preview(index int) error {
	return e.submit(func() { e.preview(index) })
}

func (e *Engine) preview(index int) {
	e.lastActivity = e.opts.now()
	if !e.playable() {
		return
	}
	ab := e.active.Load()
	if ab == nil || ab.set.Len() == 0 {
		return
	}
	n := ab.set.Len()
	buffer, _ := ab.set.At(((index % n) + n) % n)
	e.pool.Play(e.pool.AcquireNext(), buffer, e.pitchBase)
}

// SetVolume sets the master gain, clamped to [0, 1].
func (e *Engine) SetVolume(v float64) error {
	v = clampVolume(v)
	return e.submit(func() {
		e.volume = v
		e.pool.SetVolume(v)
	})
}

// SetMute suppresses or re-enables triggers.
func (e *Engine) SetMute(muted bool) error {
	return e.submit(func() { e.muted = muted })
}

// SetPitchBase sets the base playback rate.
func (e *Engine) SetPitchBase(rate float64) error {
	rate = clampRate(rate)
	return e.submit(func() { e.pitchBase = rate })
}

// SetPitchVarianceEnabled toggles the random per-trigger pitch offset.
func (e *Engine) SetPitchVarianceEnabled(enabled bool) error {
	return e.submit(func() { e.variance = enabled })
}

// Pause suspends the output. Buffers, voices and settings are kept.
func (e *Engine) Pause() error {
	return e.submit(func() { e.pause("requested") })
}

func (e *Engine) pause(reason string) {
	if State(e.state.Load()) != StateReady {
		return
	}
	if e.outputStarted {
		if err := e.output.Suspend(); err != nil {
			e.logger.Warn("failed to suspend audio output", "error", err)
		}
	}
	e.state.Store(int32(StatePaused))
	e.logger.Debug("audio engine paused", "reason", reason)
	e.emit(Event{Type: EventPaused, Reason: reason})
}

// Resume restarts output after Pause, or retries an output that failed.
func (e *Engine) Resume() error {
	return e.submit(e.resume)
}

func (e *Engine) resume() {
	st := State(e.state.Load())
	if st == StateClosed || st == StateUninitialized {
		return
	}
	e.lastActivity = e.opts.now()
	if st == StateReady && e.outputOK {
		return
	}

	if !e.outputStarted {
		e.startOutput()
	} else if err := e.output.Resume(); err != nil {
		e.outputUnavailable(err)
	} else {
		e.outputRestored()
	}

	if st == StatePaused {
		e.state.Store(int32(StateReady))
		e.logger.Debug("audio engine resumed")
		e.emit(Event{Type: EventResumed})
	}
}

func (e *Engine) startOutput() {
	if err := e.output.Start(e.pool.Streamer()); err != nil {
		e.outputUnavailable(err)
		return
	}
	e.outputStarted = true
	e.outputRestored()
}

func (e *Engine) outputRestored() {
	e.outputOK = true
	if e.outputFailed {
		e.outputFailed = false
		e.logger.Info("audio output restored")
		e.emit(Event{Type: EventOutputRestored})
	}
}

func (e *Engine) outputUnavailable(err error) {
	e.outputOK = false
	e.outputFailed = true
	e.logger.Warn("audio output unavailable", "error", err)
	e.emit(Event{Type: EventOutputUnavailable, Err: fmt.Errorf("%w: %w", ErrOutputUnavailable, err)})
}

// CheckIdle pauses the engine when no trigger has arrived for the idle
// timeout as of now.
func (e *Engine) CheckIdle(now time.Time) error {
	return e.submit(func() {
		if e.opts.idleTimeout <= 0 {
			return
		}
		if now.Sub(e.lastActivity) >= e.opts.idleTimeout {
			e.pause("idle")
		}
	})
}

// ActiveBank returns the bank whose samples are installed, or nil.
func (e *Engine) ActiveBank() *model.SoundBank {
	if ab := e.active.Load(); ab != nil {
		return ab.bank
	}
	return nil
}

// ActiveSamples returns the installed sample set, or nil.
func (e *Engine) ActiveSamples() *SampleSet {
	if ab := e.active.Load(); ab != nil {
		return ab.set
	}
	return nil
}

// CanPreview reports whether index addresses a loaded sample.
func (e *Engine) CanPreview(index int) bool {
	ab := e.active.Load()
	return ab != nil && index >= 0 && index < ab.set.Len()
}

// State returns the lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Status returns the last published snapshot with live counters.
func (e *Engine) Status() Status {
	s := *e.status.Load()
	s.ActiveVoices = e.pool.Active()
	s.Triggered = e.triggered.Load()
	s.Processed = e.processed.Load()
	s.Dropped = e.dropped.Load()
	return s
}

// Pool exposes the voice pool for inspection.
func (e *Engine) Pool() *VoicePool {
	return e.pool
}

func (e *Engine) publishStatus() {
	s := &Status{
		State:           State(e.state.Load()),
		Volume:          e.volume,
		Muted:           e.muted,
		PitchBase:       e.pitchBase,
		PitchVariance:   e.variance,
		OutputAvailable: e.outputOK,
		Polyphony:       e.pool.Size(),
		LastActivity:    e.lastActivity,
	}
	if ab := e.active.Load(); ab != nil {
		s.Bank = ab.bank.Name
		s.ActivationID = ab.id
		s.Loaded = ab.set.Len()
		s.Requested = ab.rep.Requested
	}
	e.status.Store(s)
}

func clampVolume(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
