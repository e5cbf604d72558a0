package factory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/skills"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/infrastructure/monitoring"
	apperrors "github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/errors"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/utils"
)

const (
	DefaultSessionTTL    = time.Hour
	DefaultSweepInterval = 5 * time.Minute
)

// SkillCreator materializes finished dialogues
type SkillCreator interface {
	Create(ctx context.Context, req skills.CreateRequest) (*skills.Skill, error)
}

// Session is one dialogue's progress
type Session struct {
	ID        string    `json:"id"`
	Step      Step      `json:"step"`
	Answers   Answers   `json:"answers"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Response is returned by Start and Continue
type Response struct {
	SessionID string          `json:"session_id"`
	Step      Step            `json:"step"`
	Prompt    string          `json:"prompt"`
	Done      bool            `json:"done"`
	Skill     *skills.Summary `json:"skill,omitempty"`
}

// Options configures a Factory
type Options struct {
	TTL           time.Duration
	SweepInterval time.Duration
	Logger        *zap.Logger
	Metrics       *monitoring.Metrics
	// Now overrides the clock
	Now func() time.Time
}

// entry guards one session. removed is set under mu once the session is
// consumed or expired so late waiters observe NotFound.
type entry struct {
	mu      sync.Mutex
	session Session
	removed bool
}

// Factory runs skill-creation dialogues
type Factory struct {
	creator  SkillCreator
	sessions sync.Map // id -> *entry
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger
	metrics  *monitoring.Metrics

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a Factory and starts its expiry sweeper
func New(creator SkillCreator, opts Options) *Factory {
	if opts.TTL <= 0 {
		opts.TTL = DefaultSessionTTL
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	f := &Factory{
		creator:  creator,
		ttl:      opts.TTL,
		interval: opts.SweepInterval,
		now:      opts.Now,
		logger:   opts.Logger.Named("factory"),
		metrics:  opts.Metrics,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go f.sweepLoop()
	return f
}

// Start opens a session. A non-empty initial input answers the goal.
func (f *Factory) Start(ctx context.Context, initialInput string) (*Response, error) {
	now := f.now()
	s := Session{
		ID:        uuid.NewString(),
		Step:      StepGoal,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if goal := strings.TrimSpace(utils.SanitizeString(initialInput)); goal != "" {
		s.Answers.Goal = goal
		s.Step = StepTrigger
	}

	f.sessions.Store(s.ID, &entry{session: s})
	f.gauge(1)
	f.logger.Debug("factory session started", zap.String("session_id", s.ID), zap.Stringer("step", s.Step))

	return &Response{SessionID: s.ID, Step: s.Step, Prompt: s.Step.Prompt()}, nil
}

// Continue records input for the session's current step and advances it
func (f *Factory) Continue(ctx context.Context, id, input string) (*Response, error) {
	v, ok := f.sessions.Load(id)
	if !ok {
		return nil, sessionNotFound(id)
	}
	e := v.(*entry)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.removed {
		return nil, sessionNotFound(id)
	}
	now := f.now()
	if f.expired(&e.session, now) {
		f.remove(id, e)
		return nil, sessionNotFound(id)
	}

	s := &e.session
	s.UpdatedAt = now
	input = utils.SanitizeString(input)

	switch s.Step {
	case StepGoal:
		s.Answers.Goal = strings.TrimSpace(input)
	case StepTrigger:
		s.Answers.Triggers = ParseTriggers(input)
	case StepExample:
		s.Answers.ExampleInput, s.Answers.ExampleOutput = ParseExample(input)
	case StepComplexity:
		s.Answers.Complexity = ParseComplexity(input)
	case StepEdgeCases:
		s.Answers.EdgeCases = strings.TrimSpace(input)
	case StepConfirm:
		switch {
		case IsAffirmative(input):
			return f.complete(ctx, id, e)
		case IsRestart(input):
			s.Answers = Answers{}
			s.Step = StepGoal
		default:
			if name, ok := ParseRename(input); ok {
				s.Answers.Name = SanitizeName(name)
			}
		}
		return f.respond(s), nil
	}

	s.Step = s.Step.Next()
	return f.respond(s), nil
}

// complete creates the skill and consumes the session. On failure the
// session stays at Confirm.
func (f *Factory) complete(ctx context.Context, id string, e *entry) (*Response, error) {
	req := e.session.Answers.createRequest()
	skill, err := f.creator.Create(ctx, req)
	if err != nil {
		f.logger.Warn("factory skill creation failed",
			zap.String("session_id", id), zap.String("skill", req.Name), zap.Error(err))
		if apperrors.HasCode(err, apperrors.CodeConflict) {
			return nil, apperrors.Conflict("skill '%s' already exists. %s", req.Name, confirmHint)
		}
		return nil, err
	}

	f.remove(id, e)
	if f.metrics != nil {
		f.metrics.FactoryCompletion.Inc()
	}
	f.logger.Info("factory created skill", zap.String("session_id", id), zap.String("skill", skill.Name))

	return &Response{
		SessionID: id,
		Step:      StepDone,
		Prompt:    StepDone.Prompt(),
		Done:      true,
		Skill:     &skills.Summary{Name: skill.Name, Description: skill.Description},
	}, nil
}

func (f *Factory) respond(s *Session) *Response {
	prompt := s.Step.Prompt()
	if s.Step == StepConfirm {
		prompt = s.Answers.Summary() + "\n" + prompt + "\n" + confirmHint
	}
	return &Response{SessionID: s.ID, Step: s.Step, Prompt: prompt}
}

// Get returns a copy of a live session
func (f *Factory) Get(id string) (Session, error) {
	v, ok := f.sessions.Load(id)
	if !ok {
		return Session{}, sessionNotFound(id)
	}
	e := v.(*entry)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed || f.expired(&e.session, f.now()) {
		return Session{}, sessionNotFound(id)
	}
	s := e.session
	s.Answers.Triggers = append([]string(nil), e.session.Answers.Triggers...)
	return s, nil
}

// CheckTrigger reports whether input asks for a new skill. It never touches
// sessions.
func (f *Factory) CheckTrigger(input string) TriggerMatch {
	return CheckTrigger(input)
}

func (f *Factory) expired(s *Session, now time.Time) bool {
	return now.Sub(s.UpdatedAt) > f.ttl
}

// remove must be called with e.mu held
func (f *Factory) remove(id string, e *entry) {
	if e.removed {
		return
	}
	e.removed = true
	f.sessions.CompareAndDelete(id, e)
	f.gauge(-1)
}

// Sweep removes expired sessions, skipping any that are busy
func (f *Factory) Sweep() int {
	now := f.now()
	removed := 0
	f.sessions.Range(func(k, v any) bool {
		e := v.(*entry)
		if !e.mu.TryLock() {
			return true
		}
		if !e.removed && f.expired(&e.session, now) {
			f.remove(k.(string), e)
			removed++
		}
		e.mu.Unlock()
		return true
	})
	if removed > 0 {
		f.logger.Debug("expired factory sessions removed", zap.Int("count", removed))
	}
	return removed
}

func (f *Factory) sweepLoop() {
	defer close(f.done)
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			f.Sweep()
		case <-f.stop:
			return
		}
	}
}

// Close stops the sweeper
func (f *Factory) Close() error {
	f.closeOnce.Do(func() {
		close(f.stop)
		<-f.done
	})
	return nil
}

func (f *Factory) gauge(delta float64) {
	if f.metrics != nil {
		f.metrics.FactorySessions.Add(delta)
	}
}

func sessionNotFound(id string) error {
	return apperrors.NotFound("factory session '%s' not found or expired", id)
}
