package factory

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/skills"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/infrastructure/monitoring"
	apperrors "github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/errors"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type failingCreator struct{ err error }

func (c failingCreator) Create(context.Context, skills.CreateRequest) (*skills.Skill, error) {
	return nil, c.err
}

func newTestFactory(t *testing.T, creator SkillCreator) (*Factory, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	f := New(creator, Options{
		TTL:           time.Hour,
		SweepInterval: time.Hour,
		Now:           clock.Now,
		Metrics:       monitoring.NewMetrics(),
	})
	t.Cleanup(func() { _ = f.Close() })
	return f, clock
}

func newRegistry(t *testing.T) *skills.Registry {
	t.Helper()
	return skills.NewRegistry(filepath.Join(t.TempDir(), "skills"), nil, nil, nil)
}

func TestFullDialogueCreatesSkill(t *testing.T) {
	reg := newRegistry(t)
	f, _ := newTestFactory(t, reg)
	ctx := context.Background()

	res, err := f.Start(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, StepGoal, res.Step)
	assert.Equal(t, StepGoal.Prompt(), res.Prompt)
	assert.False(t, res.Done)
	id := res.SessionID

	steps := []struct {
		input string
		next  Step
	}{
		{"Deploy my app", StepTrigger},
		{"deploy, ship it; release\n", StepExample},
		{"input: main branch output: live URL", StepComplexity},
		{"complex, needs scripts", StepEdgeCases},
		{"Roll back on failure", StepConfirm},
	}
	for _, s := range steps {
		res, err = f.Continue(ctx, id, s.input)
		require.NoError(t, err, s.input)
		assert.Equal(t, s.next, res.Step)
		assert.Equal(t, id, res.SessionID)
	}

	assert.Contains(t, res.Prompt, "# Skill Summary")
	assert.Contains(t, res.Prompt, "**Goal:** Deploy my app\n")
	assert.Contains(t, res.Prompt, "**Triggers:** deploy, ship it, release\n")
	assert.Contains(t, res.Prompt, "**Example Input:** main branch\n")
	assert.Contains(t, res.Prompt, "**Example Output:** live URL\n")
	assert.Contains(t, res.Prompt, "**Complexity:** Complex (needs scripts/templates)\n")
	assert.Contains(t, res.Prompt, "**Edge Cases:** Roll back on failure\n")
	assert.Contains(t, res.Prompt, StepConfirm.Prompt())

	res, err = f.Continue(ctx, id, " YES ")
	require.NoError(t, err)
	assert.True(t, res.Done)
	assert.Equal(t, StepDone, res.Step)
	assert.Equal(t, "Skill creation complete!", res.Prompt)
	require.NotNil(t, res.Skill)
	assert.Equal(t, "deploy-my-app", res.Skill.Name)
	assert.Equal(t, "Triggers: deploy, ship it, release", res.Skill.Description)

	skill, err := reg.Get(ctx, "deploy-my-app")
	require.NoError(t, err)
	assert.Contains(t, skill.Body, "# Deploy my app")
	assert.Contains(t, skill.Body, "- ship it")
	assert.Contains(t, skill.Body, "**Input:** main branch")
	assert.Contains(t, skill.Body, "Roll back on failure")
	assert.Equal(t, "factory", skill.Metadata["created_by"])

	_, err = f.Continue(ctx, id, "yes")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound), "session consumed")
}

func TestStartWithInitialInputSkipsGoal(t *testing.T) {
	f, _ := newTestFactory(t, newRegistry(t))

	res, err := f.Start(context.Background(), "  Summarize PDFs ")
	require.NoError(t, err)
	assert.Equal(t, StepTrigger, res.Step)
	assert.Equal(t, StepTrigger.Prompt(), res.Prompt)

	s, err := f.Get(res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "Summarize PDFs", s.Answers.Goal)
}

func TestControlCharactersStripped(t *testing.T) {
	f, _ := newTestFactory(t, newRegistry(t))

	res, err := f.Start(context.Background(), "Summarize\x00 PDFs\x1b")
	require.NoError(t, err)

	_, err = f.Continue(context.Background(), res.SessionID, "pdf\x07, summary")
	require.NoError(t, err)

	s, err := f.Get(res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "Summarize PDFs", s.Answers.Goal)
	assert.Equal(t, []string{"pdf", "summary"}, s.Answers.Triggers)
}

func TestConfirmNonAffirmativeStays(t *testing.T) {
	f, _ := newTestFactory(t, newRegistry(t))
	ctx := context.Background()

	res, err := f.Start(ctx, "goal")
	require.NoError(t, err)
	id := res.SessionID
	for _, in := range []string{"t", "x", "simple", "none"} {
		_, err = f.Continue(ctx, id, in)
		require.NoError(t, err)
	}

	for _, in := range []string{"no", "change the goal", "yess"} {
		res, err = f.Continue(ctx, id, in)
		require.NoError(t, err)
		assert.Equal(t, StepConfirm, res.Step)
		assert.False(t, res.Done)
		assert.Contains(t, res.Prompt, "# Skill Summary")
	}
}

func TestCreateFailureKeepsSession(t *testing.T) {
	f, _ := newTestFactory(t, failingCreator{err: apperrors.Conflict("skill 'goal' already exists")})
	ctx := context.Background()

	res, err := f.Start(ctx, "goal")
	require.NoError(t, err)
	id := res.SessionID
	for _, in := range []string{"t", "x", "simple", "none"} {
		_, err = f.Continue(ctx, id, in)
		require.NoError(t, err)
	}

	_, err = f.Continue(ctx, id, "y")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	s, err := f.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StepConfirm, s.Step)
}

func runToConfirm(t *testing.T, f *Factory, goal string) string {
	t.Helper()
	res, err := f.Start(context.Background(), goal)
	require.NoError(t, err)
	for _, in := range []string{"deploy", "input: repo output: url", "simple", "none"} {
		res, err = f.Continue(context.Background(), res.SessionID, in)
		require.NoError(t, err)
	}
	require.Equal(t, StepConfirm, res.Step)
	return res.SessionID
}

func TestDuplicateGoalCanBeRenamed(t *testing.T) {
	reg := newRegistry(t)
	f, _ := newTestFactory(t, reg)
	ctx := context.Background()

	first := runToConfirm(t, f, "deploy app")
	res, err := f.Continue(ctx, first, "yes")
	require.NoError(t, err)
	assert.Equal(t, "deploy-app", res.Skill.Name)

	second := runToConfirm(t, f, "deploy app")
	_, err = f.Continue(ctx, second, "yes")
	require.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
	assert.Contains(t, err.Error(), "name: <new-name>")

	res, err = f.Continue(ctx, second, "Name: Deploy App 2")
	require.NoError(t, err)
	assert.Equal(t, StepConfirm, res.Step)
	assert.Contains(t, res.Prompt, "**Name:** deploy-app-2\n")
	assert.Contains(t, res.Prompt, "'restart'")

	res, err = f.Continue(ctx, second, "yes")
	require.NoError(t, err)
	assert.True(t, res.Done)
	assert.Equal(t, "deploy-app-2", res.Skill.Name)

	_, err = reg.Get(ctx, "deploy-app-2")
	assert.NoError(t, err)
}

func TestRestartFromConfirm(t *testing.T) {
	f, _ := newTestFactory(t, newRegistry(t))
	ctx := context.Background()

	id := runToConfirm(t, f, "deploy app")
	_, err := f.Continue(ctx, id, "name: other")
	require.NoError(t, err)

	res, err := f.Continue(ctx, id, " Restart ")
	require.NoError(t, err)
	assert.Equal(t, StepGoal, res.Step)
	assert.Equal(t, StepGoal.Prompt(), res.Prompt)

	s, err := f.Get(id)
	require.NoError(t, err)
	assert.Equal(t, Answers{}, s.Answers)
}

func TestExampleWithWideRunesDoesNotPanic(t *testing.T) {
	f, _ := newTestFactory(t, newRegistry(t))
	ctx := context.Background()

	res, err := f.Start(ctx, "goal")
	require.NoError(t, err)
	_, err = f.Continue(ctx, res.SessionID, "t")
	require.NoError(t, err)

	require.NotPanics(t, func() {
		res, err = f.Continue(ctx, res.SessionID, strings.Repeat("Ⱥ", 10)+"input:")
	})
	require.NoError(t, err)
	assert.Equal(t, StepComplexity, res.Step)
}

func TestContinueUnknownSession(t *testing.T) {
	f, _ := newTestFactory(t, newRegistry(t))
	_, err := f.Continue(context.Background(), "does-not-exist", "hi")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestExpiredSessionIsNotFound(t *testing.T) {
	f, clock := newTestFactory(t, newRegistry(t))
	ctx := context.Background()

	res, err := f.Start(ctx, "")
	require.NoError(t, err)

	clock.Advance(30 * time.Minute)
	_, err = f.Continue(ctx, res.SessionID, "goal")
	require.NoError(t, err, "activity refreshes the session")

	clock.Advance(61 * time.Minute)
	_, err = f.Continue(ctx, res.SessionID, "trigger")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestSweepRemovesExpired(t *testing.T) {
	f, clock := newTestFactory(t, newRegistry(t))
	ctx := context.Background()

	old, err := f.Start(ctx, "")
	require.NoError(t, err)
	clock.Advance(2 * time.Hour)
	fresh, err := f.Start(ctx, "")
	require.NoError(t, err)

	assert.Equal(t, 1, f.Sweep())
	_, err = f.Get(old.SessionID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	_, err = f.Get(fresh.SessionID)
	assert.NoError(t, err)
}

func TestSweepSkipsBusySession(t *testing.T) {
	f, clock := newTestFactory(t, newRegistry(t))

	res, err := f.Start(context.Background(), "")
	require.NoError(t, err)
	clock.Advance(2 * time.Hour)

	v, _ := f.sessions.Load(res.SessionID)
	e := v.(*entry)
	e.mu.Lock()
	assert.Equal(t, 0, f.Sweep())
	e.mu.Unlock()
	assert.Equal(t, 1, f.Sweep())
}

func TestConcurrentSessionsIndependent(t *testing.T) {
	f, _ := newTestFactory(t, newRegistry(t))
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.Start(ctx, "")
			if err != nil {
				errs <- err
				return
			}
			for _, in := range []string{"g", "t", "x"} {
				if _, err := f.Continue(ctx, res.SessionID, in); err != nil {
					errs <- err
					return
				}
			}
			s, err := f.Get(res.SessionID)
			if err == nil && s.Step != StepComplexity {
				err = errors.New("unexpected step " + s.Step.String())
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestCloseIdempotent(t *testing.T) {
	f, _ := newTestFactory(t, newRegistry(t))
	assert.NoError(t, f.Close())
	assert.NoError(t, f.Close())
}
