package problem_test

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/hintscan/internal/problem"
)

func TestCollector_DropsOff(t *testing.T) {
	c := problem.NewCollector()
	assert.False(t, c.Add(problem.Problem{Resource: "a", Severity: problem.Off}))
	assert.False(t, c.Add(problem.Problem{Resource: "a", Severity: problem.Severity(9)}))
	assert.True(t, c.Add(problem.Problem{Resource: "a", Severity: problem.Hint}))
	assert.Equal(t, 1, c.Len())
	for _, p := range c.Problems() {
		assert.Greater(t, int(p.Severity), int(problem.Off))
	}
}

func TestCollector_CleanAndClear(t *testing.T) {
	c := problem.NewCollector()
	c.Add(problem.Problem{Resource: "a", Severity: problem.Error, Message: "1"})
	c.Add(problem.Problem{Resource: "b", Severity: problem.Warning, Message: "2"})
	c.Add(problem.Problem{Resource: "a", Severity: problem.Warning, Message: "3"})

	snapshot := c.Problems()
	assert.Equal(t, 2, c.Clean("a"))
	ps := c.Problems()
	require.Len(t, ps, 1)
	assert.Equal(t, "b", ps[0].Resource)
	assert.Len(t, snapshot, 3, "earlier snapshots are unaffected")

	assert.Equal(t, map[problem.Severity]int{problem.Warning: 1}, c.Summary())
	c.Clear()
	assert.Zero(t, c.Len())
}

func TestCollector_ConcurrentAdd(t *testing.T) {
	c := problem.NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Add(problem.Problem{Resource: "r", Severity: problem.Warning})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, c.Len())
}

func TestSeverity(t *testing.T) {
	s, ok := problem.ParseSeverity("WARNING")
	assert.True(t, ok)
	assert.Equal(t, problem.Warning, s)
	_, ok = problem.ParseSeverity("fatal")
	assert.False(t, ok)

	s, ok = problem.SeverityFromNumber(3)
	assert.True(t, ok)
	assert.Equal(t, problem.Error, s)
	_, ok = problem.SeverityFromNumber(4)
	assert.False(t, ok)
	_, ok = problem.SeverityFromNumber(-1)
	assert.False(t, ok)

	b, err := json.Marshal(problem.Problem{Severity: problem.Error})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"severity":"error"`)

	var p problem.Problem
	require.NoError(t, json.Unmarshal([]byte(`{"severity":2}`), &p))
	assert.Equal(t, problem.Warning, p.Severity)
	assert.Error(t, json.Unmarshal([]byte(`{"severity":"loud"}`), &p))
}
