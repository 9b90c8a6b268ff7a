package kata

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rw-r-r-0644/kata-audit/roster"
)

func readRoster(t *testing.T, text string) []roster.Entry {
	t.Helper()
	entries, err := roster.ReadAll(roster.NewReader(strings.NewReader(text)))
	require.NoError(t, err)
	return entries
}

func TestAudit_EndToEnd(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.pages["111"] = []string{completedBody(t, 1, 1, "kata-x")}
	api.pages["222"] = []string{completedBody(t, 1, 2, "kata-y", "kata-z")}

	c := NewChecker(buildCodewars(t, srv.URL, nil), 0, zap.NewNop())
	entries := readRoster(t, "alice,111\nbob,\ncarol,222")

	var diag bytes.Buffer
	result, err := c.Audit(context.Background(), entries, SlugQuery("kata-x"), &diag)
	require.NoError(t, err)
	assert.Empty(t, diag.String())

	var out bytes.Buffer
	_, err = result.WriteTo(&out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"alice": true, "bob": false, "carol": false}`, out.String())

	if diff := cmp.Diff([]pageCall{{"111", 0}, {"222", 0}}, api.calls(), cmp.AllowUnexported(pageCall{})); diff != "" {
		t.Errorf("requests mismatch (-want +got):\n%s", diff)
	}
}

func TestAudit_APIErrorOmitsEntry(t *testing.T) {
	b := &fakeBackend{pages: map[string][]*Page{
		"111": {slugPage(1, 1, "kata-x")},
		"222": {{TotalPages: intPtr(1), TotalItems: intPtr(1)}},
		"333": {slugPage(1, 1, "other")},
	}}
	c, _ := newTestChecker(b)
	entries := readRoster(t, "handle,id\nalice,111\nbroken,222\ncarol,333\n")

	var diag bytes.Buffer
	result, err := c.Audit(context.Background(), entries, SlugQuery("kata-x"), &diag)
	require.NoError(t, err)

	assert.Equal(t, []string{"alice", "carol"}, result.Handles())
	assert.False(t, result.Has("broken"))
	assert.Equal(t, "[error] broken: malformed payload: missing data\n", diag.String())

	data, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, `{"alice":true,"carol":false}`, string(data))
}

func TestAudit_CountMissingData(t *testing.T) {
	b := &fakeBackend{pages: map[string][]*Page{
		"111": {slugPage(1, 7)},
		"222": {{TotalItems: intPtr(9)}},
	}}
	c, _ := newTestChecker(b)
	entries := readRoster(t, "alice,111\nbroken,222\n")

	result, err := c.Audit(context.Background(), entries, CountQuery(5), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, result.Handles())
	done, _ := result.Get("alice")
	assert.True(t, done)
}

func TestAudit_TransportErrorOmitsEntry(t *testing.T) {
	b := &fakeBackend{
		pages: map[string][]*Page{"111": {slugPage(1, 3)}},
		errs:  map[string]error{"222": &TransportError{Attempts: 3, Err: assert.AnError}},
	}
	c, _ := newTestChecker(b)
	entries := readRoster(t, "flaky,222\nalice,111\n")

	var diag bytes.Buffer
	result, err := c.Audit(context.Background(), entries, CountQuery(3), &diag)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, result.Handles())
	assert.Contains(t, diag.String(), "[error] flaky: transport failure after 3 attempt(s)")
}

func TestAudit_PausesBetweenRequestsOnly(t *testing.T) {
	b := &fakeBackend{pages: map[string][]*Page{
		"111": {slugPage(2, 2, "a"), slugPage(2, 2, "b")},
		"222": {slugPage(1, 1, "kata-x")},
		"333": {slugPage(1, 1, "c")},
	}}
	c, sleeps := newTestChecker(b)
	entries := readRoster(t, "nobody,\nalice,111\nbob,\ncarol,222\ndave,333\n")

	result, err := c.Audit(context.Background(), entries, SlugQuery("kata-x"), nil)
	require.NoError(t, err)
	assert.Equal(t, 5, result.Len())

	// Four requests in total: a pause precedes each but the first.
	assert.Len(t, b.calls, 4)
	assert.Equal(t, []time.Duration{DefaultDelay, DefaultDelay, DefaultDelay}, *sleeps)
}

func TestAudit_DuplicateHandle(t *testing.T) {
	b := &fakeBackend{pages: map[string][]*Page{
		"111": {slugPage(1, 1, "kata-x")},
		"999": {slugPage(1, 1)},
	}}
	c, _ := newTestChecker(b)
	entries := readRoster(t, "alice,111\nalice,999\n")

	result, err := c.Audit(context.Background(), entries, SlugQuery("kata-x"), nil)
	require.NoError(t, err)
	done, ok := result.Get("alice")
	assert.True(t, ok)
	assert.True(t, done)
	assert.Equal(t, []pageCall{{"111", 0}}, b.calls)
}

func TestAudit_Cancelled(t *testing.T) {
	b := &fakeBackend{pages: map[string][]*Page{
		"111": {slugPage(1, 1, "kata-x")},
	}}
	c, _ := newTestChecker(b)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := c.Audit(ctx, readRoster(t, "alice,111\n"), SlugQuery("kata-x"), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, result.Len())
	assert.Empty(t, b.calls)
}

func TestAudit_InvalidQuery(t *testing.T) {
	c, _ := newTestChecker(&fakeBackend{})
	_, err := c.Audit(context.Background(), nil, CountQuery(-2), nil)
	assert.Error(t, err)
}
