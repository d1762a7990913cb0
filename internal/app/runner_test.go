package app

import (
	"anthrometer/internal/poll"
	"anthrometer/internal/prefs"
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_LoadBuildsView(t *testing.T) {
	env := newTestEnv(t)

	v := env.runner.View()

	assert.Equal(t, uint64(1), v.Version)
	assert.False(t, v.NoData)
	require.NotNil(t, v.Chart)
	assert.Equal(t, []int{1900, 2008, 2016, 2020, 2025}, v.Chart.Data[0].X)
	assert.True(t, v.KPI.HasData)
	assert.Equal(t, 2025, v.KPI.Year)
	assert.Equal(t, 310, v.KPI.Value)
	assert.Len(t, v.Categories, 8)
	assert.Len(t, v.Signals, 5)
	require.NotNil(t, v.Sources)
	assert.Equal(t, "NOAA", v.Sources.Sources[0].Name)
	assert.True(t, v.AutoRefresh)
	assert.False(t, v.Overlay.Visible)
	assert.Contains(t, v.UpdatedAgo, "updated ")
}

func TestRunner_EmptySeriesShowsPlaceholder(t *testing.T) {
	env := newTestEnv(t)
	env.data.set("gti.json", `{"series":[]}`)
	env.runner.Load(context.Background())

	v := env.runner.View()

	assert.True(t, v.NoData)
	assert.Nil(t, v.Chart)
	assert.False(t, v.KPI.HasData)
	assert.Len(t, v.Categories, 8)
}

func TestRunner_ChangedTokenReloadsAndNotifies(t *testing.T) {
	env := newTestEnv(t)
	r := env.runner

	assert.Equal(t, poll.TickUnchanged, r.Refresh(context.Background()))
	assert.Empty(t, env.notifier.all())

	env.data.setToken(tokenB)
	env.data.set("gti.json", `{"series":[{"year":2024,"gti":300},{"year":2025,"gti":320}]}`)

	assert.Equal(t, poll.TickChanged, r.Refresh(context.Background()))
	assert.Equal(t, uint64(2), r.store.Version())

	updates := env.notifier.all()
	require.Len(t, updates, 1)
	assert.Equal(t, tokenA, updates[0].PreviousToken)
	assert.Equal(t, tokenB, updates[0].Token)
	assert.Equal(t, 2025, updates[0].Year)
	assert.Equal(t, 320, updates[0].Value)

	// Same token again: no reload, no second notification.
	assert.Equal(t, poll.TickUnchanged, r.Refresh(context.Background()))
	assert.Len(t, env.notifier.all(), 1)
	assert.Equal(t, 320, r.View().KPI.Value)
}

func TestRunner_ChangeUsesCurrentPreferences(t *testing.T) {
	env := newTestEnv(t)
	r := env.runner

	_, err := r.prefs.Update(context.Background(), func(p *prefs.Preferences) {
		p.Range = prefs.Range5y
	})
	require.NoError(t, err)

	env.data.setToken(tokenB)
	require.Equal(t, poll.TickChanged, r.Refresh(context.Background()))

	v := r.View()
	require.NotNil(t, v.Chart)
	assert.Equal(t, []int{2021, 2025}, v.Chart.Layout.XAxis.Range)
}

func TestRunner_UnchangedTickRecomputesAgoText(t *testing.T) {
	env := newTestEnv(t)
	r := env.runner

	r.setAgoText("stale")
	require.Equal(t, "stale", r.AgoText())

	assert.Equal(t, poll.TickUnchanged, r.Refresh(context.Background()))
	assert.Contains(t, r.AgoText(), "updated ")
	assert.Equal(t, uint64(1), r.store.Version())
}

func TestRunner_AutoRefreshToggle(t *testing.T) {
	env := newTestEnv(t)
	r := env.runner

	r.SetAutoRefresh(false)
	env.data.setToken(tokenB)

	assert.Equal(t, poll.TickSkipped, r.Refresh(context.Background()))
	assert.False(t, r.View().AutoRefresh)
	assert.Equal(t, uint64(1), r.store.Version())

	r.SetAutoRefresh(true)
	assert.Equal(t, poll.TickChanged, r.Refresh(context.Background()))
}

func TestRunner_GetStats(t *testing.T) {
	env := newTestEnv(t)

	stats := env.runner.GetStats()

	assert.Equal(t, BuildCommit, stats.Build.Commit)
	assert.True(t, stats.Poll.AutoRefresh)
	assert.Equal(t, "idle", stats.Poll.State)
	assert.Equal(t, uint64(1), stats.Snapshot.Version)
	assert.Equal(t, tokenA, stats.Snapshot.Token)
	assert.Equal(t, 5, stats.Snapshot.Points)
	assert.False(t, stats.Notifications.DiscordEnabled)
	assert.Positive(t, stats.Runtime.Goroutines)
}

func TestRunner_RunContextCancellation(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- env.runner.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunner_RunFailsOnBusyPort(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer ln.Close()

	env := newTestEnv(t)
	env.runner.cfg.Server.Enabled = true
	env.runner.cfg.Server.Port = ln.Addr().(*net.TCPAddr).Port

	err = env.runner.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), fmt.Sprintf("port %d", env.runner.cfg.Server.Port))
}
