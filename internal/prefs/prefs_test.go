package prefs

import (
	"anthrometer/internal/kvstore"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func darkProbe() bool { return true }

func TestDefaults(t *testing.T) {
	light := Defaults(nil)
	assert.Equal(t, LineColorAuto, light.LineColor)
	assert.Equal(t, 3, light.LineWeight)
	assert.Equal(t, RangeAll, light.Range)
	assert.False(t, light.DarkMode)
	assert.True(t, light.HighlightDecade)

	assert.True(t, Defaults(darkProbe).DarkMode)
}

func TestRangeMode_Years(t *testing.T) {
	tests := []struct {
		mode RangeMode
		n    int
		ok   bool
	}{
		{RangeAll, 0, false},
		{Range5y, 5, true},
		{Range20y, 20, true},
		{RangeDecade, 10, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			n, ok := tt.mode.Years()
			assert.Equal(t, tt.n, n)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestValidate(t *testing.T) {
	valid := Defaults(nil)
	assert.NoError(t, valid.Validate())

	bad := valid
	bad.LineColor = "teal"
	bad.LineWeight = 0
	bad.Range = "century"

	err := bad.Validate()
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	require.Len(t, verrs, 3)
	assert.Equal(t, "lineColor", verrs[0].Field)
	assert.Equal(t, "lineWeight", verrs[1].Field)
	assert.Equal(t, "range", verrs[2].Field)
}

func TestDecode(t *testing.T) {
	defaults := Defaults(nil)

	tests := []struct {
		name    string
		blob    string
		want    Preferences
		wantErr bool
	}{
		{
			name: "empty",
			blob: "",
			want: defaults,
		},
		{
			name: "full record",
			blob: `{"lineColor":"red","lineWeight":6,"range":"20y","darkMode":true,"highlightDecade":false}`,
			want: Preferences{LineColor: LineColorRed, LineWeight: 6, Range: Range20y, DarkMode: true, HighlightDecade: false},
		},
		{
			name: "partial record keeps other defaults",
			blob: `{"range":"5y"}`,
			want: Preferences{LineColor: LineColorAuto, LineWeight: 3, Range: Range5y, DarkMode: false, HighlightDecade: true},
		},
		{
			name: "invalid fields fall back individually",
			blob: `{"lineColor":"teal","lineWeight":99,"range":"decade"}`,
			want: Preferences{LineColor: LineColorAuto, LineWeight: 3, Range: RangeDecade, DarkMode: false, HighlightDecade: true},
		},
		{
			name:    "corrupt",
			blob:    `{not json`,
			want:    defaults,
			wantErr: true,
		},
		{
			name:    "wrong shape",
			blob:    `[1,2,3]`,
			want:    defaults,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.blob), defaults)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStore_OpenMissingUsesDefaults(t *testing.T) {
	s := Open(context.Background(), nil, kvstore.NewMemory(), "", darkProbe)

	assert.Equal(t, Defaults(darkProbe), s.Get())
	assert.Equal(t, "default", s.Source())
}

func TestStore_OpenCorruptUsesDefaults(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	require.NoError(t, kv.Put(ctx, DefaultKey, "%%%"))

	s := Open(ctx, nil, kv, DefaultKey, nil)

	assert.Equal(t, Defaults(nil), s.Get())
	assert.Equal(t, "default", s.Source())
}

func TestStore_OpenReadErrorUsesDefaults(t *testing.T) {
	kv := kvstore.NewMemory()
	kv.SetErrors(errors.New("disk gone"), nil)

	s := Open(context.Background(), nil, kv, DefaultKey, nil)

	assert.Equal(t, Defaults(nil), s.Get())
}

func TestStore_UpdatePersistsAndReloads(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()

	s := Open(ctx, nil, kv, DefaultKey, nil)
	got, err := s.Update(ctx, func(p *Preferences) {
		p.LineColor = LineColorGreen
		p.Range = RangeDecade
	})
	require.NoError(t, err)
	assert.Equal(t, LineColorGreen, got.LineColor)
	assert.Equal(t, "updated", s.Source())

	blob, err := kv.Get(ctx, DefaultKey)
	require.NoError(t, err)

	// Every field is written, not only the changed ones.
	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(blob), &raw))
	for _, field := range []string{"lineColor", "lineWeight", "range", "darkMode", "highlightDecade"} {
		assert.Contains(t, raw, field)
	}

	reloaded := Open(ctx, nil, kv, DefaultKey, nil)
	assert.Equal(t, got, reloaded.Get())
	assert.Equal(t, "stored", reloaded.Source())
}

func TestStore_UpdateRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	s := Open(ctx, nil, kv, DefaultKey, nil)

	notified := 0
	s.AddObserver(ObserverFunc(func(Preferences) { notified++ }))

	before := s.Get()
	got, err := s.Update(ctx, func(p *Preferences) { p.LineWeight = 11 })

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, before, got)
	assert.Equal(t, before, s.Get())
	assert.Equal(t, 0, notified)

	_, err = kv.Get(ctx, DefaultKey)
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
}

func TestStore_PersistFailureKeepsChange(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	kv.SetErrors(nil, errors.New("read-only"))
	s := Open(ctx, nil, kv, DefaultKey, nil)

	notified := 0
	s.AddObserver(ObserverFunc(func(Preferences) { notified++ }))

	got, err := s.Update(ctx, func(p *Preferences) { p.DarkMode = true })
	require.NoError(t, err)
	assert.True(t, got.DarkMode)
	assert.True(t, s.Get().DarkMode)
	assert.Equal(t, 1, notified)
}

func TestStore_Reset(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	s := Open(ctx, nil, kv, DefaultKey, darkProbe)

	_, err := s.Update(ctx, func(p *Preferences) {
		p.LineWeight = 8
		p.DarkMode = false
	})
	require.NoError(t, err)

	got := s.Reset(ctx)
	assert.Equal(t, Defaults(darkProbe), got)
	assert.Equal(t, "default", s.Source())

	blob, err := kv.Get(ctx, DefaultKey)
	require.NoError(t, err)
	decoded, err := Decode([]byte(blob), Preferences{})
	require.NoError(t, err)
	assert.Equal(t, got, decoded)
}

func TestStore_ObserversSeeEveryChange(t *testing.T) {
	ctx := context.Background()
	s := Open(ctx, nil, kvstore.NewMemory(), DefaultKey, nil)

	var mu sync.Mutex
	var seen []int
	s.AddObserver(ObserverFunc(func(p Preferences) {
		mu.Lock()
		seen = append(seen, p.LineWeight)
		mu.Unlock()
	}))
	s.AddObserver(nil)

	var wg sync.WaitGroup
	for w := 1; w <= 10; w++ {
		wg.Add(1)
		go func(weight int) {
			defer wg.Done()
			_, err := s.Update(ctx, func(p *Preferences) { p.LineWeight = weight })
			assert.NoError(t, err)
		}(w)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, 10)
	assert.Equal(t, seen[len(seen)-1], s.Get().LineWeight)
}
