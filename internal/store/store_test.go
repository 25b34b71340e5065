package store

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, paths ...string) (*Store, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	for _, p := range paths {
		require.NoError(t, afero.WriteFile(fs, p, []byte("img"), 0o644))
	}
	s := NewWithFs(fs)
	s.Replace(paths)
	return s, fs
}

func TestStore_Replace(t *testing.T) {
	s, _ := newTestStore(t, "/pics/a.png", "/pics/b.jpg")

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"/pics/a.png", "/pics/b.jpg"}, s.Paths())
	assert.Equal(t, "b.jpg", s.Entries()[1].Name)

	s.Replace([]string{"/pics/c.gif"})
	assert.Equal(t, []string{"/pics/c.gif"}, s.Paths())
}

func TestStore_ReplaceDeduplicates(t *testing.T) {
	s, _ := newTestStore(t, "/pics/a.png")
	s.Replace([]string{"/pics/a.png", "/pics/b.jpg", "/pics/a.png"})
	assert.Equal(t, []string{"/pics/a.png", "/pics/b.jpg"}, s.Paths())
}

func TestStore_Remove(t *testing.T) {
	s, _ := newTestStore(t, "/pics/a.png", "/pics/b.jpg", "/pics/c.gif")

	assert.True(t, s.Remove("/pics/b.jpg"))
	assert.Equal(t, []string{"/pics/a.png", "/pics/c.gif"}, s.Paths())
	assert.False(t, s.Contains("/pics/b.jpg"))

	// Unknown path is a silent no-op.
	assert.False(t, s.Remove("/pics/missing.png"))
	assert.Equal(t, 2, s.Len())
}

func TestStore_RemoveKeepsIndexConsistent(t *testing.T) {
	s, _ := newTestStore(t, "/p/1.png", "/p/2.png", "/p/3.png", "/p/4.png")

	require.True(t, s.Remove("/p/1.png"))
	require.True(t, s.Remove("/p/3.png"))

	assert.Equal(t, []string{"/p/2.png", "/p/4.png"}, s.Paths())
	assert.True(t, s.Contains("/p/4.png"))
	assert.True(t, s.Remove("/p/4.png"))
	assert.Equal(t, []string{"/p/2.png"}, s.Paths())
}

func TestStore_Filtered(t *testing.T) {
	s, _ := newTestStore(t,
		"/pics/Holiday_2024.png",
		"/pics/cat.jpg",
		"/pics/HOLIDAY_old.gif",
	)

	tests := []struct {
		name   string
		filter string
		want   []string
	}{
		{"empty filter is identity", "", []string{"Holiday_2024.png", "cat.jpg", "HOLIDAY_old.gif"}},
		{"case-insensitive match", "holiday", []string{"Holiday_2024.png", "HOLIDAY_old.gif"}},
		{"substring match", "at.j", []string{"cat.jpg"}},
		{"no match", "zebra", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Filtered(tt.filter)
			names := make([]string, 0, len(got))
			for _, e := range got {
				names = append(names, e.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestStore_Callbacks(t *testing.T) {
	s, _ := newTestStore(t)

	var changes []Change
	s.RegisterChangeCallback(func(c Change) {
		changes = append(changes, c)
	})

	s.Replace([]string{"/pics/a.png", "/pics/b.jpg"})
	s.Remove("/pics/a.png")
	s.Remove("/pics/a.png") // absent, must not notify

	require.Len(t, changes, 2)
	assert.Equal(t, ChangeReset, changes[0].Kind)
	assert.Equal(t, 2, changes[0].Total)
	assert.Equal(t, ChangeRemove, changes[1].Kind)
	assert.Equal(t, "/pics/a.png", changes[1].Path)
	assert.Equal(t, 1, changes[1].Total)
}

func TestStore_CallbackSeesMutation(t *testing.T) {
	s, _ := newTestStore(t)

	var lenInCallback int
	s.RegisterChangeCallback(func(Change) {
		lenInCallback = s.Len()
	})

	s.Replace([]string{"/pics/a.png", "/pics/b.jpg", "/pics/c.gif"})
	assert.Equal(t, 3, lenInCallback)
}

func TestStore_Meta(t *testing.T) {
	s, fs := newTestStore(t, "/pics/a.png")

	meta, ok := s.Meta("/pics/a.png")
	require.True(t, ok)
	assert.Equal(t, int64(3), meta.Size)

	// Cached value survives the file disappearing.
	require.NoError(t, fs.Remove("/pics/a.png"))
	_, ok = s.Meta("/pics/a.png")
	assert.True(t, ok)

	// Removal prunes the cache; after re-adding the path the stat runs again
	// and fails because the file is gone.
	s.Remove("/pics/a.png")
	s.Replace([]string{"/pics/a.png"})
	_, ok = s.Meta("/pics/a.png")
	assert.False(t, ok)
}

func TestStore_MetaUnknownPath(t *testing.T) {
	s, _ := newTestStore(t, "/pics/a.png")
	_, ok := s.Meta("/pics/other.png")
	assert.False(t, ok)
}
