package subject

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"subjectchat/internal/store"
)

// fakeStore serves custom subjects from memory; everything else reports
// storage as unavailable.
type fakeStore struct {
	store.Unavailable
	subjects map[int64]*store.CustomSubject
}

func (f *fakeStore) GetCustomSubject(_ context.Context, pk int64) (*store.CustomSubject, error) {
	if subj, ok := f.subjects[pk]; ok {
		return subj, nil
	}
	return nil, store.ErrNotFound
}

func newTestResolver(st store.Store) *Resolver {
	if st == nil {
		st = store.NewUnavailable()
	}
	return NewResolver(st, zap.NewNop())
}

func TestResolveBuiltinSubjects(t *testing.T) {
	r := newTestResolver(nil)

	for _, id := range []string{"math", "physics", "chemistry", "history", "writing"} {
		p := r.Resolve(context.Background(), id)
		assert.Equal(t, id, p.ID)
		assert.NotEmpty(t, p.Name, "subject %s should have a name", id)
		assert.NotEmpty(t, p.Description, "subject %s should have a description", id)
		assert.NotEmpty(t, p.TeachingStyle, "subject %s should have a teaching style", id)
		assert.False(t, p.IsCustom)
	}
}

func TestResolveIsCaseInsensitiveForBuiltins(t *testing.T) {
	r := newTestResolver(nil)
	assert.Equal(t, "Math", r.Resolve(context.Background(), "MATH").Name)
}

func TestResolveUnknownSubjectFallsBack(t *testing.T) {
	r := newTestResolver(nil)

	p := r.Resolve(context.Background(), "underwater-basket-weaving")
	assert.Equal(t, "underwater-basket-weaving", p.ID)
	assert.Empty(t, p.Name)
	assert.Empty(t, p.Description)
	assert.Empty(t, p.TeachingStyle)
}

func TestResolveEmptySubjectFallsBack(t *testing.T) {
	r := newTestResolver(nil)

	p := r.Resolve(context.Background(), "")
	assert.Empty(t, p.Name)
	assert.Empty(t, p.TeachingStyle)
}

func TestResolveCustomSubject(t *testing.T) {
	st := &fakeStore{subjects: map[int64]*store.CustomSubject{
		7: {ID: 7, Name: "Linear Algebra", Description: "matrices", TeachingStyle: "lots of examples"},
	}}
	r := newTestResolver(st)

	p := r.Resolve(context.Background(), "custom-7")
	assert.Equal(t, "custom-7", p.ID)
	assert.Equal(t, "Linear Algebra", p.Name)
	assert.Equal(t, "matrices", p.Description)
	assert.True(t, p.IsCustom)
}

func TestResolveMissingCustomSubjectFallsBack(t *testing.T) {
	r := newTestResolver(&fakeStore{subjects: map[int64]*store.CustomSubject{}})

	p := r.Resolve(context.Background(), "custom-99")
	assert.Equal(t, "custom-99", p.ID)
	assert.Empty(t, p.Name)
	assert.False(t, p.IsCustom)
}

func TestResolveCustomSubjectWithStorageUnavailable(t *testing.T) {
	r := newTestResolver(store.NewUnavailable())

	p := r.Resolve(context.Background(), "custom-1")
	assert.Equal(t, "custom-1", p.ID)
	assert.Empty(t, p.Name)
}

func writeOverrides(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "subjects.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadOverridesMergesFields(t *testing.T) {
	r := newTestResolver(nil)
	path := writeOverrides(t, `[
        {"id": "math", "name": "Mathematics", "teaching_style": "be rigorous"},
        {"id": "latin", "name": "Latin", "description": "classical language study"}
    ]`)
	require.NoError(t, r.LoadOverrides(path))

	math := r.Resolve(context.Background(), "math")
	assert.Equal(t, "Mathematics", math.Name, "override name should win")
	assert.Equal(t, "be rigorous", math.TeachingStyle)
	assert.NotEmpty(t, math.Description, "unset override field should keep the built-in value")

	latin := r.Resolve(context.Background(), "latin")
	assert.Equal(t, "Latin", latin.Name, "unknown override id should add a profile")
	assert.Equal(t, "classical language study", latin.Description)
}

func TestLoadOverridesRejectsBadFile(t *testing.T) {
	r := newTestResolver(nil)
	path := writeOverrides(t, `{not json`)
	assert.Error(t, r.LoadOverrides(path))
	assert.Error(t, r.LoadOverrides(filepath.Join(t.TempDir(), "missing.json")))
}

func TestBuiltinProfilesSorted(t *testing.T) {
	r := newTestResolver(nil)
	profiles := r.BuiltinProfiles()
	require.Len(t, profiles, 5)
	for i := 1; i < len(profiles); i++ {
		assert.Less(t, profiles[i-1].ID, profiles[i].ID)
	}
}

func TestParseCustomSubjectRef(t *testing.T) {
	pk, ok := store.ParseCustomSubjectRef("custom-12")
	assert.True(t, ok)
	assert.Equal(t, int64(12), pk)

	for _, ref := range []string{"math", "custom-", "custom-abc", "custom--3", "custom-0"} {
		_, ok := store.ParseCustomSubjectRef(ref)
		assert.False(t, ok, "ref %q should not parse", ref)
	}
}
