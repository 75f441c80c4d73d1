package git

import (
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initTestRepo creates a git repo in dir with a user config so commits work on CI.
func initTestRepo(t *testing.T, dir string) {
	t.Helper()
	cmds := [][]string{
		{"git", "-C", dir, "init", "-b", "main"},
		{"git", "-C", dir, "config", "user.email", "test@test.com"},
		{"git", "-C", dir, "config", "user.name", "Test"},
	}
	for _, args := range cmds {
		require.NoError(t, exec.Command(args[0], args[1:]...).Run())
	}
}

func TestExtractOwnerRepo_SSH(t *testing.T) {
	owner, repo, err := ExtractOwnerRepo("git@github.com:acme/widgets.git")
	assert.NoError(t, err)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "widgets", repo)
}

func TestExtractOwnerRepo_HTTPS(t *testing.T) {
	owner, repo, err := ExtractOwnerRepo("https://github.com/acme/widgets.git")
	assert.NoError(t, err)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "widgets", repo)
}

func TestExtractOwnerRepo_HTTPSNoGit(t *testing.T) {
	owner, repo, err := ExtractOwnerRepo("https://github.com/acme/widgets")
	assert.NoError(t, err)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "widgets", repo)
}

func TestExtractOwnerRepo_Invalid(t *testing.T) {
	_, _, err := ExtractOwnerRepo("not-a-url")
	assert.Error(t, err)
}

func TestBranchName(t *testing.T) {
	assert.Equal(t, "resolvebot/issue-42", BranchName(42))
}

func TestRealClient_BranchAndCommit(t *testing.T) {
	dir := t.TempDir()
	initTestRepo(t, dir)
	require.NoError(t, exec.Command("git", "-C", dir, "commit", "--allow-empty", "-m", "init").Run())

	c := NewClient()

	branch, err := c.CurrentBranch(dir)
	require.NoError(t, err)
	assert.Equal(t, "main", branch)

	require.NoError(t, c.CreateBranch(dir, "resolvebot/issue-7"))
	branch, err = c.CurrentBranch(dir)
	require.NoError(t, err)
	assert.Equal(t, "resolvebot/issue-7", branch)

	dirty, err := c.IsDirty(dir)
	require.NoError(t, err)
	assert.False(t, dirty)

	require.NoError(t, os.WriteFile(dir+"/file.txt", []byte("hello\n"), 0644))
	dirty, err = c.IsDirty(dir)
	require.NoError(t, err)
	assert.True(t, dirty)

	require.NoError(t, c.AddAll(dir))
	require.NoError(t, c.Commit(dir, "add file"))

	dirty, err = c.IsDirty(dir)
	require.NoError(t, err)
	assert.False(t, dirty)
}

func TestRealClient_DefaultBranchFallback(t *testing.T) {
	dir := t.TempDir()
	initTestRepo(t, dir)

	c := NewClient()
	branch, err := c.DefaultBranch(dir)
	require.NoError(t, err)
	assert.Equal(t, "main", branch, "no remote HEAD falls back to main")
}

func TestRealClient_RemoteURLMissing(t *testing.T) {
	dir := t.TempDir()
	initTestRepo(t, dir)

	c := NewClient()
	url, err := c.RemoteURL(dir)
	require.NoError(t, err)
	assert.Empty(t, url)
}
