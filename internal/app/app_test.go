package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lending-library/library"
)

type cli struct {
	t   *testing.T
	dir string
}

func newCLI(t *testing.T) *cli {
	return &cli{t: t, dir: t.TempDir()}
}

// run executes one process-like invocation against the test database.
func (c *cli) run(stdin string, args ...string) (string, string, error) {
	c.t.Helper()
	var stdout, stderr bytes.Buffer
	s := newSession(strings.NewReader(stdin), &stdout, &stderr)
	root := newRootCmd(s)
	root.SetArgs(append([]string{
		"--config", filepath.Join(c.dir, "config.yml"),
		"--db", filepath.Join(c.dir, "library.db"),
	}, args...))
	err := root.ExecuteContext(context.Background())
	s.close()
	return stdout.String(), stderr.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, _, err := c.run("", args...)
	require.NoError(c.t, err, "%v", args)
	return out
}

func seedLibrary(c *cli) {
	c.mustRun("members", "add", "--name", "Ana Gómez", "--email", "ana@example.com", "--city", "Madrid", "--address", "Calle 1", "--postal-code", "28001")
	c.mustRun("members", "add", "--name", "Bo", "--email", "bo@example.com")
	c.mustRun("books", "add", "--title", "Dune", "--isbn", "978-1", "--author", "Frank Herbert", "--genre", "SF", "--year", "1965")
}

func Test_CLI_LoanLifecycle(t *testing.T) {
	c := newCLI(t)
	seedLibrary(c)

	out := c.mustRun("loans", "create", "1", "1")
	assert.Contains(t, out, "Created loan 1")
	assert.Contains(t, out, "Ana Gómez")
	assert.Contains(t, out, "Dune")

	_, _, err := c.run("", "loans", "create", "2", "1")
	assert.ErrorIs(t, err, library.ErrBookUnavailable)
	assert.Equal(t, exitConflict, exitCode(err))

	out = c.mustRun("books", "list", "--available=false")
	assert.Contains(t, out, "Dune")

	out = c.mustRun("loans", "return", "1")
	assert.Contains(t, out, "Returned loan 1")

	_, _, err = c.run("", "loans", "return", "1")
	assert.ErrorIs(t, err, library.ErrLoanAlreadyReturned)

	out = c.mustRun("loans", "list", "--state", "returned")
	assert.Contains(t, out, "RETURNED")
}

func Test_CLI_JSONOutput(t *testing.T) {
	c := newCLI(t)
	seedLibrary(c)

	out := c.mustRun("--output", "json", "loans", "create", "1", "1")

	var got library.LoanDetails
	require.NoError(t, json.Unmarshal([]byte(out), &got), out)
	assert.Equal(t, int64(1), got.ID)
	assert.Equal(t, "Ana Gómez", got.MemberName)
	assert.Equal(t, "Dune", got.BookTitle)
	assert.Equal(t, library.LoanActive, got.State)

	out = c.mustRun("-o", "json", "loans", "active", "1")
	var active []library.LoanDetails
	require.NoError(t, json.Unmarshal([]byte(out), &active), out)
	require.Len(t, active, 1)
	assert.Equal(t, int64(1), active[0].BookID)
}

func Test_CLI_ErrorsMapToExitCodes(t *testing.T) {
	c := newCLI(t)
	seedLibrary(c)

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"unknown member", []string{"loans", "create", "99", "1"}, exitNotFound},
		{"bad id", []string{"loans", "get", "abc"}, exitInvalid},
		{"invalid book", []string{"books", "add", "--title", "x"}, exitInvalid},
		{"duplicate isbn", []string{"books", "add", "--title", "x", "--isbn", "978-1", "--author", "a", "--genre", "g"}, exitConflict},
		{"ambiguous get", []string{"books", "get", "1", "--isbn", "978-1"}, exitInvalid},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := c.run("", tc.args...)
			require.Error(t, err)
			assert.Equal(t, tc.want, exitCode(err))
		})
	}
}

func Test_CLI_UpdateKeepsOmittedFields(t *testing.T) {
	c := newCLI(t)
	seedLibrary(c)

	c.mustRun("books", "update", "1", "--genre", "Science Fiction")
	out := c.mustRun("books", "get", "--isbn", "978-1")
	assert.Contains(t, out, "Science Fiction")
	assert.Contains(t, out, "Frank Herbert")
	assert.Contains(t, out, "1965")

	c.mustRun("members", "update", "1", "--reading", "history")
	out = c.mustRun("members", "get", "1")
	assert.Contains(t, out, "Madrid")
	assert.Contains(t, out, "history")
}

func Test_CLI_DeleteGuards(t *testing.T) {
	c := newCLI(t)
	seedLibrary(c)
	c.mustRun("loans", "create", "1", "1")

	_, _, err := c.run("", "members", "delete", "1")
	assert.ErrorIs(t, err, library.ErrMemberHasActiveLoans)
	_, _, err = c.run("", "books", "delete", "1")
	assert.ErrorIs(t, err, library.ErrBookOnLoan)

	c.mustRun("loans", "delete", "1")
	c.mustRun("books", "delete", "1")
	c.mustRun("members", "delete", "1")

	out := c.mustRun("members", "list")
	assert.NotContains(t, out, "Ana")
	assert.Contains(t, out, "Bo")
}

func Test_Shell_RunsLinesAgainstOneLibrary(t *testing.T) {
	c := newCLI(t)
	script := strings.Join([]string{
		`members add --name "Ana Gómez" --email ana@example.com`,
		`books add --title 'The Left Hand of Darkness' --isbn 978-2 --author "Ursula K. Le Guin" --genre SF`,
		`loans create 1 1`,
		`loans create 1 1`,
		`loans active 1`,
		`shell`,
		`exit`,
		`books list`,
	}, "\n")

	out, errOut, err := c.run(script, "shell")

	require.NoError(t, err)
	assert.Contains(t, out, "Created loan 1")
	assert.Contains(t, out, "The Left Hand of Darkness")
	assert.Contains(t, errOut, "book unavailable for loan")
	assert.Contains(t, errOut, "already in a shell")
	assert.NotContains(t, out, "ISBN", "lines after exit must not run")
	assert.Equal(t, 1, strings.Count(out, "Created loan"))
}

func Test_ConfigInit_WritesFileOnce(t *testing.T) {
	c := newCLI(t)
	path := filepath.Join(c.dir, "config.yml")

	out := c.mustRun("config", "init")
	assert.Contains(t, out, path)
	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), "driver: sqlite3")

	_, _, err = c.run("", "config", "init")
	assert.ErrorContains(t, err, "already exists")
	c.mustRun("config", "init", "--force")

	_, statErr := os.Stat(filepath.Join(c.dir, "library.db"))
	assert.True(t, os.IsNotExist(statErr), "config commands must not create the database")
}

func Test_ExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{library.ErrBookNotFound, exitNotFound},
		{fmt.Errorf("loan 3: %w", library.ErrLoanAlreadyReturned), exitConflict},
		{usageErr("nope"), exitInvalid},
		{errors.New("disk full"), exitFailure},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, exitCode(tc.err), tc.err.Error())
	}
}

func Test_SplitArgs(t *testing.T) {
	tests := []struct {
		in      string
		want    []string
		wantErr bool
	}{
		{`loans create 1 2`, []string{"loans", "create", "1", "2"}, false},
		{`books add --title "The Hobbit"`, []string{"books", "add", "--title", "The Hobbit"}, false},
		{`--author 'O\'Brien'`, nil, true},
		{`--author O\'Brien`, []string{"--author", "O'Brien"}, false},
		{`--title ""`, []string{"--title", ""}, false},
		{`  spaced   out  `, []string{"spaced", "out"}, false},
		{`"unterminated`, nil, true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := splitArgs(tc.in)
			if tc.wantErr {
				assert.ErrorIs(t, err, library.ErrInvalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
