package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/getmockd/gqlprobe/pkg/cli"
	"github.com/getmockd/gqlprobe/pkg/target"
)

const usersSDL = `
type Query {
  user(id: ID!): User
  me: User
  version: String
}

type Mutation {
  deleteUser(id: ID!): Boolean
}

type User {
  id: ID!
  name: String
  email: String
}
`

// TestMain lets scripts run gqlprobe in-process.
func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"gqlprobe": cli.Main,
	}))
}

func TestScripts(t *testing.T) {
	srv, err := target.New(usersSDL)
	if err != nil {
		t.Fatal(err)
	}
	srv.FailField("deleteUser", http.StatusForbidden)
	// Scripts run as parallel subtests that start after this function returns,
	// so the server must outlive it.
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	down := httptest.NewServer(http.NotFoundHandler())
	downURL := down.URL
	down.Close()

	testscript.Run(t, testscript.Params{
		Dir: "testdata/script",
		Setup: func(env *testscript.Env) error {
			env.Setenv("TARGET_URL", ts.URL)
			env.Setenv("DOWN_URL", downURL)
			list := "# the first endpoint is down\n" + downURL + "\n\n" + ts.URL + "\n"
			return os.WriteFile(filepath.Join(env.WorkDir, "endpoints.txt"), []byte(list), 0o600)
		},
	})
}
