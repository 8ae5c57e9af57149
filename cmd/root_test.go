package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/oews-ingest/internal/app"
)

func TestRootRegistersSubcommands(t *testing.T) {
	root, _ := newRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	require.Subset(t, names, []string{"migrate", "download", "load", "seed", "crawl", "serve"})

	seedCmd, _, err := root.Find([]string{"seed", "occupations"})
	require.NoError(t, err)
	require.Equal(t, "occupations", seedCmd.Name())
	require.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestRootSurfacesInitFailure(t *testing.T) {
	orig := newApp
	t.Cleanup(func() { newApp = orig })
	newApp = func(context.Context, string) (*app.App, error) {
		return nil, errors.New("no config")
	}

	root, state := newRootCmd()
	root.SetArgs([]string{"migrate"})
	root.SilenceErrors = true
	err := root.ExecuteContext(context.Background())
	require.ErrorContains(t, err, "initialize application services")
	require.Nil(t, state.app)
}

func TestResolveAppRequiresApp(t *testing.T) {
	_, err := resolveApp(context.Background())
	require.Error(t, err)
}

func TestFinishLogsThroughAppLogger(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	state := &rootState{app: &app.App{Logger: zap.New(core)}}
	var stderr bytes.Buffer

	state.finish(context.Background(), errors.New("reference tier: load oe.area"), &stderr)

	entries := logs.FilterMessage("command failed").All()
	require.Len(t, entries, 1)
	require.Equal(t, "reference tier: load oe.area", entries[0].ContextMap()["error"])
	require.Empty(t, stderr.String())
	require.Nil(t, state.app)
}

func TestFinishFallsBackToStderrWithoutApp(t *testing.T) {
	state := &rootState{}
	var stderr bytes.Buffer

	state.finish(context.Background(), errors.New("api.key: is required"), &stderr)
	require.Equal(t, "oews-ingest: api.key: is required\n", stderr.String())

	stderr.Reset()
	state.finish(context.Background(), nil, &stderr)
	require.Empty(t, stderr.String())
}
