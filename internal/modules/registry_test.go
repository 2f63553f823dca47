// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package modules

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/relay/internal/config"
	"github.com/tombee/relay/internal/log"
	"github.com/tombee/relay/pkg/decorate"
	"github.com/tombee/relay/pkg/errors"
	"github.com/tombee/relay/pkg/gate"
	"github.com/tombee/relay/pkg/pipeline"
)

func TestBuiltin_List(t *testing.T) {
	reg := Builtin()

	assert.Equal(t, []string{"FetchHomepage", "Length", "ParsePage", "Uppercase"}, reg.List())
	assert.True(t, reg.Has("Uppercase"))
	assert.False(t, reg.Has("Nope"))
}

func TestRegistry_Register(t *testing.T) {
	reg := NewRegistry()
	factory := func(Deps, decorate.Options) (pipeline.Step, error) { return nil, nil }

	require.NoError(t, reg.Register("A", factory))
	assert.Error(t, reg.Register("A", factory), "duplicate names are rejected")
	assert.Error(t, reg.Register("", factory))
	assert.Error(t, reg.Register("B", nil))
}

func TestRegistry_CreateUnknown(t *testing.T) {
	_, err := Builtin().Create("Nope", Deps{}, decorate.Options{})

	var notFound *errors.NotFoundError
	require.True(t, stderrors.As(err, &notFound))
	assert.Equal(t, "Nope", notFound.ID)
}

func TestRegistry_CreateFetchWithoutClient(t *testing.T) {
	_, err := Builtin().Create("FetchHomepage", Deps{}, decorate.Options{})

	var cfgErr *errors.ConfigError
	assert.True(t, stderrors.As(err, &cfgErr))
}

func TestRegisterModule_Decorates(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, RegisterModule(reg, "Double", func(Deps) (pipeline.Module[int, int], error) {
		return pipeline.NewModule("Double", func(_ context.Context, n int) (int, error) { return n * 2, nil }), nil
	}))

	step, err := reg.Create("Double", Deps{}, decorate.Options{
		Gate:     gate.NewKeyed(),
		Capacity: 1,
		Observer: decorate.Observer{Logger: log.Discard()},
	})
	require.NoError(t, err)
	assert.Equal(t, "Double", step.Name())
	assert.Equal(t, pipeline.TypeOf[int](), step.InputType())

	ctx := pipeline.WithRunContext(context.Background(), pipeline.NewRunContext("in"))
	out, err := step.Execute(ctx, 21)
	require.NoError(t, err)
	assert.Equal(t, 42, out)
}

func TestBuildChain_Smoke(t *testing.T) {
	chain, err := BuildChain(Builtin(), config.Default().Steps, ChainOptions{
		Gate:     gate.NewKeyed(),
		Observer: decorate.Observer{Logger: log.Discard()},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Uppercase", "Length"}, chain.Names())
	assert.Equal(t, pipeline.TypeOf[int](), chain.OutputType())
}

func TestBuildChain_TypeMismatch(t *testing.T) {
	steps := []config.StepConfig{{Name: "Length"}, {Name: "Uppercase"}}

	_, err := BuildChain(Builtin(), steps, ChainOptions{Observer: decorate.Observer{Logger: log.Discard()}})

	var chainErr *errors.ChainError
	require.True(t, stderrors.As(err, &chainErr))
	assert.Equal(t, 1, chainErr.Index)
}

func TestBuildChain_Homepage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<title>Hi</title><a href="https://youtube.com/@hi">yt</a>`))
	}))
	defer server.Close()

	steps := []config.StepConfig{
		{Name: "FetchHomepage", MaxConcurrency: 2, MaxRetries: 1, Timeout: 5 * time.Second},
		{Name: "ParsePage"},
	}
	chain, err := BuildChain(Builtin(), steps, ChainOptions{
		Deps:     Deps{HTTPClient: server.Client()},
		Gate:     gate.NewKeyed(),
		Observer: decorate.Observer{Logger: log.Discard()},
	})
	require.NoError(t, err)

	orch := pipeline.NewOrchestrator(chain, nil).WithLogger(log.Discard())
	ctx := pipeline.WithRunContext(context.Background(), pipeline.NewRunContext(server.URL))

	out, err := orch.Execute(ctx, server.URL)
	require.NoError(t, err)

	info, ok := out.(PageInfo)
	require.True(t, ok)
	assert.Equal(t, "Hi", info.Title)
	assert.Equal(t, []string{"https://www.youtube.com/@hi"}, info.Channels)
}
