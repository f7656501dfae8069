package shell

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/flickyourselfon/railhint/config"
)

const testLevels = "../levelfile/testdata/abc.yaml"

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	os.Exit(m.Run())
}

func TestExtractFields(t *testing.T) {
	is := is.New(t)
	type testdata struct {
		line   string
		expCmd *shellcmd
		expErr error
	}
	cases := []testdata{
		{"", nil, errNoData},
		{"load '/path/with space/levels.yaml'",
			&shellcmd{"load", []string{"/path/with space/levels.yaml"}, CmdOptions{}},
			nil},
		{"rail 3 0 -1",
			&shellcmd{"rail", []string{"3", "0", "-1"}, CmdOptions{}},
			nil},
		{"follow all -moves 5 ",
			&shellcmd{"follow", []string{"all"}, CmdOptions{"moves": "5"}},
			nil},
		{"stats -bins", nil, errWrongOptionSyntax},
	}
	for _, c := range cases {
		cmd, err := extractFields(c.line)
		is.Equal(cmd, c.expCmd)
		is.Equal(err, c.expErr)
	}
}

type session struct {
	t   *testing.T
	sc  *ShellController
	out *bytes.Buffer
}

func newSession(t *testing.T) *session {
	cfg := config.DefaultConfig()
	cfg.Set(config.ConfigLevelsPath, testLevels)
	out := &bytes.Buffer{}
	return &session{t: t, sc: newHeadlessController(cfg, out), out: out}
}

// run executes line and returns everything the command printed.
func (s *session) run(line string) (string, error) {
	s.t.Helper()
	s.out.Reset()
	resp, err := s.sc.handle(line)
	if resp != nil {
		s.sc.showMessage(resp.message)
	}
	return s.out.String(), err
}

func (s *session) mustRun(line string) string {
	s.t.Helper()
	out, err := s.run(line)
	if err != nil {
		s.t.Fatalf("%s: %v", line, err)
	}
	return out
}

func TestNeedsLevelFirst(t *testing.T) {
	is := is.New(t)
	s := newSession(t)
	for _, line := range []string{"hint", "show", "at a", "kick 1", "stats", "levels"} {
		_, err := s.run(line)
		is.True(errors.Is(err, errNoLevel))
	}
	_, err := s.run("frobnicate")
	is.True(err != nil)
	_, err = s.run("exit")
	is.True(errors.Is(err, errQuit))
}

func TestHintSession(t *testing.T) {
	is := is.New(t)
	s := newSession(t)

	out := s.mustRun("load")
	is.True(strings.Contains(out, "loaded 2 levels"))
	is.True(strings.Contains(out, "plane 0 (a)"))

	out = s.mustRun("levels")
	is.True(strings.Contains(out, "*   1"))

	out = s.mustRun("hint")
	is.True(strings.Contains(out, "switch 1"))
	is.True(strings.Contains(out, "4 steps to victory"))

	s.mustRun("kick 1")
	out = s.mustRun("hint")
	is.True(strings.Contains(out, "rail 0"))

	out = s.mustRun("color none")
	is.True(strings.Contains(out, "none"))
	out = s.mustRun("hint")
	is.True(strings.Contains(out, "switch 0"))

	s.mustRun("reset")
	out = s.mustRun("rail 0 0 1")
	is.True(strings.Contains(out, "offset 0/2 dir +1"))
	is.True(strings.Contains(out, "open"))
	_, err := s.run("rail 0 5")
	is.True(err != nil)
	_, err = s.run("at nowhere")
	is.True(err != nil)
}

func TestFollowToVictory(t *testing.T) {
	is := is.New(t)
	s := newSession(t)
	s.mustRun("load " + testLevels)
	s.mustRun("level 2")

	out := s.mustRun("follow")
	is.True(strings.Contains(out, "1. switch: switch 11"))
	out = s.mustRun("follow all")
	is.True(strings.HasSuffix(strings.TrimSpace(out), "victory"))

	out = s.mustRun("show")
	is.True(strings.Contains(out, "(victory)"))
	is.True(strings.Contains(out, "4 kicks"))

	out = s.mustRun("stats -bins 3")
	is.True(strings.Contains(out, "7 searches"))
	is.True(strings.Contains(out, "solution steps mean 4.00"))

	out = s.mustRun("hint")
	is.True(strings.HasPrefix(out, "none"))
	_, err := s.run("level 9")
	is.True(err != nil)
}

func TestHelp(t *testing.T) {
	is := is.New(t)
	s := newSession(t)
	is.True(strings.Contains(s.mustRun("help"), "follow [all]"))
	is.True(strings.Contains(s.mustRun("help rail"), "wrapping around"))
	is.True(strings.Contains(s.mustRun("help nope"), "no help text"))
}

func TestCompleter(t *testing.T) {
	is := is.New(t)
	s := newSession(t)
	c := NewShellCompleter(s.sc)

	complete := func(line string) []string {
		matches, _ := c.Do([]rune(line), len(line))
		var out []string
		for _, m := range matches {
			out = append(out, string(m))
		}
		return out
	}
	is.Equal(complete("lev"), []string{"els", "el"})
	is.Equal(complete("color sa"), []string{"w"})
	is.Equal(len(complete("at ")), 0)

	s.mustRun("load")
	s.mustRun("level 2")
	is.Equal(complete("at l"), []string{"ow"})
	is.Equal(complete("kick 1"), []string{"0", "1", "2"})
	is.Equal(complete("rail 3 0 -"), []string{"1"})
	is.Equal(complete("follow -"), []string{"moves"})
	is.Equal(complete("level "), []string{"1", "2"})
}

func TestScript(t *testing.T) {
	is := is.New(t)
	s := newSession(t)
	out := s.mustRun("script testdata/solve.lua")
	is.True(strings.Contains(out, "solved in 7 moves"))
	is.True(strings.Contains(out, "bad rail: true"))
	is.True(s.sc.state.AtVictory())

	_, err := s.run("script testdata/missing.lua")
	is.True(err != nil)
}
