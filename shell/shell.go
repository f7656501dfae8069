package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"

	"github.com/flickyourselfon/railhint/config"
	"github.com/flickyourselfon/railhint/hint"
	"github.com/flickyourselfon/railhint/level"
	"github.com/flickyourselfon/railhint/levelfile"
	"github.com/flickyourselfon/railhint/stats"
)

var (
	errNoData            = errors.New("no data in this line")
	errWrongOptionSyntax = errors.New("wrong format; all options need arguments")
	errNoLevel           = errors.New("please load a level file first with the `load` command")
	errQuit              = errors.New("quit")
)

type Response struct {
	message string
}

func msg(message string) *Response {
	return &Response{message: message}
}

type CmdOptions map[string]string

func (c CmdOptions) Int(key string, defaultI int) (int, error) {
	v, ok := c[key]
	if !ok {
		return defaultI, nil
	}
	return strconv.Atoi(v)
}

type shellcmd struct {
	cmd     string
	args    []string
	options CmdOptions
}

type ShellController struct {
	l   *readline.Instance
	out io.Writer
	cfg *config.Config

	levelsPath string
	built      []*levelfile.Built
	cur        *levelfile.Built
	state      *levelfile.State
	ws         *level.SearchWorkspace

	lastHint hint.Hint
	timings  stats.Sample
	steps    stats.Statistic
}

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func writeln(msg string, w io.Writer) {
	io.WriteString(w, msg)
	io.WriteString(w, "\n")
}

func NewShellController(cfg *config.Config) *ShellController {
	sc := &ShellController{cfg: cfg}
	l, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[32mrailhint>\033[0m ",
		HistoryFile:     "/tmp/railhint-readline.tmp",
		EOFPrompt:       "exit",
		InterruptPrompt: "^C",
		AutoComplete:    NewShellCompleter(sc),

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		panic(err)
	}
	sc.l = l
	sc.out = l.Stderr()
	return sc
}

// newHeadlessController writes responses to out with no terminal attached.
func newHeadlessController(cfg *config.Config, out io.Writer) *ShellController {
	return &ShellController{cfg: cfg, out: out}
}

func (sc *ShellController) showMessage(msg string) {
	writeln(msg, sc.out)
}

func (sc *ShellController) showError(err error) {
	sc.showMessage("Error: " + err.Error())
}

// extractFields splits a line the way a shell would. Arguments starting
// with - are options and take the following field as their value.
func extractFields(line string) (*shellcmd, error) {
	fields, err := shellquote.Split(line)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, errNoData
	}
	cmd := &shellcmd{cmd: fields[0], options: CmdOptions{}}
	for i := 1; i < len(fields); i++ {
		f := fields[i]
		// negative numbers are arguments, e.g. a rail direction
		if strings.HasPrefix(f, "-") && len(f) > 1 && !isNumber(f) {
			if i == len(fields)-1 {
				return nil, errWrongOptionSyntax
			}
			cmd.options[f[1:]] = fields[i+1]
			i++
			continue
		}
		cmd.args = append(cmd.args, f)
	}
	return cmd, nil
}

func isNumber(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

func (sc *ShellController) dispatch(cmd *shellcmd) (*Response, error) {
	switch cmd.cmd {
	case "load":
		return sc.load(cmd)
	case "levels":
		return sc.levels(cmd)
	case "level":
		return sc.selectLevel(cmd)
	case "at":
		return sc.at(cmd)
	case "rail":
		return sc.rail(cmd)
	case "color":
		return sc.color(cmd)
	case "hint", "h":
		return sc.hint(cmd)
	case "kick", "k":
		return sc.kick(cmd)
	case "follow", "f":
		return sc.follow(cmd)
	case "reset":
		return sc.reset(cmd)
	case "show", "s":
		return sc.show(cmd)
	case "stats":
		return sc.stats(cmd)
	case "script":
		return sc.script(cmd)
	case "help":
		return sc.help(cmd)
	case "exit", "bye":
		return nil, errQuit
	default:
		return nil, fmt.Errorf("command %v not found", strconv.Quote(cmd.cmd))
	}
}

func (sc *ShellController) handle(line string) (*Response, error) {
	cmd, err := extractFields(line)
	if err != nil {
		return nil, err
	}
	return sc.dispatch(cmd)
}

// Execute runs a single command line, as given on the command line of the
// binary.
func (sc *ShellController) Execute(sig chan os.Signal, line string) {
	resp, err := sc.handle(line)
	switch {
	case errors.Is(err, errQuit):
		sig <- syscall.SIGINT
	case err != nil:
		sc.showError(err)
	case resp != nil:
		sc.showMessage(resp.message)
	}
}

func (sc *ShellController) Loop(sig chan os.Signal) {
	defer sc.l.Close()

	for {
		line, err := sc.l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				sig <- syscall.SIGINT
				break
			}
			continue
		} else if err == io.EOF {
			sig <- syscall.SIGINT
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		resp, err := sc.handle(line)
		if errors.Is(err, errQuit) {
			sig <- syscall.SIGINT
			break
		}
		if err != nil {
			sc.showError(err)
			continue
		}
		if resp != nil {
			sc.showMessage(resp.message)
		}
	}
	log.Debug().Msg("exiting-readline-loop")
}

func (sc *ShellController) Cleanup() {
	if sc.cur != nil {
		log.Info().Int("searches", sc.ws.SearchesRun()).Msg("shell-cleanup")
	}
}

func (sc *ShellController) searchContext() (context.Context, context.CancelFunc) {
	if d := sc.cfg.SearchTimeout(); d > 0 {
		return context.WithTimeout(context.Background(), d)
	}
	return context.WithCancel(context.Background())
}
