package shell

import (
	"sort"
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/samber/lo"

	"github.com/flickyourselfon/railhint/levelfile"
	"github.com/flickyourselfon/railhint/rail"
)

// ShellCompleter completes command names, and plane, rail, switch and level
// names from the loaded level file.
type ShellCompleter struct {
	sc *ShellController
}

func NewShellCompleter(sc *ShellController) *ShellCompleter {
	return &ShellCompleter{sc: sc}
}

type CommandMetadata struct {
	Options []string
	Args    []string
}

var commandMetadata = map[string]CommandMetadata{
	"follow": {Options: []string{"-moves"}, Args: []string{"all"}},
	"stats":  {Options: []string{"-bins"}},
	"help":   {Args: []string{"hint", "rail", "follow", "script"}},
}

var commandNames = []string{
	"load", "levels", "level", "at", "rail", "color", "hint", "kick",
	"follow", "reset", "show", "stats", "script", "help", "exit",
}

var colorNames = []string{
	rail.SquareColor.String(), rail.TriangleColor.String(),
	rail.SawColor.String(), rail.SineColor.String(), rail.NoColor.String(),
}

// Do implements readline.AutoCompleter.
func (c *ShellCompleter) Do(line []rune, pos int) ([][]rune, int) {
	text := string(line[:pos])
	fields, err := shellquote.Split(text)
	if err != nil {
		fields = strings.Fields(text)
	}
	endsWithSpace := len(text) > 0 && text[len(text)-1] == ' '

	var prefix string
	var completions []string
	if len(fields) == 0 || (len(fields) == 1 && !endsWithSpace) {
		if len(fields) == 1 {
			prefix = fields[0]
		}
		completions = commandNames
	} else {
		if !endsWithSpace {
			prefix = fields[len(fields)-1]
		}
		argIndex := len(fields) - 1
		if !endsWithSpace {
			argIndex--
		}
		completions = c.argCompletions(fields[0], argIndex, prefix)
	}

	var matches [][]rune
	for _, completion := range completions {
		if strings.HasPrefix(completion, prefix) {
			matches = append(matches, []rune(completion[len(prefix):]))
		}
	}
	return matches, len(prefix)
}

// argCompletions returns candidates for the argument at argIndex, counting
// from 0 after the command name.
func (c *ShellCompleter) argCompletions(cmd string, argIndex int, prefix string) []string {
	b := c.sc.cur
	switch cmd {
	case "color":
		return colorNames
	case "level":
		return lo.Map(c.sc.built, func(l *levelfile.Built, _ int) string { return strconv.Itoa(l.Spec.N) })
	case "at":
		if b != nil {
			return sortedKeys(b.Planes)
		}
	case "kick":
		if b == nil {
			return nil
		}
		ids := lo.Map(b.Switches, func(s *rail.Switch, _ int) string { return strconv.Itoa(int(s.ID)) })
		if argIndex == 0 {
			return append(sortedKeys(b.Planes), ids...)
		}
		return ids
	case "rail":
		if b != nil && argIndex == 0 {
			return lo.Map(b.Rails, func(r *rail.Rail, _ int) string { return strconv.Itoa(int(r.ID)) })
		}
		if argIndex == 2 {
			return []string{"1", "-1"}
		}
	}
	if md, ok := commandMetadata[cmd]; ok {
		if strings.HasPrefix(prefix, "-") || len(md.Args) == 0 {
			return md.Options
		}
		return md.Args
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}
