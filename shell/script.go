package shell

import (
	"errors"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"
)

const luaShellGlobal = "railhint_shell"

// scriptCommands are exposed to lua as railhint_<name>(args), each taking
// the rest of the command line as one string.
var scriptCommands = []string{
	"load", "level", "at", "rail", "color", "hint", "kick", "follow", "reset", "show", "stats",
}

func getShell(L *lua.LState) *ShellController {
	ud, ok := L.GetGlobal(luaShellGlobal).(*lua.LUserData)
	if !ok {
		L.RaiseError("%s is not set", luaShellGlobal)
		return nil
	}
	sc, ok := ud.Value.(*ShellController)
	if !ok {
		L.RaiseError("%s has the wrong type", luaShellGlobal)
		return nil
	}
	return sc
}

// runLine runs one shell line and pushes the response text, or nil and the
// error text.
func runLine(L *lua.LState, line string) int {
	sc := getShell(L)
	r, err := sc.handle(line)
	if err != nil {
		log.Err(err).Str("line", line).Msg("error-executing-script-line")
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	if r == nil {
		L.Push(lua.LString(""))
	} else {
		L.Push(lua.LString(r.message))
	}
	return 1
}

// Run executes any shell line, e.g. railhint_run("rail 3 0 -1").
func Run(L *lua.LState) int {
	return runLine(L, L.CheckString(1))
}

func commandFunc(name string) lua.LGFunction {
	return func(L *lua.LState) int {
		line := name
		// numbers are accepted too, e.g. railhint_level(2)
		if args := L.ToString(1); args != "" {
			line += " " + args
		}
		return runLine(L, line)
	}
}

// AtVictory reports whether the player has reached the victory plane.
func AtVictory(L *lua.LState) int {
	sc := getShell(L)
	L.Push(lua.LBool(sc.state != nil && sc.state.AtVictory()))
	return 1
}

// LastHint returns the kind of the most recent hint, e.g. "switch".
func LastHint(L *lua.LState) int {
	sc := getShell(L)
	L.Push(lua.LString(sc.lastHint.Kind().String()))
	return 1
}

func (sc *ShellController) script(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return nil, errors.New("script <file.lua>")
	}
	L := lua.NewState()
	defer L.Close()

	ud := L.NewUserData()
	ud.Value = sc
	L.SetGlobal(luaShellGlobal, ud)
	L.SetGlobal("railhint_run", L.NewFunction(Run))
	L.SetGlobal("railhint_at_victory", L.NewFunction(AtVictory))
	L.SetGlobal("railhint_last_hint", L.NewFunction(LastHint))
	for _, name := range scriptCommands {
		L.SetGlobal("railhint_"+name, L.NewFunction(commandFunc(name)))
	}

	if err := L.DoFile(cmd.args[0]); err != nil {
		log.Err(err).Str("file", cmd.args[0]).Msg("script-failed")
		return nil, err
	}
	// a top level return value becomes the response
	if L.GetTop() > 0 {
		return msg(L.Get(-1).String()), nil
	}
	return nil, nil
}
