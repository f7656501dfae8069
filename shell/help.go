package shell

import (
	"embed"
	"io"
)

//go:embed helptext
var helptext embed.FS

func usage(w io.Writer) {
	usageTopic(w, "usage")
}

func usageTopic(w io.Writer, topic string) {
	dat, err := helptext.ReadFile("helptext/" + topic + ".txt")
	if err != nil {
		io.WriteString(w, "There is no help text for the topic "+topic+"\n")
		return
	}
	w.Write(dat)
}

func (sc *ShellController) help(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		usage(sc.out)
	} else {
		usageTopic(sc.out, cmd.args[0])
	}
	return nil, nil
}
