package event

import "strings"

// Stream identifies which standard stream a line came from.
type Stream string

const (
	// StreamStdout is the process's standard output.
	StreamStdout Stream = "stdout"
	// StreamStderr is the process's standard error.
	StreamStderr Stream = "stderr"
)

const namePrefix = "mcp-"

// Name returns the event name lines of stream s are published under for the
// process id, e.g. "mcp-stdout-filesystem".
func Name(s Stream, id string) string {
	return namePrefix + string(s) + "-" + id
}

// StdoutName returns the stdout event name for id.
func StdoutName(id string) string { return Name(StreamStdout, id) }

// StderrName returns the stderr event name for id.
func StderrName(id string) string { return Name(StreamStderr, id) }

// ExitName returns the name of the event published once a process has exited
// and both of its streams have drained.
func ExitName(id string) string {
	return namePrefix + "exit-" + id
}

// Parse splits an event name into its kind ("stdout", "stderr" or "exit") and
// process id. ok is false for names this package did not produce.
func Parse(name string) (kind, id string, ok bool) {
	rest, found := strings.CutPrefix(name, namePrefix)
	if !found {
		return "", "", false
	}

	for _, k := range []string{string(StreamStdout), string(StreamStderr), "exit"} {
		if after, cut := strings.CutPrefix(rest, k+"-"); cut && after != "" {
			return k, after, true
		}
	}

	return "", "", false
}
