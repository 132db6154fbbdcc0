package gpg

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/awnumar/memguard"

	"github.com/usedetail/securedrop-detail/internal/debug"
)

// The engine subprocess misbehaves on some hosts when USERNAME is absent
// from its environment, so it is pinned before every invocation.
const (
	usernameEnvVar   = "USERNAME"
	usernameEnvValue = "www-data"
)

// statusLine is one machine-readable "[GNUPG:] KEYWORD args" line read
// from the engine's status file descriptor.
type statusLine struct {
	Keyword string
	Args    string
}

const statusPrefix = "[GNUPG:] "

func parseStatusLine(line string) (statusLine, bool) {
	rest, ok := strings.CutPrefix(line, statusPrefix)
	if !ok {
		return statusLine{}, false
	}
	keyword, args, _ := strings.Cut(rest, " ")
	if keyword == "" {
		return statusLine{}, false
	}
	return statusLine{Keyword: keyword, Args: args}, true
}

// invocation holds everything a single engine run produced.
type invocation struct {
	statuses []statusLine
	stderr   string
	exitErr  error
}

func (inv *invocation) ok() bool {
	return inv.exitErr == nil
}

// status returns the first status line with the given keyword.
func (inv *invocation) status(keyword string) (statusLine, bool) {
	for _, s := range inv.statuses {
		if s.Keyword == keyword {
			return s, true
		}
	}
	return statusLine{}, false
}

// diagnostic returns the engine's stderr output, falling back to the exit
// error so failures never surface as an empty string.
func (inv *invocation) diagnostic() string {
	d := strings.TrimSpace(inv.stderr)
	if d == "" && inv.exitErr != nil {
		d = inv.exitErr.Error()
	}
	return d
}

// run invokes the engine once. opts selects the handle configuration,
// args the operation. stdin and stdout may be nil. When passphrase is
// non-nil its contents are handed to the engine over a dedicated pipe via
// --passphrase-fd, never the command line; the buffer is wiped before run
// returns. Status lines are always collected over a second pipe.
func (g *GPG) run(opts, args []string, stdin io.Reader, stdout io.Writer, passphrase *memguard.LockedBuffer) (*invocation, error) {
	if passphrase != nil {
		defer passphrase.Destroy()
	}

	statusR, statusW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("gpg: failed to create status pipe: %w", err)
	}

	// Child fd numbering: ExtraFiles[0] is fd 3, ExtraFiles[1] is fd 4.
	full := make([]string, 0, len(opts)+len(args)+4)
	full = append(full, opts...)
	full = append(full, "--status-fd", "3")
	extraFiles := []*os.File{statusW}

	var passR, passW *os.File
	if passphrase != nil {
		passR, passW, err = os.Pipe()
		if err != nil {
			statusR.Close()
			statusW.Close()
			return nil, fmt.Errorf("gpg: failed to create passphrase pipe: %w", err)
		}
		full = append(full, "--passphrase-fd", "4")
		extraFiles = append(extraFiles, passR)
	}
	full = append(full, args...)

	debug.Print("engine invocation: %s %s\n", g.binary, strings.Join(full, " "))

	cmd := exec.Command(g.binary, full...)
	cmd.Env = engineEnv()
	cmd.ExtraFiles = extraFiles
	cmd.Stdin = stdin
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if stdout != nil {
		cmd.Stdout = stdout
	}

	if err := cmd.Start(); err != nil {
		statusR.Close()
		statusW.Close()
		if passphrase != nil {
			passR.Close()
			passW.Close()
		}
		return nil, fmt.Errorf("gpg: failed to start engine: %w", err)
	}

	// The child owns its copies now; close ours so the reads below see EOF.
	statusW.Close()
	if passphrase != nil {
		passR.Close()
	}

	var wg sync.WaitGroup
	var statuses []statusLine
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer statusR.Close()
		scanner := bufio.NewScanner(statusR)
		for scanner.Scan() {
			if s, ok := parseStatusLine(scanner.Text()); ok {
				statuses = append(statuses, s)
			}
		}
	}()

	if passphrase != nil {
		wg.Add(1)
		go func(buf *memguard.LockedBuffer) {
			defer wg.Done()
			defer passW.Close()
			passW.Write(buf.Bytes())
			passW.Write([]byte("\n"))
		}(passphrase)
	}

	exitErr := cmd.Wait()
	wg.Wait()

	inv := &invocation{
		statuses: statuses,
		stderr:   stderr.String(),
		exitErr:  exitErr,
	}
	for _, s := range inv.statuses {
		debug.Print("engine status: %s %s\n", s.Keyword, s.Args)
	}
	return inv, nil
}

func engineEnv() []string {
	env := os.Environ()
	for _, kv := range env {
		if strings.HasPrefix(kv, usernameEnvVar+"=") {
			return env
		}
	}
	return append(env, usernameEnvVar+"="+usernameEnvValue)
}
