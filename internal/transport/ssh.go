package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/melih-ucgun/xal/internal/core"
	"github.com/melih-ucgun/xal/internal/inventory"
)

var (
	ErrNoAuthMethod = errors.New("no ssh auth method: set key_path or password, or run an ssh-agent")
	errNoMarkers    = errors.New("remote output markers not found")
)

// SSHOptions tune NewSSHTransport.
type SSHOptions struct {
	// ConfigPath is the OpenSSH client config consulted for the host alias.
	// Empty means ~/.ssh/config; "none" disables the lookup.
	ConfigPath string
	Timeout    time.Duration
	Logger     *slog.Logger
}

// ConfigFile is the OpenSSH config path to read, "" for none.
func (o SSHOptions) ConfigFile() string {
	switch o.ConfigPath {
	case "":
		return DefaultSSHConfigPath()
	case "none":
		return ""
	}
	return o.ConfigPath
}

// SSHTransport runs commands over one SSH connection and tracks a remote
// working directory for them.
type SSHTransport struct {
	client *ssh.Client
	host   inventory.Host
	logger *slog.Logger
	agent  net.Conn

	mu   sync.Mutex
	sftp *sftp.Client
	cwd  string
}

func NewSSHTransport(ctx context.Context, host inventory.Host, opts SSHOptions) (*SSHTransport, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	host, err := ResolveHost(host, opts.ConfigFile())
	if err != nil {
		return nil, err
	}

	auth, agentConn, err := authMethods(host)
	if err != nil {
		return nil, err
	}
	closeAgent := func() {
		if agentConn != nil {
			agentConn.Close()
		}
	}

	hostKeys, err := hostKeyCallback(host)
	if err != nil {
		closeAgent()
		return nil, err
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	sshConfig := &ssh.ClientConfig{
		User:            host.User,
		Auth:            auth,
		HostKeyCallback: hostKeys,
		Timeout:         timeout,
	}

	addr := net.JoinHostPort(host.Address, strconv.Itoa(host.Port))
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		closeAgent()
		return nil, fmt.Errorf("ssh dial %s: %w", host.Label(), err)
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, sshConfig)
	if err != nil {
		conn.Close()
		closeAgent()
		return nil, fmt.Errorf("ssh handshake %s: %w", host.Label(), err)
	}
	logger.Debug("ssh connected", "host", host.Label(), "addr", addr, "user", host.User)

	return &SSHTransport{
		client: ssh.NewClient(c, chans, reqs),
		host:   host,
		logger: logger,
		agent:  agentConn,
	}, nil
}

func authMethods(host inventory.Host) ([]ssh.AuthMethod, net.Conn, error) {
	var methods []ssh.AuthMethod

	if host.KeyPath != "" {
		key, err := os.ReadFile(host.KeyPath)
		if err != nil {
			return nil, nil, fmt.Errorf("read ssh key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) && host.Password != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(key, []byte(host.Password))
		}
		if err != nil {
			return nil, nil, fmt.Errorf("parse ssh key %s: %w", host.KeyPath, err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	var agentConn net.Conn
	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		if conn, err := net.Dial("unix", sock); err == nil {
			agentConn = conn
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		}
	}

	if host.Password != "" {
		methods = append(methods, ssh.Password(host.Password))
	}

	if len(methods) == 0 {
		return nil, nil, ErrNoAuthMethod
	}
	return methods, agentConn, nil
}

func hostKeyCallback(host inventory.Host) (ssh.HostKeyCallback, error) {
	if host.Insecure {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	path := host.KnownHosts
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locate known_hosts: %w", err)
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}
	cb, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("load known_hosts %s (set insecure to skip host key checks): %w", path, err)
	}
	return cb, nil
}

// Host returns the resolved connection settings.
func (t *SSHTransport) Host() inventory.Host { return t.host }

func (t *SSHTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var errs []error
	if t.sftp != nil {
		errs = append(errs, t.sftp.Close())
		t.sftp = nil
	}
	if t.client != nil {
		errs = append(errs, t.client.Close())
		t.client = nil
	}
	if t.agent != nil {
		errs = append(errs, t.agent.Close())
		t.agent = nil
	}
	return errors.Join(errs...)
}

// SFTP returns the SFTP client of the connection, opening it on first use.
func (t *SSHTransport) SFTP() (*sftp.Client, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sftpLocked()
}

func (t *SSHTransport) sftpLocked() (*sftp.Client, error) {
	if t.sftp != nil {
		return t.sftp, nil
	}
	if t.client == nil {
		return nil, net.ErrClosed
	}
	c, err := sftp.NewClient(t.client)
	if err != nil {
		return nil, fmt.Errorf("open sftp: %w", err)
	}
	t.sftp = c
	return c, nil
}

// Cwd is the directory commands run in. It starts as the login directory.
func (t *SSHTransport) Cwd() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cwd == "" {
		c, err := t.sftpLocked()
		if err != nil {
			return "", err
		}
		wd, err := c.Getwd()
		if err != nil {
			return "", fmt.Errorf("remote getwd: %w", err)
		}
		t.cwd = wd
	}
	return t.cwd, nil
}

// SetCwd changes the directory later commands run in. It does not check
// that dir exists.
func (t *SSHTransport) SetCwd(dir string) {
	t.mu.Lock()
	t.cwd = dir
	t.mu.Unlock()
}

// Execute runs line in the remote working directory. The line is framed by
// per-call markers on stdout and stderr so that login banners and other
// noise around it are dropped.
func (t *SSHTransport) Execute(ctx context.Context, line string, stdin io.Reader) (*core.Result, error) {
	t.mu.Lock()
	client, cwd := t.client, t.cwd
	t.mu.Unlock()
	if client == nil {
		return nil, net.ErrClosed
	}

	sess, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("ssh session: %w", err)
	}
	defer sess.Close()

	inner := line
	if cwd != "" {
		inner = "cd " + core.Quote(cwd) + " && " + line
	}
	id := uuid.NewString()
	begin, end := core.Quote("--- BEGIN xal "+id+" ---"), core.Quote("--- END xal "+id+" ---")
	script := fmt.Sprintf("printf '%%s' %[1]s; printf '%%s' %[1]s >&2\n(\n%[3]s\n)\n__xal_rc=$?\nprintf '%%s' %[2]s; printf '%%s' %[2]s >&2\nexit $__xal_rc\n",
		begin, end, inner)

	var stdout, stderr bytes.Buffer
	sess.Stdin = stdin
	sess.Stdout = &stdout
	sess.Stderr = &stderr

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			sess.Close()
		case <-done:
		}
	}()

	t.logger.Debug("ssh exec", "host", t.host.Label(), "cwd", cwd, "line", line)
	runErr := sess.Run(script)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &core.Result{}
	var exitErr *ssh.ExitError
	switch {
	case runErr == nil:
	case errors.As(runErr, &exitErr):
		res.ReturnCode = exitErr.ExitStatus()
	default:
		return nil, &core.CommandNotFoundError{Argv: []string{line}, Err: runErr}
	}

	out, ok := between(stdout.String(), "--- BEGIN xal "+id+" ---", "--- END xal "+id+" ---")
	if !ok {
		return nil, fmt.Errorf("ssh exec %q: %w", line, errNoMarkers)
	}
	res.Stdout = out
	res.Stderr, ok = between(stderr.String(), "--- BEGIN xal "+id+" ---", "--- END xal "+id+" ---")
	if !ok {
		res.Stderr = stderr.String()
	}

	if res.ReturnCode == exitNotFound {
		return nil, &core.CommandNotFoundError{Argv: []string{line}, Err: errors.New(strings.TrimSpace(res.Stderr))}
	}
	return res, nil
}

func between(s, begin, end string) (string, bool) {
	i := strings.Index(s, begin)
	if i < 0 {
		return "", false
	}
	s = s[i+len(begin):]
	j := strings.LastIndex(s, end)
	if j < 0 {
		return "", false
	}
	return s[:j], true
}

// GetOS returns the lower-cased kernel name reported by uname.
func (t *SSHTransport) GetOS(ctx context.Context) (string, error) {
	res, err := t.Execute(ctx, "uname -s", nil)
	if err != nil {
		return "", err
	}
	if !res.Succeeded() {
		return "", fmt.Errorf("uname failed: %s", strings.TrimSpace(res.Stderr))
	}
	return strings.ToLower(strings.TrimSpace(res.Stdout)), nil
}
