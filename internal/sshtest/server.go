// Package sshtest runs an in-process SSH server for tests. Exec requests are
// run locally with sh -c and the sftp subsystem is served from the local
// filesystem, so a "remote" session sees the test machine.
package sshtest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/binary"
	"encoding/pem"
	"errors"
	"io"
	"net"
	"os/exec"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// Server is a running test server.
type Server struct {
	Addr      string
	Host      string
	Port      int
	PublicKey ssh.PublicKey

	banner   atomic.Value
	execs    atomic.Int64
	listener net.Listener
}

// SetBanner makes the server write b to stdout before the output of every
// later exec request, like a noisy login shell.
func (s *Server) SetBanner(b string) { s.banner.Store(b) }

// Execs counts exec requests served so far.
func (s *Server) Execs() int64 { return s.execs.Load() }

// generateSigner creates a throwaway RSA host key.
func generateSigner() (ssh.Signer, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	return ssh.ParsePrivateKey(keyPEM)
}

// Start listens on a random local port. The server stops when the test ends.
func Start(t testing.TB) *Server {
	t.Helper()

	signer, err := generateSigner()
	if err != nil {
		t.Fatalf("generate host key: %v", err)
	}
	serverConfig := &ssh.ServerConfig{
		NoClientAuth: true,
	}
	serverConfig.AddHostKey(signer)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	host, port, _ := net.SplitHostPort(listener.Addr().String())
	p, _ := strconv.Atoi(port)

	s := &Server{
		Addr:      listener.Addr().String(),
		Host:      host,
		Port:      p,
		PublicKey: signer.PublicKey(),
		listener:  listener,
	}
	t.Cleanup(func() { listener.Close() })

	go func() {
		for {
			nConn, err := listener.Accept()
			if err != nil {
				return
			}
			go s.serveConn(nConn, serverConfig)
		}
	}()
	return s
}

func (s *Server) serveConn(conn net.Conn, cfg *ssh.ServerConfig) {
	_, chans, reqs, err := ssh.NewServerConn(conn, cfg)
	if err != nil {
		return
	}
	go ssh.DiscardRequests(reqs)

	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			newChannel.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}
		channel, requests, err := newChannel.Accept()
		if err != nil {
			continue
		}
		go s.serveSession(channel, requests)
	}
}

func (s *Server) serveSession(channel ssh.Channel, reqs <-chan *ssh.Request) {
	defer channel.Close()
	for req := range reqs {
		switch req.Type {
		case "exec":
			req.Reply(true, nil)
			s.execs.Add(1)
			s.runExec(channel, string(payloadString(req.Payload)))
			return
		case "subsystem":
			if string(payloadString(req.Payload)) != "sftp" {
				req.Reply(false, nil)
				continue
			}
			req.Reply(true, nil)
			server, err := sftp.NewServer(channel, sftp.WithDebug(io.Discard))
			if err != nil {
				return
			}
			if err := server.Serve(); errors.Is(err, io.EOF) {
				server.Close()
			}
			return
		case "env", "pty-req":
			req.Reply(true, nil)
		default:
			req.Reply(false, nil)
		}
	}
}

func (s *Server) runExec(channel ssh.Channel, command string) {
	if b, _ := s.banner.Load().(string); b != "" {
		io.WriteString(channel, b)
	}

	cmd := exec.Command("sh", "-c", command)
	cmd.Stdin = channel
	cmd.Stdout = channel
	cmd.Stderr = channel.Stderr()

	status := 0
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			status = exitErr.ExitCode()
		} else {
			status = 127
		}
	}
	channel.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{uint32(status)}))
}

// payloadString decodes an SSH string (uint32 length, then bytes).
func payloadString(p []byte) []byte {
	if len(p) < 4 {
		return nil
	}
	n := binary.BigEndian.Uint32(p)
	if int(n) > len(p)-4 {
		return p[4:]
	}
	return p[4 : 4+n]
}
