package keyexchange

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/imamik/ocpool/internal/util/keygen"
)

// Remote paths, relative to the login directory of the remote user.
const (
	SSHDir         = ".ssh"
	PrivateKeyPath = SSHDir + "/id_rsa"
	PublicKeyPath  = SSHDir + "/id_rsa.pub"
	AuthorizedKeys = SSHDir + "/authorized_keys"
)

// Remote is a host the identity is installed on.
type Remote interface {
	Execute(ctx context.Context, command string) (string, error)
	WriteFile(ctx context.Context, path string, data []byte, mode uint32) error
}

// Dialer opens a Remote for host.
type Dialer func(host string) (Remote, error)

// Exchanger implements provisioning.KeyExchanger over SSH.
type Exchanger struct {
	dial     Dialer
	bits     int
	comment  string
	generate func(bits int) (*keygen.KeyPair, error)
}

// Option configures an Exchanger.
type Option func(*Exchanger)

// WithBits sets the RSA key size.
func WithBits(bits int) Option {
	return func(e *Exchanger) {
		e.bits = bits
	}
}

// WithComment sets the comment of the authorized_keys entry.
func WithComment(comment string) Option {
	return func(e *Exchanger) {
		e.comment = comment
	}
}

// WithKeyGenerator replaces the key pair generator.
func WithKeyGenerator(fn func(bits int) (*keygen.KeyPair, error)) Option {
	return func(e *Exchanger) {
		e.generate = fn
	}
}

// New creates an Exchanger dialing hosts with dial.
func New(dial Dialer, opts ...Option) *Exchanger {
	e := &Exchanger{
		dial:     dial,
		bits:     keygen.DefaultBits,
		comment:  "ocpool",
		generate: keygen.GenerateRSAKeyPair,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Exchange generates one key pair and installs it on every host. A failing
// host does not stop the others; all failures are returned joined.
func (e *Exchanger) Exchange(ctx context.Context, hosts []string) error {
	if len(hosts) == 0 {
		return nil
	}

	kp, err := e.generate(e.bits)
	if err != nil {
		return fmt.Errorf("failed to generate cluster key: %w", err)
	}
	authorized := kp.AuthorizedKey(e.comment)

	var errs []error
	for _, host := range hosts {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		if err := e.install(ctx, host, kp, authorized); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", host, err))
		}
	}
	return errors.Join(errs...)
}

func (e *Exchanger) install(ctx context.Context, host string, kp *keygen.KeyPair, authorized string) error {
	remote, err := e.dial(host)
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	if _, err := remote.Execute(ctx, "mkdir -p "+SSHDir+" && chmod 700 "+SSHDir); err != nil {
		return err
	}
	if err := remote.WriteFile(ctx, PrivateKeyPath, kp.PrivateKey, 0o600); err != nil {
		return err
	}
	if err := remote.WriteFile(ctx, PublicKeyPath, kp.PublicKey, 0o644); err != nil {
		return err
	}
	_, err = remote.Execute(ctx, AppendAuthorizedKey(authorized))
	return err
}

// AppendAuthorizedKey returns the shell command adding line to the
// authorized keys unless it is already present.
func AppendAuthorizedKey(line string) string {
	quoted := "'" + strings.ReplaceAll(line, "'", `'\''`) + "'"
	return fmt.Sprintf("touch %[1]s && chmod 600 %[1]s && (grep -qxF %[2]s %[1]s || echo %[2]s >> %[1]s)",
		AuthorizedKeys, quoted)
}
