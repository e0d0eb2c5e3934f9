package pass

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path"
	"strings"
	"time"

	"github.com/bnema/cookie-accounts-cli/internal/domain"
	"github.com/bnema/cookie-accounts-cli/internal/ports"
)

const (
	// DefaultPrefix namespaces every entry in the password store.
	DefaultPrefix  = "cookie-accounts"
	DefaultTimeout = 15 * time.Second
)

var (
	ErrUnavailable = errors.New("pass command unavailable")
	// ErrTimeout usually means gpg-agent is waiting for a passphrase nobody can type.
	ErrTimeout = errors.New("pass command timed out")
)

type runFunc func(ctx context.Context, input string, args ...string) (stdout string, stderr string, err error)

type Options struct {
	Prefix  string
	Timeout time.Duration
}

// Store keeps the registry token in the user's password store, one entry
// per key below Prefix. The entry's first line is the secret.
type Store struct {
	prefix  string
	timeout time.Duration
	run     runFunc
}

var _ ports.SecretStore = (*Store)(nil)

func New(opts Options) *Store {
	prefix := strings.Trim(opts.Prefix, "/")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Store{prefix: prefix, timeout: timeout, run: runPassCommand}
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	entry, err := s.entry(key)
	if err != nil {
		return err
	}
	if strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("pass put %q: secret spans several lines", key)
	}

	// Trailing lines are metadata; Get only reads the first one.
	input := value + "\nkey: " + key + "\nupdated: " + time.Now().UTC().Format(time.RFC3339) + "\n"
	_, stderr, err := s.exec(ctx, input, "insert", "-m", "-f", entry)
	if err != nil {
		return formatError("put", key, err, stderr)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	entry, err := s.entry(key)
	if err != nil {
		return "", err
	}

	stdout, stderr, err := s.exec(ctx, "", "show", entry)
	if err != nil {
		if isMissingEntry(stderr) {
			return "", fmt.Errorf("pass get %q: %w", key, domain.ErrSecretNotFound)
		}
		return "", formatError("get", key, err, stderr)
	}

	first, _, _ := strings.Cut(stdout, "\n")
	first = strings.TrimSuffix(first, "\r")
	if first == "" {
		return "", fmt.Errorf("pass get %q: entry is empty: %w", key, domain.ErrSecretNotFound)
	}

	return first, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	entry, err := s.entry(key)
	if err != nil {
		return err
	}

	_, stderr, err := s.exec(ctx, "", "rm", "-f", entry)
	if err != nil && !isMissingEntry(stderr) {
		return formatError("delete", key, err, stderr)
	}

	return nil
}

// exec bounds every pass call so a pinentry prompt cannot hang a switch.
func (s *Store) exec(ctx context.Context, input string, args ...string) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	stdout, stderr, err := s.run(runCtx, input, args...)
	if err != nil && ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return stdout, stderr, fmt.Errorf("%w after %s", ErrTimeout, s.timeout)
	}

	return stdout, stderr, err
}

func (s *Store) entry(key string) (string, error) {
	key = strings.Trim(strings.TrimSpace(key), "/")
	if key == "" {
		return "", errors.New("secret key is empty")
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("secret key %q escapes the store prefix", key)
	}

	return path.Join(s.prefix, key), nil
}

func isMissingEntry(stderr string) bool {
	return strings.Contains(stderr, "is not in the password store")
}

func runPassCommand(ctx context.Context, input string, args ...string) (string, string, error) {
	bin, err := exec.LookPath("pass")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", "", ErrUnavailable
		}
		return "", "", fmt.Errorf("locate pass command: %w", err)
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	if input != "" {
		cmd.Stdin = strings.NewReader(input)
	}

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	return stdout.String(), strings.TrimSpace(stderr.String()), err
}

func formatError(op string, key string, err error, stderr string) error {
	if stderr == "" {
		return fmt.Errorf("pass %s %q: %w", op, key, err)
	}

	return fmt.Errorf("pass %s %q: %w: %s", op, key, err, stderr)
}
