package credentials

import (
	"fmt"
	"io"
	"os"
	"strings"

	clierr "github.com/bitcli/bitcli/internal/errors"
	"github.com/bitcli/bitcli/internal/input"
)

type Source int

const (
	SourceExplicit Source = iota
	SourceStdin
	SourceCookie
)

func (s Source) String() string {
	switch s {
	case SourceExplicit:
		return "explicit"
	case SourceStdin:
		return "stdin"
	case SourceCookie:
		return "cookie"
	default:
		return "unknown"
	}
}

type Credential struct {
	Source Source
	User   string
	Pass   string
}

// Resolver picks the credential for a run: explicit beats stdin beats the
// node's cookie file. The stdin secret is consumed exactly once, even when
// explicit flags win, so batch commands on the same stream keep their
// positions.
type Resolver struct {
	User       string
	Password   string
	UseStdin   bool
	CookiePath string
	Prompt     io.Writer // interactive password prompt, when set

	stdinPass string
	stdinRead bool
}

func (r *Resolver) Resolve(src *input.Source) (Credential, error) {
	if r.UseStdin && !r.stdinRead {
		if r.Prompt != nil && src.IsTerminal() {
			fmt.Fprint(r.Prompt, "RPC password> ")
		}
		secret, err := src.ReadSecretLine()
		if err == io.EOF {
			return Credential{}, clierr.New(clierr.KindUsage,
				"--stdinrpcpass specified but failed to read from standard input")
		}
		if err != nil {
			return Credential{}, clierr.Wrap(clierr.KindInternal, "read rpc password", err)
		}
		r.stdinPass = secret
		r.stdinRead = true
	}

	if r.Password != "" {
		return Credential{Source: SourceExplicit, User: r.User, Pass: r.Password}, nil
	}
	if r.UseStdin {
		return Credential{Source: SourceStdin, User: r.User, Pass: r.stdinPass}, nil
	}
	return r.cookieCredential()
}

// cookieCredential reads the node-generated cookie on every call: in wait
// mode the file can appear or be rewritten between attempts.
func (r *Resolver) cookieCredential() (Credential, error) {
	buf, err := os.ReadFile(r.CookiePath)
	if err != nil {
		if os.IsNotExist(err) {
			return Credential{}, clierr.Newf(clierr.KindCredMissing,
				"Could not locate RPC credentials. No authentication cookie could be found, "+
					"and RPC password is not set. See --rpcpassword and --stdinrpcpass. "+
					"Authentication cookie path: %s", r.CookiePath)
		}
		return Credential{}, clierr.Wrap(clierr.KindInternal, "read authentication cookie", err)
	}

	line := string(buf)
	if i := strings.IndexAny(line, "\r\n"); i >= 0 {
		line = line[:i]
	}
	user, pass, found := strings.Cut(line, ":")
	if !found {
		return Credential{Source: SourceCookie, User: line}, nil
	}
	return Credential{Source: SourceCookie, User: user, Pass: pass}, nil
}
